// Package framework talks to the external modeling framework that owns the
// tokenizer vocabulary, the transformer, the optimizer and the training loop.
// Nothing in here does any math; it ships configuration out and results back.
package framework

import (
	"context"
	"errors"

	"github.com/manningwu07/storyforge/params"
)

var (
	ErrTrainer    = errors.New("framework training failed")
	ErrGeneration = errors.New("framework generation failed")
	ErrTransport  = errors.New("unknown framework transport")
)

type LogEntry struct {
	Step  int     `json:"step"`
	Epoch float64 `json:"epoch"`
	Loss  float64 `json:"loss"`
}

type TrainResult struct {
	GlobalStep   int        `json:"global_step"`
	TrainingLoss float64    `json:"training_loss"`
	LogHistory   []LogEntry `json:"log_history"`
}

// Trainer fine-tunes the base model and persists it.
type Trainer interface {
	// Train runs (or resumes, when resumeFrom is a checkpoint path) a fine-tune.
	Train(ctx context.Context, cfg params.TrainingConfig, resumeFrom string) (*TrainResult, error)
	// SaveModel writes the final model and tokenizer into outputDir.
	SaveModel(ctx context.Context, outputDir string) error
}

type GenerateParams struct {
	MaxLength         int     `json:"max_length"` // prompt tokens + new tokens
	Temperature       float64 `json:"temperature"`
	LengthPenalty     float64 `json:"length_penalty"`
	NoRepeatNGramSize int     `json:"no_repeat_ngram_size"`
	DoSample          bool    `json:"do_sample"`
}

// Model continues a token sequence. The returned ids include the prompt ids and
// stop early at the model's end-of-sequence token.
type Model interface {
	Generate(ctx context.Context, ids []int, p GenerateParams) ([]int, error)
}

// Encoder turns text back into ids for backends that only return text.
type Encoder interface {
	Encode(text string) ([]int, error)
}

// ParamsFrom maps the generation settings onto a single request.
func ParamsFrom(cfg params.GenerationConfig, promptLen int) GenerateParams {
	return GenerateParams{
		MaxLength:         promptLen + cfg.ChunkSize,
		Temperature:       cfg.Temperature,
		LengthPenalty:     cfg.LengthPenalty,
		NoRepeatNGramSize: cfg.NoRepeatNGramSize,
		DoSample:          cfg.DoSample,
	}
}
