package framework

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIModel generates through an OpenAI-compatible completions endpoint
// (vLLM, TGI, llama.cpp server) that is serving the fine-tuned model. Those
// servers accept length_penalty and no_repeat_ngram_size as extra fields.
type OpenAIModel struct {
	Model   string
	Encoder Encoder
	client  openai.Client
}

func NewOpenAIModel(baseURL, apiKey, model string, enc Encoder) (*OpenAIModel, error) {
	if model == "" {
		return nil, errors.New("openai model name is required")
	}
	if enc == nil {
		return nil, errors.New("openai model needs an encoder for the returned text")
	}
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		// local servers ignore the key but the SDK insists on one
		opts = append(opts, option.WithAPIKey("unused"))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIModel{Model: model, Encoder: enc, client: openai.NewClient(opts...)}, nil
}

func (m *OpenAIModel) Generate(ctx context.Context, ids []int, p GenerateParams) ([]int, error) {
	prompt := make([]int64, len(ids))
	for i, id := range ids {
		prompt[i] = int64(id)
	}
	maxNew := p.MaxLength - len(ids)
	if maxNew <= 0 {
		return append([]int(nil), ids...), nil
	}

	temperature := p.Temperature
	if !p.DoSample {
		temperature = 0 // greedy
	}

	resp, err := m.client.Completions.New(ctx, openai.CompletionNewParams{
		Model:       openai.CompletionNewParamsModel(m.Model),
		Prompt:      openai.CompletionNewParamsPromptUnion{OfArrayOfTokens: prompt},
		MaxTokens:   openai.Int(int64(maxNew)),
		Temperature: openai.Float(temperature),
	},
		option.WithJSONSet("length_penalty", p.LengthPenalty),
		option.WithJSONSet("no_repeat_ngram_size", p.NoRepeatNGramSize),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrGeneration)
	}

	more, err := m.Encoder.Encode(resp.Choices[0].Text)
	if err != nil {
		return nil, fmt.Errorf("%w: re-encode completion: %w", ErrGeneration, err)
	}
	out := make([]int, 0, len(ids)+len(more))
	out = append(out, ids...)
	return append(out, more...), nil
}
