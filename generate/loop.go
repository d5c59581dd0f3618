// Package generate turns a fine-tuned model into long-form text: Loop feeds
// each chunk back as the next prompt, Driver keeps appending Loop results to
// the story file until it is long enough.
package generate

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/manningwu07/storyforge/IO"
	"github.com/manningwu07/storyforge/framework"
	"github.com/manningwu07/storyforge/params"
	"github.com/manningwu07/storyforge/utils"
)

// State is the working record of one Loop.Run call.
type State struct {
	Prompt     string
	Story      string
	Words      int
	Iterations int
}

func (s *State) done(cfg params.GenerationConfig) bool {
	return s.Words >= cfg.TargetWords || s.Iterations >= cfg.MaxIterations
}

type Loop struct {
	Model     framework.Model
	Tokenizer IO.Tokenizer
	Config    params.GenerationConfig
	Logger    *log.Logger
}

func NewLoop(model framework.Model, tok IO.Tokenizer, cfg params.GenerationConfig, logger *log.Logger) *Loop {
	if cfg.MaxIterations <= 0 || cfg.MaxIterations > params.MaxIterations {
		cfg.MaxIterations = params.MaxIterations
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{Model: model, Tokenizer: tok, Config: cfg, Logger: logger}
}

// Run generates chunk after chunk starting from prompt and returns only the
// newly generated text.
func (l *Loop) Run(ctx context.Context, prompt string) (string, error) {
	st, err := l.RunState(ctx, prompt)
	if err != nil {
		return "", err
	}
	return st.Story, nil
}

// RunState is Run, but reports the final loop state.
//
// The next prompt is the last ContextChars characters of the decoded chunk, and
// the word budget counts the whole decoded chunk, prompt included.
func (l *Loop) RunState(ctx context.Context, prompt string) (State, error) {
	st := &State{Prompt: prompt}
	for !st.done(l.Config) {
		if err := ctx.Err(); err != nil {
			return State{}, err
		}
		if err := l.step(ctx, st); err != nil {
			return State{}, fmt.Errorf("iteration %d: %w", st.Iterations+1, err)
		}
	}
	l.Logger.Debug("Chunk loop finished", "iterations", st.Iterations, "words", st.Words, "chars", utils.CharLen(st.Story))
	return *st, nil
}

func (l *Loop) step(ctx context.Context, st *State) error {
	ids, err := l.Tokenizer.Encode(st.Prompt)
	if err != nil {
		return fmt.Errorf("encode prompt: %w", err)
	}
	out, err := l.Model.Generate(ctx, ids, framework.ParamsFrom(l.Config, len(ids)))
	if err != nil {
		return err
	}
	text := l.Tokenizer.Decode(out)

	st.Story += utils.DropChars(text, utils.CharLen(st.Prompt))
	st.Prompt = utils.LastChars(text, l.Config.ContextChars)
	st.Words += utils.WordCount(text)
	st.Iterations++
	return nil
}
