package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/manningwu07/storyforge/IO"
	"github.com/manningwu07/storyforge/journal"
	"github.com/manningwu07/storyforge/params"
	"github.com/manningwu07/storyforge/utils"
)

var (
	ErrNoProgress = errors.New("generation made no progress")
	ErrRoundLimit = errors.New("round limit reached before the story was long enough")
)

// Generator is satisfied by *Loop.
type Generator interface {
	RunState(ctx context.Context, prompt string) (State, error)
}

type Driver struct {
	Gen     Generator
	Story   IO.StoryFile
	Config  params.DriverConfig
	Journal journal.Recorder
	RunID   string
	Logger  *log.Logger
}

type Summary struct {
	Rounds   int
	Appended int // characters, newlines included
	Length   int // final file length in characters
}

func NewDriver(gen Generator, cfg params.DriverConfig, rec journal.Recorder, logger *log.Logger) *Driver {
	if rec == nil {
		rec = journal.Nop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{
		Gen:     gen,
		Story:   IO.StoryFile{Path: cfg.OutputPath},
		Config:  cfg,
		Journal: rec,
		RunID:   journal.NewRunID(),
		Logger:  logger,
	}
}

// Run appends generated segments to the story file until it holds at least
// MaxFileChars characters.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	stalled := 0
	for {
		content, err := d.Story.Read()
		if err != nil {
			return sum, fmt.Errorf("read %s: %w", d.Story.Path, err)
		}
		sum.Length = utils.CharLen(content)
		if sum.Length >= d.Config.MaxFileChars {
			d.Logger.Info("✨ Story complete", "path", d.Story.Path, "chars", sum.Length, "rounds", sum.Rounds)
			return sum, nil
		}
		if d.Config.MaxRounds > 0 && sum.Rounds >= d.Config.MaxRounds {
			return sum, fmt.Errorf("%w: %d rounds, %d/%d chars", ErrRoundLimit, sum.Rounds, sum.Length, d.Config.MaxFileChars)
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		prompt := d.Config.InitialPrompt
		if content != "" {
			prompt = utils.LastChars(content, d.Config.PromptTailChars)
		}

		st, err := d.Gen.RunState(ctx, prompt)
		if err != nil {
			return sum, fmt.Errorf("round %d: %w", sum.Rounds+1, err)
		}
		segment := st.Story
		if err := d.Story.Append(segment); err != nil {
			return sum, fmt.Errorf("append to %s: %w", d.Story.Path, err)
		}
		sum.Rounds++
		added := utils.CharLen(segment) + 1
		sum.Appended += added

		round := journal.Round{
			RunID:         d.RunID,
			Number:        sum.Rounds,
			PromptChars:   utils.CharLen(prompt),
			AppendedChars: added,
			Iterations:    st.Iterations,
			Words:         utils.WordCount(segment),
			FileChars:     sum.Length + added,
		}
		sum.Length = round.FileChars
		if err := d.Journal.RecordRound(ctx, round); err != nil {
			return sum, fmt.Errorf("journal round %d: %w", sum.Rounds, err)
		}
		d.Logger.Info("📝 Appended segment", "round", sum.Rounds, "chars", added-1, "total", round.FileChars)

		if segment == "" {
			stalled++
			if d.Config.MaxStalledRounds > 0 && stalled >= d.Config.MaxStalledRounds {
				return sum, fmt.Errorf("%w: %d empty rounds in a row", ErrNoProgress, stalled)
			}
			continue
		}
		stalled = 0
	}
}
