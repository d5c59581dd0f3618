package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/manningwu07/storyforge/IO"
	"github.com/manningwu07/storyforge/checkpoint"
	"github.com/manningwu07/storyforge/finetune"
	"github.com/manningwu07/storyforge/framework"
	"github.com/manningwu07/storyforge/generate"
	"github.com/manningwu07/storyforge/journal"
	"github.com/manningwu07/storyforge/params"
)

type rootArgs struct {
	envFile string
	policy  string
	title   string
	csv     bool
}

// app carries what every command needs once settings are loaded.
type app struct {
	args     rootArgs
	settings params.Settings
	policy   checkpoint.Policy
	logger   *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "storyforge",
		Short: "Fine-tune a causal language model and grow a story with it",
		Long: `
Fine-tunes the configured base model on a local corpus (resuming from the
latest checkpoint), then keeps generating and appending text to the story file
until it reaches the configured length.

All settings have defaults and can be overridden with STORYFORGE_* variables.
	`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.train(cmd.Context()); err != nil {
				return err
			}
			if err := a.generate(cmd.Context()); err != nil {
				return err
			}
			return a.export()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.args.envFile, "env-file", ".env", "dotenv file read before the environment")
	pf.StringVar(&a.args.policy, "checkpoint-policy", "step", "how to pick the checkpoint to resume from: step | ctime")
	pf.StringVar(&a.args.title, "title", "Story", "title of the exported HTML page")

	root.AddCommand(
		&cobra.Command{
			Use:   "train",
			Short: "Fine-tune (or resume fine-tuning) and save the model",
			RunE:  func(cmd *cobra.Command, _ []string) error { return a.train(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "generate",
			Short: "Append generated text to the story file until it is long enough",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.generate(cmd.Context()); err != nil {
					return err
				}
				return a.export()
			},
		},
		a.checkpointsCmd(),
		&cobra.Command{
			Use:   "export",
			Short: "Render the story file as an HTML page",
			RunE: func(*cobra.Command, []string) error {
				if a.settings.Driver.HTMLPath == "" {
					a.settings.Driver.HTMLPath = strings.TrimSuffix(a.settings.Driver.OutputPath, filepath.Ext(a.settings.Driver.OutputPath)) + ".html"
				}
				return a.export()
			},
		},
	)
	return root
}

func (a *app) checkpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "List checkpoints in the output directory and plot the latest loss history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.checkpoints(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&a.args.csv, "csv", false, "print the latest loss history as csv instead of a chart")
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	s, err := params.Load(a.args.envFile)
	if err != nil {
		return err
	}
	a.settings = s

	a.policy, err = checkpoint.ParsePolicy(a.args.policy)
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		ReportTimestamp: true,
		Prefix:          "storyforge",
		Level:           level,
	})
	log.SetDefault(a.logger)
	return nil
}

func (a *app) train(ctx context.Context) error {
	trainer, closeFn, err := newTrainer(ctx, a.settings)
	if err != nil {
		return err
	}
	defer closeFn()

	_, err = finetune.Run(ctx, a.settings.Training, trainer, finetune.Options{Policy: a.policy, Logger: a.logger})
	return err
}

func (a *app) generate(ctx context.Context) error {
	s := a.settings
	tokPath := s.Framework.TokenizerPath
	if tokPath == "" {
		tokPath = filepath.Join(s.Training.OutputDir, "tokenizer.json")
	}
	tok, err := IO.LoadTokenizer(tokPath, s.Framework.TokenizerEncoding)
	if err != nil {
		return err
	}
	model, closeFn, err := newModel(ctx, s, tok)
	if err != nil {
		return err
	}
	defer closeFn()

	var rec journal.Recorder = journal.Nop{}
	if s.Driver.JournalPath != "" {
		j, err := journal.Open(s.Driver.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		rec = j
	}

	loop := generate.NewLoop(model, tok, s.Generation, a.logger)
	driver := generate.NewDriver(loop, s.Driver, rec, a.logger)
	a.logger.Info("Generating", "path", s.Driver.OutputPath, "target_chars", s.Driver.MaxFileChars, "run", driver.RunID)
	sum, err := driver.Run(ctx)
	a.logger.Info("Generation stopped", "rounds", sum.Rounds, "appended", sum.Appended, "length", sum.Length)
	return err
}

func (a *app) export() error {
	d := a.settings.Driver
	if d.HTMLPath == "" {
		return nil
	}
	if err := IO.ExportHTML(IO.StoryFile{Path: d.OutputPath}, d.HTMLPath, a.args.title); err != nil {
		return fmt.Errorf("export html: %w", err)
	}
	a.logger.Info("✅ Exported", "html", d.HTMLPath)
	return nil
}

func newTrainer(ctx context.Context, s params.Settings) (framework.Trainer, func() error, error) {
	fw := s.Framework
	switch fw.Transport {
	case "http":
		return framework.NewHTTPClient(fw.BaseURL, s.Training.OutputDir, s.Training.Device, fw.Timeout), noop, nil
	case "redis":
		c, err := newRedisClient(ctx, s)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: trainer %q", framework.ErrTransport, fw.Transport)
}

func newModel(ctx context.Context, s params.Settings, tok IO.Tokenizer) (framework.Model, func() error, error) {
	fw := s.Framework
	switch fw.Generator {
	case "http":
		return framework.NewHTTPClient(fw.BaseURL, s.Training.OutputDir, s.Training.Device, fw.Timeout), noop, nil
	case "redis":
		c, err := newRedisClient(ctx, s)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "openai":
		name := fw.OpenAIModel
		if name == "" {
			name = s.Training.OutputDir
		}
		m, err := framework.NewOpenAIModel(fw.OpenAIBaseURL, fw.OpenAIAPIKey, name, tok)
		if err != nil {
			return nil, nil, err
		}
		return m, noop, nil
	}
	return nil, nil, fmt.Errorf("%w: generator %q", framework.ErrTransport, fw.Generator)
}

func newRedisClient(ctx context.Context, s params.Settings) (*framework.RedisClient, error) {
	fw := s.Framework
	rdb := redis.NewClient(&redis.Options{Addr: fw.RedisAddr, Password: fw.RedisPassword, DB: fw.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", fw.RedisAddr, err)
	}
	return framework.NewRedisClient(rdb, fw.Queue, s.Training.OutputDir, s.Training.Device), nil
}

func noop() error { return nil }
