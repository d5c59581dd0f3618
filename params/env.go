package params

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "storyforge"

// Load starts from Config and applies STORYFORGE_* overrides. A .env file in
// the working directory is read first; variables already set win over it.
func Load(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	s := Config
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return Settings{}, fmt.Errorf("process environment: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	switch {
	case s.Training.OutputDir == "":
		return errors.New("training output dir is required")
	case s.Generation.ChunkSize <= 0:
		return errors.New("generation chunk size must be positive")
	case s.Generation.MaxIterations <= 0:
		return errors.New("generation max iterations must be positive")
	case s.Generation.ContextChars <= 0:
		return errors.New("generation context chars must be positive")
	case s.Driver.PromptTailChars <= 0:
		return errors.New("driver prompt tail chars must be positive")
	case s.Driver.MaxFileChars <= 0:
		return errors.New("driver max file chars must be positive")
	case s.Driver.OutputPath == "":
		return errors.New("driver output path is required")
	}
	switch s.Training.Precision {
	case "fp32", "fp16", "bf16":
	default:
		return fmt.Errorf("unknown precision %q", s.Training.Precision)
	}
	return nil
}
