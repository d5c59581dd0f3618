package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// StateFile is written by the framework trainer inside every checkpoint.
const StateFile = "trainer_state.json"

type LogEntry struct {
	Step  int     `json:"step"`
	Epoch float64 `json:"epoch"`
	Loss  float64 `json:"loss"`
}

type State struct {
	GlobalStep          int        `json:"global_step"`
	Epoch               float64    `json:"epoch"`
	BestModelCheckpoint string     `json:"best_model_checkpoint"`
	LogHistory          []LogEntry `json:"log_history"`
}

// Losses returns the training losses recorded in the log history. Entries
// without a loss (eval-only rows) are skipped.
func (s *State) Losses() []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, 0, len(s.LogHistory))
	for _, e := range s.LogHistory {
		if e.Loss != 0 {
			out = append(out, e.Loss)
		}
	}
	return out
}

// ReadState decodes the trainer state of c. A checkpoint without a state file
// yields nil, nil.
func ReadState(c Checkpoint) (*State, error) {
	raw, err := os.ReadFile(filepath.Join(c.Path, StateFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", StateFile, err)
	}
	return &s, nil
}
