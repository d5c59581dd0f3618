// Package checkpoint finds the checkpoint a training run should resume from.
//
// The framework writes one directory per save, named checkpoint-<step>, into the
// run's output directory. Nothing here ever creates or deletes them.
package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const Prefix = "checkpoint-"

type Checkpoint struct {
	Path    string
	Name    string
	Step    int // -1 when the suffix is not a number
	ModTime time.Time
}

// Policy decides which checkpoint wins when several exist.
type Policy int

const (
	// ByStep picks the highest step suffix. Timestamps only break ties.
	ByStep Policy = iota
	// ByCreationTime picks the newest directory on disk. Go has no portable
	// birth time, so the modification time stands in for it.
	ByCreationTime
)

func (p Policy) String() string {
	switch p {
	case ByStep:
		return "step"
	case ByCreationTime:
		return "ctime"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "step":
		return ByStep, nil
	case "ctime", "time", "creation":
		return ByCreationTime, nil
	}
	return ByStep, fmt.Errorf("unknown checkpoint policy %q", s)
}

type options struct {
	policy Policy
	logger *log.Logger
}

type Option func(*options)

func WithPolicy(p Policy) Option { return func(o *options) { o.policy = p } }

func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

// Resolve returns the checkpoint to resume from, or nil to start from scratch.
// A missing or empty directory is not an error.
func Resolve(dir string, opts ...Option) (*Checkpoint, error) {
	o := options{policy: ByStep, logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	ckpts, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(ckpts) == 0 {
		o.logger.Info("Starting from scratch", "output_dir", dir)
		return nil, nil
	}

	best := ckpts[0]
	for _, c := range ckpts[1:] {
		if newer(c, best, o.policy) {
			best = c
		}
	}
	o.logger.Info("Resuming from checkpoint", "path", best.Path, "step", best.Step, "policy", o.policy)
	return &best, nil
}

// List returns every checkpoint directory under dir, ordered by step.
func List(dir string) ([]Checkpoint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output dir: %w", err)
	}

	var out []Checkpoint
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), Prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		out = append(out, Checkpoint{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			Step:    parseStep(e.Name()),
			ModTime: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Step != out[j].Step {
			return out[i].Step < out[j].Step
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func parseStep(name string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(name, Prefix))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// newer reports whether a should be preferred over b.
func newer(a, b Checkpoint, p Policy) bool {
	if p == ByCreationTime {
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		if a.Step != b.Step {
			return a.Step > b.Step
		}
		return a.Name > b.Name
	}
	if a.Step != b.Step {
		return a.Step > b.Step
	}
	if !a.ModTime.Equal(b.ModTime) {
		return a.ModTime.After(b.ModTime)
	}
	return a.Name > b.Name
}
