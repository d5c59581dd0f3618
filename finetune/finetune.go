// Package finetune runs the one training pass that precedes generation. The
// framework does the work; this package decides whether to resume, and checks
// that a model actually landed in the output directory afterwards.
package finetune

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/manningwu07/storyforge/IO"
	"github.com/manningwu07/storyforge/checkpoint"
	"github.com/manningwu07/storyforge/framework"
	"github.com/manningwu07/storyforge/params"
	"github.com/manningwu07/storyforge/utils"
)

// ModelArtifact is the file a saved model always contains.
const ModelArtifact = "config.json"

var (
	ErrDatasetMissing    = errors.New("training dataset not found")
	ErrModelNotPersisted = errors.New("trained model was not saved")
)

type Options struct {
	Policy checkpoint.Policy
	Logger *log.Logger
}

// LossSummary condenses the trainer's log history.
type LossSummary struct {
	Steps int
	Final float64
	Mean  float64
	Min   float64
}

func Summarize(res *framework.TrainResult) LossSummary {
	sum := LossSummary{}
	if res == nil {
		return sum
	}
	sum.Steps = res.GlobalStep
	sum.Final = res.TrainingLoss

	losses := make([]float64, 0, len(res.LogHistory))
	for _, e := range res.LogHistory {
		if e.Loss != 0 {
			losses = append(losses, e.Loss)
		}
	}
	if len(losses) > 0 {
		sum.Mean = stat.Mean(losses, nil)
		sum.Min = floats.Min(losses)
	}
	return sum
}

// Run fine-tunes cfg.BaseModel on cfg.DatasetPath, resuming from the latest
// checkpoint in cfg.OutputDir if there is one, and saves the final model there.
func Run(ctx context.Context, cfg params.TrainingConfig, trainer framework.Trainer, opt Options) (*framework.TrainResult, error) {
	logger := opt.Logger
	if logger == nil {
		logger = log.Default()
	}
	dataset := IO.FindDataset(cfg.DatasetPath)
	if dataset == "" {
		return nil, fmt.Errorf("%w: %s", ErrDatasetMissing, cfg.DatasetPath)
	}
	if dataset != cfg.DatasetPath {
		logger.Warn("⚠️ Dataset not found, using fallback", "configured", cfg.DatasetPath, "using", dataset)
		cfg.DatasetPath = dataset
	}

	ckpt, err := checkpoint.Resolve(cfg.OutputDir, checkpoint.WithPolicy(opt.Policy), checkpoint.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("resolve checkpoint: %w", err)
	}
	resumeFrom := ""
	if ckpt != nil {
		resumeFrom = ckpt.Path
		state, err := checkpoint.ReadState(*ckpt)
		if err != nil {
			logger.Warn("Unreadable trainer state", "path", ckpt.Path, "err", err)
		} else if state != nil {
			logger.Info("Checkpoint state", "global_step", state.GlobalStep, "epoch", state.Epoch, "logged_losses", len(state.Losses()))
		}
	}

	logger.Info("🚀 Training", "model", cfg.BaseModel, "dataset", cfg.DatasetPath, "epochs", cfg.Epochs, "precision", cfg.Precision)
	res, err := trainer.Train(ctx, cfg, resumeFrom)
	if err != nil {
		return nil, err
	}
	if err := trainer.SaveModel(ctx, cfg.OutputDir); err != nil {
		return nil, err
	}
	if !utils.FileExists(filepath.Join(cfg.OutputDir, ModelArtifact)) {
		return nil, fmt.Errorf("%w: no %s in %s", ErrModelNotPersisted, ModelArtifact, cfg.OutputDir)
	}

	s := Summarize(res)
	logger.Info("✅ Model saved", "output_dir", cfg.OutputDir, "steps", s.Steps, "final_loss", s.Final, "mean_loss", s.Mean, "min_loss", s.Min)
	return res, nil
}
