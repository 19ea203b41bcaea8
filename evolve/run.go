package evolve

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/pthm-cable/salvo/config"
	"github.com/pthm-cable/salvo/telemetry"
)

// Runner drives a Trainer generation after generation, re-reading the
// training parameters between generations and persisting after each one.
type Runner struct {
	Trainer *Trainer
	Config  *config.Config
	// ConfigPath is reloaded at the top of every generation. Empty means the
	// config is never reloaded.
	ConfigPath string
	Log        *telemetry.GenerationLog
	// MaxGenerations stops the loop after that many generations when > 0.
	MaxGenerations int
	Logger         *slog.Logger

	// OnGeneration, if set, is called after each generation is saved.
	OnGeneration func(Result)
}

// Run trains until ctx is cancelled or MaxGenerations is reached. A
// cancelled context is a clean stop and returns nil; the generation in
// flight is discarded and the last saved one is kept.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if r.Trainer == nil || r.Config == nil {
		return errors.New("runner needs a trainer and a config")
	}

	for done := 0; r.MaxGenerations <= 0 || done < r.MaxGenerations; done++ {
		if ctx.Err() != nil {
			logger.Info("training stopped", "generation", r.Trainer.Population().Generation)
			return nil
		}
		r.reload(logger)

		params := ParamsFrom(r.Config.Training)
		if err := r.Trainer.Fill(params, r.Config.Network.HiddenFractions); err != nil {
			return err
		}
		res, err := r.Trainer.Step(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("training stopped", "generation", r.Trainer.Population().Generation)
				return nil
			}
			return err
		}

		res.Timer.StartPhase(telemetry.PhasePersist)
		r.persist(logger, res)
		res.Timer.Stop()

		res.Stats.Log(logger, "survivors", res.Survivors, "timing", res.Timer)
		if r.OnGeneration != nil {
			r.OnGeneration(res)
		}
	}
	logger.Info("generation limit reached", "generation", r.Trainer.Population().Generation)
	return nil
}

// reload replaces the training parameters from ConfigPath. Rules, network
// shape and output paths are fixed for the life of the run so the pool keeps
// one topology; a bad file keeps the previous config.
func (r *Runner) reload(logger *slog.Logger) {
	if r.ConfigPath == "" {
		return
	}
	cfg, err := config.Load(r.ConfigPath)
	if err != nil {
		logger.Warn("config reload failed, keeping previous settings", "path", r.ConfigPath, "error", err)
		return
	}
	if !cfg.RuleSet().Equal(r.Trainer.Rules()) {
		logger.Warn("rule changes need a restart, ignoring", "path", r.ConfigPath)
	}
	if !slices.Equal(cfg.Network.HiddenFractions, r.Config.Network.HiddenFractions) {
		logger.Warn("network changes need a restart, ignoring", "path", r.ConfigPath,
			"hidden_fractions", cfg.Network.HiddenFractions)
	}
	if cfg.Training != r.Config.Training {
		logger.Info("training parameters changed",
			"target_pool_size", cfg.Training.TargetPoolSize,
			"network_attempts", cfg.Training.NetworkAttempts,
			"mutation_epsilon", cfg.Training.MutationEpsilon,
			"mutation_rate", cfg.Training.MutationRate,
			"survival_rate", cfg.Training.SurvivalRate)
	}
	next := *r.Config
	next.Training = cfg.Training
	r.Config = &next
}

func (r *Runner) persist(logger *slog.Logger, res Result) {
	path := r.Config.Output.PopulationPath
	if err := Save(path, r.Trainer.Population()); err != nil {
		logger.Error("population save failed", "path", path, "error", err)
	}
	if err := r.Log.Write(res.Stats.Record()); err != nil {
		logger.Warn("generation log write failed", "path", r.Log.Path(), "error", err)
	}
}
