package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/salvo/board"
	"github.com/pthm-cable/salvo/config"
	"github.com/pthm-cable/salvo/evolve"
	"github.com/pthm-cable/salvo/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults, never reloaded)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	workers := flag.Int("workers", 0, "Parallel game workers (0 = GOMAXPROCS)")
	maxGenerations := flag.Int("max-generations", 0, "Stop after N generations (0 = unlimited)")
	populationPath := flag.String("population", "", "Population file (overrides output.population_path)")
	logCSV := flag.String("log-csv", "", "Generation CSV log (overrides output.log_csv_path)")
	writeConfig := flag.String("write-config", "", "Write the effective config to this path and exit")
	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *populationPath != "" {
		cfg.Output.PopulationPath = *populationPath
	}
	if *logCSV != "" {
		cfg.Output.LogCSVPath = *logCSV
	}

	if *writeConfig != "" {
		if err := cfg.WriteYAML(*writeConfig); err != nil {
			slog.Error("failed to write config", "error", err)
			os.Exit(1)
		}
		slog.Info("config written", "path", *writeConfig)
		return
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))

	// Prove the rules are playable before spending time on training.
	rules := cfg.RuleSet()
	if _, err := board.New(rules, board.NewPlacer(), rand.New(rand.NewSource(rngSeed))); err != nil {
		if errors.Is(err, board.ErrUnsatisfiable) {
			slog.Error("ships cannot be placed on the board", "error", err)
		} else {
			slog.Error("invalid rules", "error", err)
		}
		os.Exit(1)
	}

	glog, err := telemetry.OpenGenerationLog(cfg.Output.LogCSVPath)
	if err != nil {
		// The CSV report is best effort.
		slog.Warn("generation log disabled", "path", cfg.Output.LogCSVPath, "error", err)
	}
	defer glog.Close()

	pop := evolve.LoadOrEmpty(cfg.Output.PopulationPath, logger)
	trainer := evolve.NewTrainer(rules, pop, rng, logger)
	trainer.SetWorkers(*workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting training",
		"seed", rngSeed,
		"generation", pop.Generation,
		"width", rules.Width,
		"height", rules.Height,
		"ships", len(rules.Ships),
		"max_generations", *maxGenerations,
		"population", cfg.Output.PopulationPath,
	)

	runner := &evolve.Runner{
		Trainer:        trainer,
		Config:         cfg,
		ConfigPath:     *configPath,
		Log:            glog,
		MaxGenerations: *maxGenerations,
		Logger:         logger,
	}
	if err := runner.Run(ctx); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
}
