// Package telemetry summarizes and records per-generation training results.
package telemetry

import (
	"log/slog"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarizes the fitness scores of one generation.
// Fitness is mean shots to win, so lower is better.
type GenerationStats struct {
	Generation int
	Networks   int
	Mean       float64
	Min        float64
	Max        float64
	StdDev     float64
}

// Summarize computes statistics for one generation's scores.
func Summarize(generation int, scores []float64) GenerationStats {
	s := GenerationStats{Generation: generation, Networks: len(scores)}
	if len(scores) == 0 {
		return s
	}
	s.Min = floats.Min(scores)
	s.Max = floats.Max(scores)
	if len(scores) == 1 {
		s.Mean = scores[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(scores, nil)
	return s
}

// LogAttrs returns the stats as slog attributes.
func (s GenerationStats) LogAttrs() []any {
	return []any{
		"generation", s.Generation,
		"networks", s.Networks,
		"mean_fitness", round(s.Mean, 2),
		"min_fitness", round(s.Min, 5),
		"max_fitness", round(s.Max, 2),
		"stddev", round(s.StdDev, 3),
	}
}

// Record converts the stats to a CSV row.
func (s GenerationStats) Record() GenerationRecord {
	return GenerationRecord{
		Generation:  s.Generation,
		MeanFitness: Fixed3(s.Mean),
		MinFitness:  Fixed3(s.Min),
	}
}

// Log writes the stats at info level, followed by any extra attributes.
func (s GenerationStats) Log(logger *slog.Logger, extra ...any) {
	logger.Info("generation complete", append(s.LogAttrs(), extra...)...)
}

func round(v float64, prec int) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', prec, 64), 64)
	return r
}
