// Package evolve trains a population of networks to play Battleship with a
// mutation-only genetic algorithm: evaluate, keep the best, refill with
// mutated clones, repeat.
package evolve

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/salvo/config"
)

// ErrParams is returned for out-of-range training parameters.
var ErrParams = errors.New("invalid training parameters")

// Params are the genetic algorithm settings for one generation.
type Params struct {
	TargetPoolSize  int
	Attempts        int // games averaged per fitness sample
	MutationEpsilon float64
	MutationRate    float64
	SurvivalRate    float64
}

// ParamsFrom converts the training section of a config.
func ParamsFrom(tc config.TrainingConfig) Params {
	return Params{
		TargetPoolSize:  tc.TargetPoolSize,
		Attempts:        tc.NetworkAttempts,
		MutationEpsilon: tc.MutationEpsilon,
		MutationRate:    tc.MutationRate,
		SurvivalRate:    tc.SurvivalRate,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.TargetPoolSize <= 0:
		return fmt.Errorf("%w: target pool size %d", ErrParams, p.TargetPoolSize)
	case p.Attempts <= 0:
		return fmt.Errorf("%w: attempts %d", ErrParams, p.Attempts)
	case p.MutationEpsilon < 0:
		return fmt.Errorf("%w: mutation epsilon %v", ErrParams, p.MutationEpsilon)
	case p.MutationRate < 0 || p.MutationRate > 1:
		return fmt.Errorf("%w: mutation rate %v", ErrParams, p.MutationRate)
	case p.SurvivalRate <= 0 || p.SurvivalRate > 1:
		return fmt.Errorf("%w: survival rate %v", ErrParams, p.SurvivalRate)
	}
	return nil
}

// Survivors is how many networks one generation keeps out of n evaluated.
// It is ceil(SurvivalRate * TargetPoolSize), clamped to [1, n].
func (p Params) Survivors(n int) int {
	// Tolerance keeps products like 0.7*10 = 7.000000000000001 at 7.
	k := int(math.Ceil(p.SurvivalRate*float64(p.TargetPoolSize) - 1e-9))
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}
	return k
}
