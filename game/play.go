// Package game drives simulated Battleship games to completion, either with
// a fixed baseline strategy or with a learned policy choosing each shot.
package game

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/salvo/board"
)

// NumStates is the one-hot width of a single cell in an observation.
const NumStates = 3

// ErrPolicy is returned when a policy produces unusable output.
var ErrPolicy = errors.New("bad policy output")

// State of a game in progress.
type State uint8

const (
	Playing State = iota
	Won
)

func (s State) String() string {
	if s == Won {
		return "won"
	}
	return "playing"
}

// StateOf reports whether b is still being played.
func StateOf(b *board.Board) State {
	if b.IsWon() {
		return Won
	}
	return Playing
}

// Policy scores every cell of a board from an observation. Higher scores are
// shot first. *neural.Network satisfies it.
type Policy interface {
	Forward(input []float64) ([]float64, error)
}

// Observe encodes b row-major, three values per cell: Unknown, Hit, Miss.
// dst is reused when it has the right length.
func Observe(b *board.Board, dst []float64) []float64 {
	rules := b.Rules()
	n := rules.Cells() * NumStates
	if len(dst) != n {
		dst = make([]float64, n)
	}
	i := 0
	for y := 0; y < rules.Height; y++ {
		for x := 0; x < rules.Width; x++ {
			dst[i], dst[i+1], dst[i+2] = 0, 0, 0
			switch b.PointState(x, y) {
			case board.Unknown:
				dst[i] = 1
			case board.Hit:
				dst[i+1] = 1
			case board.Miss:
				dst[i+2] = 1
			}
			i += NumStates
		}
	}
	return dst
}

// PlayAgent lets policy pick shots until the board is won and returns the
// number of shots fired. Each turn the unshot cell with the highest score is
// fired at; ties go to the earliest cell in row-major order.
func PlayAgent(b *board.Board, policy Policy) (int, error) {
	rules := b.Rules()
	cells := rules.Cells()
	obs := make([]float64, cells*NumStates)

	for StateOf(b) == Playing {
		obs = Observe(b, obs)
		scores, err := policy.Forward(obs)
		if err != nil {
			return b.ShotCount(), err
		}
		if len(scores) != cells {
			return b.ShotCount(), fmt.Errorf("%w: %d scores for %d cells", ErrPolicy, len(scores), cells)
		}

		best := -1
		for i, s := range scores {
			x, y := i%rules.Width, i/rules.Width
			if b.ShotAt(x, y) {
				continue
			}
			if best < 0 || s > scores[best] {
				best = i
			}
		}
		if best < 0 {
			// Every cell shot and still not won.
			return b.ShotCount(), fmt.Errorf("%w: %d shots without winning", board.ErrInvariant, b.ShotCount())
		}
		b.Shoot(best%rules.Width, best/rules.Width)
	}
	return b.ShotCount(), nil
}

// PlayRowMajor shoots every cell in row-major order and returns the shots
// needed to win.
func PlayRowMajor(b *board.Board) int {
	rules := b.Rules()
	for y := 0; y < rules.Height && !b.IsWon(); y++ {
		for x := 0; x < rules.Width && !b.IsWon(); x++ {
			b.Shoot(x, y)
		}
	}
	return b.ShotCount()
}

// PlayRandom shoots cells in a uniformly shuffled order until the board is
// won.
func PlayRandom(b *board.Board, rng *rand.Rand) int {
	pts := b.Rules().Points()
	rng.Shuffle(len(pts), func(i, j int) { pts[i], pts[j] = pts[j], pts[i] })
	for _, p := range pts {
		if b.IsWon() {
			break
		}
		b.Shoot(p.X, p.Y)
	}
	return b.ShotCount()
}

// Play builds a fresh random board and plays it out with policy.
func Play(rules board.RuleSet, placer *board.Placer, rng *rand.Rand, policy Policy) (int, error) {
	b, err := board.New(rules, placer, rng)
	if err != nil {
		return 0, err
	}
	return PlayAgent(b, policy)
}
