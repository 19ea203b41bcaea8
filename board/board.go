package board

import (
	"fmt"
	"math/rand"
)

// PointState is the externally visible state of a cell.
type PointState uint8

const (
	Unknown PointState = iota
	Miss
	Hit
)

func (s PointState) String() string {
	switch s {
	case Miss:
		return "miss"
	case Hit:
		return "hit"
	default:
		return "unknown"
	}
}

// Board is a single game: ships placed once at construction plus the
// ordered shot history. Not safe for concurrent use; each simulated game
// owns its board.
type Board struct {
	rules    RuleSet
	ships    []Ship
	occupied []bool // row-major
	nOcc     int
	shotHits []int // shot count per cell, row-major
	shots    []Point
	remain   int // occupied cells not yet shot
}

// New places every ship of rules in order, choosing uniformly among the
// placements that do not collide with ships already placed.
func New(rules RuleSet, placer *Placer, rng *rand.Rand) (*Board, error) {
	if err := rules.Check(); err != nil {
		return nil, err
	}
	ships := make([]Ship, 0, len(rules.Ships))
	for _, spec := range rules.Ships {
		options := placer.Generate(spec.Length, rules, ships)
		if len(options) == 0 {
			return nil, fmt.Errorf("%w: no room for %s (length %d) on %dx%d board",
				ErrUnsatisfiable, spec.Name, spec.Length, rules.Width, rules.Height)
		}
		ships = append(ships, Ship{Name: spec.Name, Placement: options[rng.Intn(len(options))]})
	}
	return build(rules, ships), nil
}

// NewWithShips builds a board from explicit ships and validates it.
func NewWithShips(rules RuleSet, ships []Ship) (*Board, error) {
	if err := rules.Check(); err != nil {
		return nil, err
	}
	for _, s := range ships {
		if !rules.Contains(s.Placement.Start) || !rules.Contains(s.Placement.End) {
			return nil, fmt.Errorf("%w: ship %s at %v is off the board", ErrInvariant, s.Name, s.Placement)
		}
	}
	b := build(rules, append([]Ship(nil), ships...))
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// build assumes every ship cell is on the board.
func build(rules RuleSet, ships []Ship) *Board {
	b := &Board{
		rules:    rules,
		ships:    ships,
		occupied: make([]bool, rules.Cells()),
		shotHits: make([]int, rules.Cells()),
		shots:    make([]Point, 0, rules.Cells()),
	}
	for _, s := range ships {
		for _, c := range s.Placement.Cells() {
			i := rules.Index(c)
			if !b.occupied[i] {
				b.occupied[i] = true
				b.nOcc++
			}
		}
	}
	b.remain = b.nOcc
	return b
}

// Rules returns the rule set the board was built from.
func (b *Board) Rules() RuleSet { return b.rules }

// Ships returns a copy of the placed ships in rule-set order.
func (b *Board) Ships() []Ship {
	return append([]Ship(nil), b.ships...)
}

// Shots returns a copy of the shot history.
func (b *Board) Shots() []Point {
	return append([]Point(nil), b.shots...)
}

// ShotCount is the number of shots fired, duplicates included.
func (b *Board) ShotCount() int { return len(b.shots) }

// OccupiedCount is the number of distinct cells covered by ships.
func (b *Board) OccupiedCount() int { return b.nOcc }

// Shoot records a shot at (x, y). Repeated shots are recorded again.
// Shots off the board are recorded but never hit anything.
func (b *Board) Shoot(x, y int) {
	p := Point{X: x, Y: y}
	b.shots = append(b.shots, p)
	if !b.rules.Contains(p) {
		return
	}
	i := b.rules.Index(p)
	b.shotHits[i]++
	if b.shotHits[i] == 1 && b.occupied[i] {
		b.remain--
	}
}

// ShotAt reports whether (x, y) has been shot at least once.
func (b *Board) ShotAt(x, y int) bool {
	p := Point{X: x, Y: y}
	return b.rules.Contains(p) && b.shotHits[b.rules.Index(p)] > 0
}

// Occupied reports whether a ship covers (x, y).
func (b *Board) Occupied(x, y int) bool {
	p := Point{X: x, Y: y}
	return b.rules.Contains(p) && b.occupied[b.rules.Index(p)]
}

// PointState derives the visible state of (x, y).
func (b *Board) PointState(x, y int) PointState {
	if !b.ShotAt(x, y) {
		return Unknown
	}
	if b.Occupied(x, y) {
		return Hit
	}
	return Miss
}

// IsWon reports whether every occupied cell has been shot.
func (b *Board) IsWon() bool {
	return b.remain == 0
}

// Validate re-derives the board invariants from the placed ships. A failure
// means a bug in placement, never bad input.
func (b *Board) Validate() error {
	expected := b.rules.TotalLength()
	placed := 0
	for _, s := range b.ships {
		placed += s.Len()
	}
	if expected != placed {
		return fmt.Errorf("%w: configured ship length %d, placed %d", ErrInvariant, expected, placed)
	}

	cells := make(map[Point]struct{}, placed)
	for _, s := range b.ships {
		for _, c := range s.Placement.Cells() {
			if !b.rules.Contains(c) {
				return fmt.Errorf("%w: %s occupies %v outside %dx%d",
					ErrInvariant, s.Name, c, b.rules.Width, b.rules.Height)
			}
			cells[c] = struct{}{}
		}
	}
	if len(cells) != placed {
		return fmt.Errorf("%w: %d occupied cells for total ship length %d (ships overlap)",
			ErrInvariant, len(cells), placed)
	}
	if b.nOcc != len(cells) {
		return fmt.Errorf("%w: occupancy grid holds %d cells, ships cover %d", ErrInvariant, b.nOcc, len(cells))
	}
	return nil
}
