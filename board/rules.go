// Package board implements the Battleship board: rule sets, ship placement
// generation, shot tracking and invariant checking.
package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors returned by the board package.
var (
	ErrInvalidRules  = errors.New("invalid rule set")
	ErrUnsatisfiable = errors.New("rule set cannot be satisfied")
	ErrInvariant     = errors.New("board invariant violated")
	ErrDiagonal      = errors.New("placement is diagonal")
)

// Point is a board-local cell coordinate, 0-based.
type Point struct {
	X, Y int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// less orders points lexicographically by X then Y.
func (p Point) less(q Point) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	return p.Y < q.Y
}

// ShipSpec names a ship and its length.
type ShipSpec struct {
	Name   string `yaml:"name"`
	Length int    `yaml:"length"`
}

// RuleSet describes the board dimensions and the ordered ships to place.
// Treat it as immutable once built.
type RuleSet struct {
	Ships  []ShipSpec
	Width  int
	Height int
}

// Standard returns the classic 10x10 rule set with five ships.
func Standard() RuleSet {
	return RuleSet{
		Ships: []ShipSpec{
			{Name: "Carrier", Length: 5},
			{Name: "Battleship", Length: 4},
			{Name: "Destroyer", Length: 3},
			{Name: "Submarine", Length: 3},
			{Name: "Patrol Boat", Length: 2},
		},
		Width:  10,
		Height: 10,
	}
}

// Check reports whether the rule set is well formed. It does not prove that
// the ships fit; that is only discovered while placing them.
func (r RuleSet) Check() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: board %dx%d", ErrInvalidRules, r.Width, r.Height)
	}
	if len(r.Ships) == 0 {
		return fmt.Errorf("%w: no ships", ErrInvalidRules)
	}
	for _, s := range r.Ships {
		if s.Length <= 0 {
			return fmt.Errorf("%w: ship %q has length %d", ErrInvalidRules, s.Name, s.Length)
		}
	}
	return nil
}

// Key returns a canonical encoding of the rule set. Two rule sets have the
// same key iff they are structurally equal.
func (r RuleSet) Key() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(r.Width))
	sb.WriteByte('x')
	sb.WriteString(strconv.Itoa(r.Height))
	for _, s := range r.Ships {
		sb.WriteByte('|')
		sb.WriteString(strconv.Quote(s.Name))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(s.Length))
	}
	return sb.String()
}

// Equal reports structural equality.
func (r RuleSet) Equal(o RuleSet) bool {
	if r.Width != o.Width || r.Height != o.Height || len(r.Ships) != len(o.Ships) {
		return false
	}
	for i := range r.Ships {
		if r.Ships[i] != o.Ships[i] {
			return false
		}
	}
	return true
}

// TotalLength is the sum of all configured ship lengths.
func (r RuleSet) TotalLength() int {
	total := 0
	for _, s := range r.Ships {
		total += s.Length
	}
	return total
}

// Cells is the number of cells on the board.
func (r RuleSet) Cells() int {
	return r.Width * r.Height
}

// Contains reports whether p lies on the board.
func (r RuleSet) Contains(p Point) bool {
	return p.X >= 0 && p.X < r.Width && p.Y >= 0 && p.Y < r.Height
}

// Index maps p to its row-major cell index.
func (r RuleSet) Index(p Point) int {
	return p.Y*r.Width + p.X
}

// Points returns every board point in row-major order.
func (r RuleSet) Points() []Point {
	pts := make([]Point, 0, r.Cells())
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			pts = append(pts, Point{X: x, Y: y})
		}
	}
	return pts
}
