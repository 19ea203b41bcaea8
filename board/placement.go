package board

import "fmt"

// Orientation of a placement on the board.
type Orientation uint8

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Placement is an axis-aligned run of cells with Start <= End.
// A single-cell placement is Horizontal.
type Placement struct {
	Start       Point
	End         Point
	Orientation Orientation
}

// NewPlacement builds a placement between two endpoints in either order.
func NewPlacement(start, end Point) (Placement, error) {
	if start.X != end.X && start.Y != end.Y {
		return Placement{}, fmt.Errorf("%w: %v -> %v", ErrDiagonal, start, end)
	}
	if end.less(start) {
		start, end = end, start
	}
	o := Horizontal
	if start.X == end.X && start.Y != end.Y {
		o = Vertical
	}
	return Placement{Start: start, End: end, Orientation: o}, nil
}

// mustPlacement is for endpoints that are aligned by construction.
func mustPlacement(start, end Point) Placement {
	p, err := NewPlacement(start, end)
	if err != nil {
		panic(err)
	}
	return p
}

// Len is the number of cells covered.
func (p Placement) Len() int {
	return (p.End.X - p.Start.X) + (p.End.Y - p.Start.Y) + 1
}

// Cells lists the covered cells from Start to End.
func (p Placement) Cells() []Point {
	cells := make([]Point, 0, p.Len())
	if p.Orientation == Vertical {
		for y := p.Start.Y; y <= p.End.Y; y++ {
			cells = append(cells, Point{X: p.Start.X, Y: y})
		}
		return cells
	}
	for x := p.Start.X; x <= p.End.X; x++ {
		cells = append(cells, Point{X: x, Y: p.Start.Y})
	}
	return cells
}

// Contains reports whether pt is one of the covered cells.
func (p Placement) Contains(pt Point) bool {
	return pt.X >= p.Start.X && pt.X <= p.End.X &&
		pt.Y >= p.Start.Y && pt.Y <= p.End.Y
}

// Conflicts reports whether p and q share at least one cell.
//
// Parallel placements overlap only on a shared line with overlapping ranges.
// Perpendicular placements overlap only at their crossing point, which must
// lie inside both ranges. The result always equals cellsIntersect(p, q).
func (p Placement) Conflicts(q Placement) bool {
	if p.Orientation == q.Orientation {
		if p.Orientation == Horizontal {
			return p.Start.Y == q.Start.Y && overlaps(p.Start.X, p.End.X, q.Start.X, q.End.X)
		}
		return p.Start.X == q.Start.X && overlaps(p.Start.Y, p.End.Y, q.Start.Y, q.End.Y)
	}
	h, v := p, q
	if h.Orientation == Vertical {
		h, v = q, p
	}
	cross := Point{X: v.Start.X, Y: h.Start.Y}
	return h.Contains(cross) && v.Contains(cross)
}

func overlaps(a0, a1, b0, b1 int) bool {
	return a0 <= b1 && b0 <= a1
}

// cellsIntersect is the direct set-intersection test Conflicts must agree with.
func cellsIntersect(p, q Placement) bool {
	seen := make(map[Point]struct{}, p.Len())
	for _, c := range p.Cells() {
		seen[c] = struct{}{}
	}
	for _, c := range q.Cells() {
		if _, ok := seen[c]; ok {
			return true
		}
	}
	return false
}

func (p Placement) String() string {
	return fmt.Sprintf("%v -> %v", p.Start, p.End)
}

// Ship is a named placement.
type Ship struct {
	Name      string
	Placement Placement
}

// Len delegates to the placement.
func (s Ship) Len() int {
	return s.Placement.Len()
}
