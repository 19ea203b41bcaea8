package board

import (
	"errors"
	"sync"
	"testing"
)

func TestPointEquality(t *testing.T) {
	for _, p := range []Point{{1, 1}, {2, 1}, {2, 5}, {-2, 5}, {-2, 0}} {
		q := Point{X: p.X, Y: p.Y}
		if p != q {
			t.Errorf("%v != %v", p, q)
		}
		m := map[Point]bool{p: true}
		if !m[q] {
			t.Errorf("map lookup of %v failed", q)
		}
	}
}

func TestPlacementContains(t *testing.T) {
	tests := []struct {
		start, end, pt Point
		want           bool
	}{
		{Point{0, 0}, Point{0, 5}, Point{0, 3}, true},
		{Point{0, 0}, Point{0, 5}, Point{0, 5}, true},
		{Point{0, 0}, Point{0, 5}, Point{0, 0}, true},
		{Point{0, 0}, Point{0, 5}, Point{0, 6}, false},
		{Point{1, 0}, Point{2, 0}, Point{0, 0}, false},
		{Point{1, 0}, Point{2, 0}, Point{0, 1}, false},
		{Point{1, 0}, Point{2, 0}, Point{0, 2}, false},
		{Point{1, 0}, Point{2, 0}, Point{0, 3}, false},
		{Point{1, 1}, Point{2, 1}, Point{0, 3}, false},
		{Point{1, 1}, Point{2, 1}, Point{1, 3}, false},
		{Point{1, 1}, Point{2, 1}, Point{1, 1}, true},
		{Point{1, 1}, Point{2, 1}, Point{2, 1}, true},
		{Point{1, 1}, Point{2, 1}, Point{1, 2}, false},
		{Point{1, 1}, Point{2, 1}, Point{0, 0}, false},
		{Point{1, 1}, Point{2, 1}, Point{1, 0}, false},
		{Point{1, 1}, Point{2, 1}, Point{0, 1}, false},
		{Point{1, 1}, Point{2, 1}, Point{2, 2}, false},
		{Point{1, 1}, Point{2, 1}, Point{3, 1}, false},
	}
	for _, tt := range tests {
		p, err := NewPlacement(tt.start, tt.end)
		if err != nil {
			t.Fatalf("NewPlacement(%v, %v): %v", tt.start, tt.end, err)
		}
		if got := p.Contains(tt.pt); got != tt.want {
			t.Errorf("%v.Contains(%v) = %v, want %v", p, tt.pt, got, tt.want)
		}
	}
}

func TestPlacementOrientation(t *testing.T) {
	tests := []struct {
		start, end Point
		want       Orientation
	}{
		{Point{0, 0}, Point{1, 0}, Horizontal},
		{Point{0, 0}, Point{10, 0}, Horizontal},
		{Point{0, 0}, Point{0, 1}, Vertical},
		{Point{0, 0}, Point{0, 10}, Vertical},
		{Point{1, 5}, Point{1, 10}, Vertical},
		{Point{1, 5}, Point{10, 5}, Horizontal},
		{Point{3, 3}, Point{3, 3}, Horizontal},
	}
	for _, tt := range tests {
		p, err := NewPlacement(tt.start, tt.end)
		if err != nil {
			t.Fatalf("NewPlacement(%v, %v): %v", tt.start, tt.end, err)
		}
		if p.Orientation != tt.want {
			t.Errorf("%v orientation = %v, want %v", p, p.Orientation, tt.want)
		}
	}
}

func TestNewPlacementNormalizes(t *testing.T) {
	p, err := NewPlacement(Point{4, 7}, Point{4, 3})
	if err != nil {
		t.Fatal(err)
	}
	if p.Start != (Point{4, 3}) || p.End != (Point{4, 7}) {
		t.Errorf("got %v, want (4, 3) -> (4, 7)", p)
	}
	if p.Len() != 5 {
		t.Errorf("Len = %d, want 5", p.Len())
	}
	cells := p.Cells()
	if len(cells) != 5 || cells[0] != (Point{4, 3}) || cells[4] != (Point{4, 7}) {
		t.Errorf("Cells = %v", cells)
	}
}

func TestNewPlacementRejectsDiagonal(t *testing.T) {
	_, err := NewPlacement(Point{0, 0}, Point{2, 2})
	if !errors.Is(err, ErrDiagonal) {
		t.Fatalf("err = %v, want ErrDiagonal", err)
	}
}

func TestPlacementConflicts(t *testing.T) {
	tests := []struct {
		name   string
		a0, a1 Point
		b0, b1 Point
		want   bool
	}{
		{"cross at origin", Point{0, 0}, Point{9, 0}, Point{0, 0}, Point{0, 9}, true},
		{"perpendicular miss", Point{1, 0}, Point{9, 0}, Point{0, 0}, Point{0, 9}, false},
		{"same row overlap", Point{0, 0}, Point{9, 0}, Point{1, 0}, Point{9, 0}, true},
		{"different rows", Point{5, 5}, Point{6, 5}, Point{1, 0}, Point{9, 0}, false},
		{"perpendicular short", Point{5, 5}, Point{6, 5}, Point{1, 0}, Point{1, 5}, false},
		{"crossing line outside range", Point{2, 4}, Point{4, 4}, Point{3, 0}, Point{3, 3}, false},
		{"T junction", Point{2, 4}, Point{4, 4}, Point{3, 0}, Point{3, 4}, true},
		{"touching ends", Point{0, 2}, Point{2, 2}, Point{3, 2}, Point{5, 2}, false},
		{"shared end", Point{0, 2}, Point{3, 2}, Point{3, 2}, Point{5, 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustPlacement(tt.a0, tt.a1)
			b := mustPlacement(tt.b0, tt.b1)
			if got := a.Conflicts(b); got != tt.want {
				t.Errorf("%v.Conflicts(%v) = %v, want %v", a, b, got, tt.want)
			}
			if got := b.Conflicts(a); got != tt.want {
				t.Errorf("%v.Conflicts(%v) = %v, want %v", b, a, got, tt.want)
			}
		})
	}
}

// Every pair of standard-board candidates, across all length combinations.
func TestConflictsMatchesCellIntersectionExhaustive(t *testing.T) {
	rules := Standard()
	pl := NewPlacer()
	for l1 := 1; l1 <= 5; l1++ {
		for l2 := 1; l2 <= 5; l2++ {
			for _, a := range pl.Candidates(l1, rules) {
				for _, b := range pl.Candidates(l2, rules) {
					want := cellsIntersect(a, b)
					if got := a.Conflicts(b); got != want {
						t.Fatalf("%v.Conflicts(%v) = %v, cells intersect = %v", a, b, got, want)
					}
				}
			}
		}
	}
}

func TestCandidates(t *testing.T) {
	rules := Standard()
	pl := NewPlacer()
	tests := []struct {
		length int
		want   int
	}{
		{1, 100},
		{2, 180},
		{3, 160},
		{4, 140},
		{5, 120},
		{10, 20},
		{11, 0},
	}
	for _, tt := range tests {
		cands := pl.Candidates(tt.length, rules)
		if len(cands) != tt.want {
			t.Errorf("length %d: %d candidates, want %d", tt.length, len(cands), tt.want)
		}
		for _, c := range cands {
			if c.Len() != tt.length {
				t.Errorf("candidate %v has length %d, want %d", c, c.Len(), tt.length)
			}
			if !rules.Contains(c.Start) || !rules.Contains(c.End) {
				t.Errorf("candidate %v is off the board", c)
			}
		}
	}
}

func TestCandidatesCachedByValue(t *testing.T) {
	pl := NewPlacer()
	a := pl.Candidates(3, Standard())
	b := pl.Candidates(3, Standard())
	if &a[0] != &b[0] {
		t.Error("equal rule sets did not share a cached candidate set")
	}
	if pl.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", pl.Len())
	}

	other := Standard()
	other.Width = 8
	pl.Candidates(3, other)
	if pl.Len() != 2 {
		t.Errorf("cache holds %d entries, want 2", pl.Len())
	}
}

func TestGenerateAvoidsCommittedShips(t *testing.T) {
	rules := Standard()
	pl := NewPlacer()
	committed := []Ship{
		{Name: "Carrier", Placement: mustPlacement(Point{0, 0}, Point{4, 0})},
		{Name: "Battleship", Placement: mustPlacement(Point{9, 0}, Point{9, 3})},
	}
	got := pl.Generate(3, rules, committed)
	if len(got) == 0 {
		t.Fatal("no placements generated")
	}
	for _, p := range got {
		for _, s := range committed {
			if cellsIntersect(p, s.Placement) {
				t.Errorf("%v collides with %s at %v", p, s.Name, s.Placement)
			}
		}
	}
	all := pl.Candidates(3, rules)
	if len(got) >= len(all) {
		t.Errorf("filtering removed nothing: %d of %d", len(got), len(all))
	}
}

func TestPlacerConcurrentAccess(t *testing.T) {
	pl := NewPlacer()
	rules := Standard()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for l := 1; l <= 5; l++ {
				if len(pl.Candidates(l+i%2, rules)) == 0 {
					t.Errorf("empty candidates for length %d", l+i%2)
				}
			}
		}(i)
	}
	wg.Wait()
	if pl.Len() != 6 {
		t.Errorf("cache holds %d entries, want 6", pl.Len())
	}
}

func TestRuleSetKey(t *testing.T) {
	a, b := Standard(), Standard()
	if a.Key() != b.Key() || !a.Equal(b) {
		t.Error("identical rule sets differ")
	}
	b.Ships[4].Name = "Patrol"
	if a.Key() == b.Key() || a.Equal(b) {
		t.Error("renamed ship did not change key")
	}
	// Names containing separators must not collide.
	c := RuleSet{Width: 1, Height: 1, Ships: []ShipSpec{{Name: "a|\"b\":1", Length: 1}}}
	d := RuleSet{Width: 1, Height: 1, Ships: []ShipSpec{{Name: "a", Length: 1}, {Name: "b", Length: 1}}}
	if c.Key() == d.Key() {
		t.Error("distinct rule sets share a key")
	}
}

func TestRuleSetPoints(t *testing.T) {
	rules := Standard()
	pts := rules.Points()
	if len(pts) != 100 {
		t.Fatalf("got %d points, want 100", len(pts))
	}
	seen := make(map[Point]bool)
	for i, p := range pts {
		if rules.Index(p) != i {
			t.Errorf("point %v at %d has index %d", p, i, rules.Index(p))
		}
		seen[p] = true
	}
	if len(seen) != 100 {
		t.Errorf("%d distinct points, want 100", len(seen))
	}
}
