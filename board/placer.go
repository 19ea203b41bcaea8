package board

import "sync"

type candidateKey struct {
	length int
	rules  string
}

// Placer generates ship placements. Candidate sets depend only on the ship
// length and the rule set, so they are computed once and shared by every
// board built from the same Placer. Safe for concurrent use.
type Placer struct {
	mu    sync.RWMutex
	cache map[candidateKey][]Placement
}

// NewPlacer creates an empty placer.
func NewPlacer() *Placer {
	return &Placer{cache: make(map[candidateKey][]Placement)}
}

// Candidates returns every in-bounds placement of the given length,
// horizontal ones first, ignoring occupancy. The returned slice is shared
// and must not be modified.
func (pl *Placer) Candidates(length int, rules RuleSet) []Placement {
	key := candidateKey{length: length, rules: rules.Key()}

	pl.mu.RLock()
	cands, ok := pl.cache[key]
	pl.mu.RUnlock()
	if ok {
		return cands
	}

	cands = enumerate(length, rules)

	pl.mu.Lock()
	// Another goroutine may have won the race; keep the first entry.
	if existing, ok := pl.cache[key]; ok {
		cands = existing
	} else {
		pl.cache[key] = cands
	}
	pl.mu.Unlock()
	return cands
}

// Len reports how many candidate sets are cached.
func (pl *Placer) Len() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return len(pl.cache)
}

func enumerate(length int, rules RuleSet) []Placement {
	if length <= 0 {
		return nil
	}
	var out []Placement
	for y := 0; y < rules.Height; y++ {
		for x := 0; x+length-1 < rules.Width; x++ {
			out = append(out, mustPlacement(Point{x, y}, Point{x + length - 1, y}))
		}
	}
	if length == 1 {
		return out
	}
	for x := 0; x < rules.Width; x++ {
		for y := 0; y+length-1 < rules.Height; y++ {
			out = append(out, mustPlacement(Point{x, y}, Point{x, y + length - 1}))
		}
	}
	return out
}

// Generate returns the candidates of the given length that conflict with
// none of the committed ships.
func (pl *Placer) Generate(length int, rules RuleSet, committed []Ship) []Placement {
	cands := pl.Candidates(length, rules)
	if len(committed) == 0 {
		out := make([]Placement, len(cands))
		copy(out, cands)
		return out
	}
	out := make([]Placement, 0, len(cands))
	for _, c := range cands {
		free := true
		for _, s := range committed {
			if c.Conflicts(s.Placement) {
				free = false
				break
			}
		}
		if free {
			out = append(out, c)
		}
	}
	return out
}
