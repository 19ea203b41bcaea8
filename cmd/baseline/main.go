// Package main plays baseline Battleship games (row-major sweep or random
// shots) in parallel batches and reports shots to win and time per game.
// It is a profiling harness for the board engine and a yardstick for
// trained networks.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/salvo/board"
	"github.com/pthm-cable/salvo/config"
	"github.com/pthm-cable/salvo/game"
)

const warmupGames = 10

type strategy func(b *board.Board, rng *rand.Rand) int

var strategies = map[string]strategy{
	"rowmajor": func(b *board.Board, _ *rand.Rand) int { return game.PlayRowMajor(b) },
	"random":   game.PlayRandom,
}

// batchResult holds per-game measurements for one batch.
type batchResult struct {
	shots []float64
	ms    []float64
}

func main() {
	configPath := flag.String("config", "", "Config YAML for the rule set (empty = standard rules)")
	games := flag.Int("games", 10000, "Games per batch")
	batches := flag.Int("batches", 10, "Number of batches")
	strategyName := flag.String("strategy", "rowmajor", "Shot strategy: rowmajor or random")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	show := flag.Bool("show", false, "Print one finished board with ships revealed")
	flag.Parse()

	play, ok := strategies[*strategyName]
	if !ok {
		log.Fatalf("unknown strategy %q", *strategyName)
	}
	if *games <= 0 || *batches <= 0 {
		log.Fatal("--games and --batches must be positive")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	rules := cfg.RuleSet()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))
	placer := board.NewPlacer()

	// Warm the placement cache.
	for i := 0; i < warmupGames; i++ {
		b, err := board.New(rules, placer, rng)
		if err != nil {
			log.Fatalf("failed to build board: %v", err)
		}
		play(b, rng)
		if *show && i == 0 {
			fmt.Print(b.Render(true))
			fmt.Printf("won in %d shots\n\n", b.ShotCount())
		}
	}

	fmt.Printf("strategy=%s games=%d batches=%d seed=%d workers=%d placements=%d\n",
		*strategyName, *games, *batches, rngSeed, runtime.GOMAXPROCS(0), placer.Len())

	start := time.Now()
	var allShots []float64
	for i := 0; i < *batches; i++ {
		res, err := runBatch(rules, placer, play, *games, rng)
		if err != nil {
			log.Fatalf("batch %d: %v", i+1, err)
		}
		allShots = append(allShots, res.shots...)
		fmt.Printf("batch %d: mean shots %.3f, mean %.4f ms/game\n",
			i+1, stat.Mean(res.shots, nil), stat.Mean(res.ms, nil))
	}

	mean, std := stat.MeanStdDev(allShots, nil)
	fmt.Printf("overall: %d games, mean shots %.3f (stddev %.3f), %s\n",
		len(allShots), mean, std, time.Since(start).Round(time.Millisecond))
}

// runBatch plays n games spread across GOMAXPROCS workers. Each worker draws
// from its own generator seeded from rng.
func runBatch(rules board.RuleSet, placer *board.Placer, play strategy, n int, rng *rand.Rand) (batchResult, error) {
	res := batchResult{shots: make([]float64, n), ms: make([]float64, n)}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		lastErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int, s int64) {
			defer wg.Done()
			local := rand.New(rand.NewSource(s))
			for i := w; i < n; i += workers {
				t0 := time.Now()
				b, err := board.New(rules, placer, local)
				if err != nil {
					mu.Lock()
					lastErr = err
					mu.Unlock()
					return
				}
				res.shots[i] = float64(play(b, local))
				res.ms[i] = float64(time.Since(t0).Nanoseconds()) / 1e6
			}
		}(w, rng.Int63())
	}
	wg.Wait()
	return res, lastErr
}
