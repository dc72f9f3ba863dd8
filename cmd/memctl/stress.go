package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/memdebug/heap/gc"
	"github.com/joshuapare/memdebug/heap/guard"
	"github.com/joshuapare/memdebug/heap/verify"
	"github.com/joshuapare/memdebug/internal/logger"
)

var (
	stressWorkers int
	stressOps     int
	stressSeed    uint64
	stressArena   int
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressWorkers, "workers", 4, "Number of independent heap/allocator pairs")
	cmd.Flags().IntVar(&stressOps, "ops", 10000, "Random operations per engine per worker")
	cmd.Flags().Uint64Var(&stressSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&stressArena, "arena-size", 256*1024, "Arena size per engine in bytes")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Drive both engines with random operations in parallel",
		Long: `The stress command runs --workers independent workers. Each owns one heap
and one guard allocator and applies --ops random operations to each. The heap is
verified after every collection and the allocator at the end. The first failing
worker cancels the rest.

Example:
  memctl stress
  memctl stress --workers 8 --ops 100000 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context())
		},
	}
	return cmd
}

// workerResult summarizes one worker.
type workerResult struct {
	Worker      int           `json:"worker"`
	Heap        gc.Stats      `json:"heap"`
	Guard       guard.Stats   `json:"guard"`
	Collections int           `json:"collections"`
	Elapsed     time.Duration `json:"elapsed"`
}

func runStress(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if stressWorkers <= 0 || stressOps < 0 {
		return fmt.Errorf("invalid stress parameters: workers=%d ops=%d", stressWorkers, stressOps)
	}

	results := make([]workerResult, stressWorkers)
	g, ctx := errgroup.WithContext(ctx)
	for w := range stressWorkers {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(stressSeed, uint64(w)))
			res, err := stressWorker(ctx, w, rng)
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			results[w] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(results)
	}
	printStress(results)
	return nil
}

func stressWorker(ctx context.Context, id int, rng *rand.Rand) (workerResult, error) {
	start := time.Now()
	res := workerResult{Worker: id}

	hs, collections, err := stressHeap(ctx, rng)
	if err != nil {
		return res, err
	}
	gs, err := stressGuard(ctx, rng)
	if err != nil {
		return res, err
	}

	res.Heap = hs
	res.Guard = gs
	res.Collections = collections
	res.Elapsed = time.Since(start)
	logger.Debug("stress worker done", "worker", id, "elapsed", res.Elapsed)
	return res, nil
}

// stressHeap allocates, drops roots and collects at random. Dropped regions are never
// read again; rooted ones are checked for their fill byte after every collection.
func stressHeap(ctx context.Context, rng *rand.Rand) (gc.Stats, int, error) {
	h, err := gc.New(&gc.Options{ArenaSize: stressArena})
	if err != nil {
		return gc.Stats{}, 0, err
	}
	defer h.Close()

	type object struct {
		p    gc.Ptr
		fill byte
	}
	var live []object
	collections := 0

	for op := range stressOps {
		if op%1024 == 0 && ctx.Err() != nil {
			return gc.Stats{}, 0, ctx.Err()
		}

		switch n := rng.IntN(100); {
		case n < 60:
			p, err := h.Alloc(rng.IntN(512))
			if errors.Is(err, gc.ErrOutOfMemory) {
				continue
			}
			if err != nil {
				return gc.Stats{}, 0, err
			}
			fill := byte(rng.UintN(256))
			b := h.Bytes(p)
			for i := range b {
				b[i] = fill
			}
			h.Roots().Add(p)
			live = append(live, object{p: p, fill: fill})
		case n < 95:
			if len(live) == 0 {
				continue
			}
			i := rng.IntN(len(live))
			h.Roots().Remove(live[i].p)
			live = slices.Delete(live, i, i+1)
		default:
			h.Collect()
			collections++
			if err := verify.Heap(h.Snapshot()); err != nil {
				return gc.Stats{}, 0, err
			}
			for _, o := range live {
				b := h.Bytes(o.p)
				if b == nil {
					return gc.Stats{}, 0, fmt.Errorf("rooted region %#x was reclaimed", uintptr(o.p))
				}
				for i, v := range b {
					if v != o.fill {
						return gc.Stats{}, 0, fmt.Errorf("rooted region %#x byte %d changed", uintptr(o.p), i)
					}
				}
			}
		}
	}
	return h.Stats(), collections, nil
}

// stressGuard allocates and frees at random, filling every span completely so any
// off-by-one in the padding logic shows up as corruption.
func stressGuard(ctx context.Context, rng *rand.Rand) (guard.Stats, error) {
	a, err := guard.New(stressArena, &guard.Options{
		ChunkSizes:  guard.DefaultChunkSizes,
		PaddingSize: guard.DefaultPaddingSize,
		PaddingByte: guard.DefaultPaddingByte,
	})
	if err != nil {
		return guard.Stats{}, err
	}
	defer a.Close()

	var live []guard.Ptr
	for op := range stressOps {
		if op%1024 == 0 && ctx.Err() != nil {
			return guard.Stats{}, ctx.Err()
		}

		if rng.IntN(2) == 0 || len(live) == 0 {
			p, err := a.Alloc(rng.IntN(8000))
			if errors.Is(err, guard.ErrExhausted) {
				continue
			}
			if err != nil {
				return guard.Stats{}, err
			}
			b, err := a.Bytes(p)
			if err != nil {
				return guard.Stats{}, err
			}
			for i := range b {
				b[i] = 0xFF
			}
			live = append(live, p)
			continue
		}

		i := rng.IntN(len(live))
		if err := a.Free(live[i]); err != nil {
			return guard.Stats{}, err
		}
		live = slices.Delete(live, i, i+1)
	}
	if err := verify.Guard(a.Snapshot()); err != nil {
		return guard.Stats{}, err
	}
	return a.Stats(), nil
}

func printStress(results []workerResult) {
	p := message.NewPrinter(language.English)
	for _, r := range results {
		printInfo("%s", p.Sprintf("worker %d: %d allocs, %d collections, %d reclaimed, %d live bytes | guard %d allocs, %d frees, %d active (%v)\n",
			r.Worker,
			r.Heap.Allocs,
			r.Collections,
			r.Heap.Reclaimed,
			r.Heap.LiveBytes,
			r.Guard.Allocs,
			r.Guard.Frees,
			r.Guard.Active,
			r.Elapsed.Round(time.Millisecond)))
	}
}
