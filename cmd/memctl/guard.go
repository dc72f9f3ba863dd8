package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memdebug/heap/guard"
	"github.com/joshuapare/memdebug/heap/verify"
)

var (
	guardSize    int
	guardAllocs  int
	guardFrees   int
	guardCorrupt string
)

// Fault kinds accepted by --corrupt.
var corruptKinds = []string{"none", "before", "after", "double", "unknown"}

// guardOnFatal handles fatal allocator errors. Tests replace it.
var guardOnFatal = func(err error) {
	printError("%v\n", err)
	os.Exit(1)
}

func init() {
	guardCmd := &cobra.Command{
		Use:   "guard",
		Short: "Guarded debug allocator commands",
	}

	demo := newGuardDemoCmd()
	demo.Flags().IntVar(&guardSize, "size", 1<<20, "Arena size in bytes")
	demo.Flags().IntVar(&guardAllocs, "allocs", 10, "Number of allocations")
	demo.Flags().IntVar(&guardFrees, "frees", 5, "Number of allocations to free again")
	demo.Flags().StringVar(&guardCorrupt, "corrupt", "none", "Fault to inject: none, before, after, double, unknown")
	guardCmd.AddCommand(demo)

	rootCmd.AddCommand(guardCmd)
}

func newGuardDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Allocate, free, optionally inject a fault and report leaks",
		Long: `The demo command performs --allocs allocations of varying sizes, frees the
first --frees of them and reports every chunk still in use. With --corrupt it
first injects a fault into the allocator: an underrun, an overrun, a double
free or a free of an unknown address. Detected faults are fatal and exit with
status 1.

Example:
  memctl guard demo
  memctl guard demo --allocs 100 --frees 90
  memctl guard demo --corrupt after`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuardDemo()
		},
	}
	return cmd
}

// guardDemoResult is the JSON form of the demo.
type guardDemoResult struct {
	Stats  guard.Stats       `json:"stats"`
	Active []guard.ChunkInfo `json:"active"`
}

func runGuardDemo() error {
	if !slices.Contains(corruptKinds, guardCorrupt) {
		return fmt.Errorf("unknown fault %q (want one of %v)", guardCorrupt, corruptKinds)
	}
	if guardFrees > guardAllocs {
		return fmt.Errorf("cannot free %d of %d allocations", guardFrees, guardAllocs)
	}

	a, err := guard.New(guardSize, &guard.Options{
		ChunkSizes:  guard.DefaultChunkSizes,
		PaddingSize: guard.DefaultPaddingSize,
		PaddingByte: guard.DefaultPaddingByte,
		OnFatal:     guardOnFatal,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	ptrs := make([]guard.Ptr, 0, guardAllocs)
	for i := range guardAllocs {
		p, err := a.Alloc(demoSize(i))
		if err != nil {
			return fmt.Errorf("allocation %d: %w", i, err)
		}
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs[:guardFrees] {
		if err := a.Free(p); err != nil {
			return err
		}
	}
	printVerbose("Allocated %d chunks, freed %d\n", guardAllocs, guardFrees)

	if err := injectFault(a, ptrs); err != nil {
		return err
	}
	if err := verify.Guard(a.Snapshot()); err != nil {
		return fmt.Errorf("allocator invalid: %w", err)
	}

	if jsonOut {
		return printJSON(guardDemoResult{Stats: a.Stats(), Active: a.Active()})
	}
	n := a.ReportActive(reportWriter())
	printInfo("%d of %d allocations never freed\n", n, guardAllocs)
	return nil
}

// demoSize cycles through sizes that land in every size class.
func demoSize(i int) int {
	sizes := []int{24, 100, 500, 700, 1200, 3000, 6000}
	return sizes[i%len(sizes)]
}

// injectFault damages the allocator according to --corrupt and frees the damaged
// allocation so the allocator sees it.
func injectFault(a *guard.Allocator, ptrs []guard.Ptr) error {
	if guardCorrupt == "none" {
		return nil
	}

	live := ptrs[guardFrees:]
	var victim guard.Ptr
	switch guardCorrupt {
	case "before", "after":
		if len(live) == 0 {
			return fmt.Errorf("--corrupt %s needs at least one live allocation", guardCorrupt)
		}
		victim = live[0]
	case "double":
		if guardFrees == 0 {
			return fmt.Errorf("--corrupt double needs at least one freed allocation")
		}
		victim = ptrs[0]
	case "unknown":
		if len(ptrs) == 0 {
			return fmt.Errorf("--corrupt unknown needs at least one allocation")
		}
		victim = ptrs[0] + 1
	}

	switch guardCorrupt {
	case "before":
		snap := a.Snapshot()
		for _, c := range a.Active() {
			if c.Addr == victim {
				snap.Memory[c.Offset+snap.PaddingSize-1] = ^snap.PaddingByte
			}
		}
	case "after":
		b, err := a.Bytes(victim)
		if err != nil {
			return err
		}
		b[:len(b)+1][len(b)] = ^byte(guard.DefaultPaddingByte)
	}

	printVerbose("Injected %s fault at %#x\n", guardCorrupt, uintptr(victim))
	return a.Free(victim)
}
