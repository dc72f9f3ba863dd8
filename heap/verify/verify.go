package verify

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/joshuapare/memdebug/heap/gc"
	"github.com/joshuapare/memdebug/heap/guard"
)

// ValidationError describes the first failed check.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Heap validates all heap invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func Heap(s gc.Snapshot) error {
	if err := HeapLayout(s); err != nil {
		return err
	}
	if err := HeapMarks(s); err != nil {
		return err
	}
	return nil
}

// HeapLayout checks region geometry and registry membership.
func HeapLayout(s gc.Snapshot) error {
	if s.ArenaBytes == 0 {
		if len(s.Free)+len(s.Used) != 0 {
			return &ValidationError{
				Type:    "HeapLayout",
				Message: fmt.Sprintf("%d regions without an arena", len(s.Free)+len(s.Used)),
				Offset:  -1,
			}
		}
		return nil
	}

	covered := roaring.New()
	free, err := regionSet(s, s.Free, covered, "free")
	if err != nil {
		return err
	}
	used, err := regionSet(s, s.Used, covered, "used")
	if err != nil {
		return err
	}

	if both := roaring.And(free, used); !both.IsEmpty() {
		return &ValidationError{
			Type:    "HeapLayout",
			Message: fmt.Sprintf("%d regions are both free and in use", both.GetCardinality()),
			Offset:  int(both.Minimum()),
		}
	}

	if got := covered.GetCardinality(); got != uint64(s.ArenaBytes) {
		gap := -1
		if missing := roaring.Flip(covered, 0, uint64(s.ArenaBytes)); !missing.IsEmpty() {
			gap = int(missing.Minimum())
		}
		return &ValidationError{
			Type:    "HeapLayout",
			Message: fmt.Sprintf("regions cover %d of %d arena bytes", got, s.ArenaBytes),
			Offset:  gap,
			Details: map[string]any{
				"covered": got,
				"arena":   s.ArenaBytes,
			},
		}
	}
	return nil
}

// regionSet validates one registry's regions, adds their byte spans to covered and
// returns the set of header offsets.
func regionSet(s gc.Snapshot, regions []gc.RegionInfo, covered *roaring.Bitmap, name string) (*roaring.Bitmap, error) {
	offsets := roaring.New()
	for _, r := range regions {
		if r.Offset < 0 || r.Offset%gc.Alignment != 0 {
			return nil, &ValidationError{
				Type:    "HeapLayout",
				Message: fmt.Sprintf("%s region offset not %d-byte aligned", name, gc.Alignment),
				Offset:  r.Offset,
			}
		}
		if r.Size < gc.MinRegionSize || r.Size%gc.Alignment != 0 {
			return nil, &ValidationError{
				Type:    "HeapLayout",
				Message: fmt.Sprintf("invalid %s region size: %d bytes", name, r.Size),
				Offset:  r.Offset,
			}
		}
		if want := gc.Ptr(s.Base + uintptr(r.Offset) + gc.HeaderSize); r.Addr != want {
			return nil, &ValidationError{
				Type:    "HeapLayout",
				Message: fmt.Sprintf("%s region address %#x, expected %#x", name, uintptr(r.Addr), uintptr(want)),
				Offset:  r.Offset,
			}
		}
		if !offsets.CheckedAdd(uint32(r.Offset)) {
			return nil, &ValidationError{
				Type:    "HeapLayout",
				Message: fmt.Sprintf("region listed twice in %s registry", name),
				Offset:  r.Offset,
			}
		}

		start := uint64(r.Offset)
		end := start + uint64(gc.HeaderSize+r.Size)
		if end > uint64(s.ArenaBytes) {
			return nil, &ValidationError{
				Type:    "HeapLayout",
				Message: fmt.Sprintf("%s region extends beyond arena: end=0x%X, arena=0x%X", name, end, s.ArenaBytes),
				Offset:  r.Offset,
			}
		}
		before := covered.GetCardinality()
		covered.AddRange(start, end)
		if covered.GetCardinality()-before != end-start {
			return nil, &ValidationError{
				Type:    "HeapLayout",
				Message: fmt.Sprintf("%s region overlaps another region", name),
				Offset:  r.Offset,
			}
		}
	}
	return offsets, nil
}

// HeapMarks checks that no region carries a mark outside a collection.
func HeapMarks(s gc.Snapshot) error {
	for _, regions := range [][]gc.RegionInfo{s.Used, s.Free} {
		for _, r := range regions {
			if r.Marked {
				return &ValidationError{
					Type:    "HeapMarks",
					Message: "stale mark outside collection",
					Offset:  r.Offset,
				}
			}
		}
	}
	return nil
}

// Guard validates all guard allocator invariants in one call.
func Guard(s guard.Snapshot) error {
	if err := GuardLayout(s); err != nil {
		return err
	}
	if err := GuardRegistries(s); err != nil {
		return err
	}
	if err := GuardPadding(s); err != nil {
		return err
	}
	return nil
}

// GuardLayout checks that chunks lie inside the arena without overlapping.
func GuardLayout(s guard.Snapshot) error {
	covered := roaring.New()
	for _, c := range s.Chunks {
		start, end := uint64(c.Offset), uint64(c.Offset+c.Size)
		if c.Offset < 0 || end > uint64(len(s.Memory)) {
			return &ValidationError{
				Type:    "GuardLayout",
				Message: fmt.Sprintf("chunk %d outside arena: end=0x%X, arena=0x%X", c.Index, end, len(s.Memory)),
				Offset:  c.Offset,
			}
		}
		if c.MaxBytes != c.Size-2*s.PaddingSize || c.MaxBytes <= 0 {
			return &ValidationError{
				Type:    "GuardLayout",
				Message: fmt.Sprintf("chunk %d max bytes %d inconsistent with size %d", c.Index, c.MaxBytes, c.Size),
				Offset:  c.Offset,
			}
		}
		if c.Used >= c.MaxBytes {
			return &ValidationError{
				Type:    "GuardLayout",
				Message: fmt.Sprintf("chunk %d holds %d bytes, limit %d", c.Index, c.Used, c.MaxBytes),
				Offset:  c.Offset,
			}
		}
		before := covered.GetCardinality()
		covered.AddRange(start, end)
		if covered.GetCardinality()-before != end-start {
			return &ValidationError{
				Type:    "GuardLayout",
				Message: fmt.Sprintf("chunk %d overlaps another chunk", c.Index),
				Offset:  c.Offset,
			}
		}
	}
	return nil
}

// GuardRegistries checks that every chunk sits in exactly one registry and that the
// registry agrees with the chunk's used state.
func GuardRegistries(s guard.Snapshot) error {
	free, err := chunkSet(s, s.Free, "free")
	if err != nil {
		return err
	}
	used, err := chunkSet(s, s.Used, "used")
	if err != nil {
		return err
	}

	if both := roaring.And(free, used); !both.IsEmpty() {
		c := s.Chunks[both.Minimum()]
		return &ValidationError{
			Type:    "GuardRegistries",
			Message: fmt.Sprintf("chunk %d is both free and in use", c.Index),
			Offset:  c.Offset,
		}
	}
	all := roaring.Or(free, used)
	if all.GetCardinality() != uint64(len(s.Chunks)) {
		missing := roaring.Flip(all, 0, uint64(len(s.Chunks)))
		c := s.Chunks[missing.Minimum()]
		return &ValidationError{
			Type:    "GuardRegistries",
			Message: fmt.Sprintf("chunk %d is in no registry", c.Index),
			Offset:  c.Offset,
		}
	}

	for _, c := range s.Chunks {
		if inUse := used.Contains(uint32(c.Index)); inUse == c.Free() {
			return &ValidationError{
				Type:    "GuardRegistries",
				Message: fmt.Sprintf("chunk %d registry disagrees with used=%d", c.Index, c.Used),
				Offset:  c.Offset,
			}
		}
	}
	return nil
}

func chunkSet(s guard.Snapshot, idxs []int, name string) (*roaring.Bitmap, error) {
	set := roaring.New()
	for _, idx := range idxs {
		if idx < 0 || idx >= len(s.Chunks) {
			return nil, &ValidationError{
				Type:    "GuardRegistries",
				Message: fmt.Sprintf("%s registry holds unknown chunk %d", name, idx),
				Offset:  -1,
			}
		}
		if !set.CheckedAdd(uint32(idx)) {
			return nil, &ValidationError{
				Type:    "GuardRegistries",
				Message: fmt.Sprintf("chunk %d listed twice in %s registry", idx, name),
				Offset:  s.Chunks[idx].Offset,
			}
		}
	}
	return set, nil
}

// GuardPadding checks the leading padding of every chunk and the trailing padding of
// every used chunk.
func GuardPadding(s guard.Snapshot) error {
	pad := s.PaddingSize
	for _, c := range s.Chunks {
		if err := checkPadding(s, c, c.Offset, "leading"); err != nil {
			return err
		}
		if !c.Free() {
			if err := checkPadding(s, c, c.Offset+pad+c.Used, "trailing"); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkPadding(s guard.Snapshot, c guard.ChunkInfo, from int, which string) error {
	for i, b := range s.Memory[from : from+s.PaddingSize] {
		if b != s.PaddingByte {
			return &ValidationError{
				Type:    "GuardPadding",
				Message: fmt.Sprintf("chunk %d %s padding byte is 0x%02X, expected 0x%02X", c.Index, which, b, s.PaddingByte),
				Offset:  from + i,
				Details: map[string]any{
					"chunk": c.Index,
					"used":  c.Used,
				},
			}
		}
	}
	return nil
}
