package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memdebug/heap/guard"
)

func TestGuardDemo(t *testing.T) {
	tests := []struct {
		name        string
		allocs      int
		frees       int
		corrupt     string
		wantErr     error
		wantContain []string
	}{
		{
			name:        "leaks reported",
			allocs:      10,
			frees:       5,
			corrupt:     "none",
			wantContain: []string{"5 of 10 allocations never freed", "bytes of unfreed memory allocated at guard.go:"},
		},
		{
			name:        "everything freed",
			allocs:      7,
			frees:       7,
			corrupt:     "none",
			wantContain: []string{"0 of 7 allocations never freed"},
		},
		{
			name:    "underrun",
			allocs:  4,
			frees:   2,
			corrupt: "before",
			wantErr: guard.ErrCorruption,
		},
		{
			name:    "overrun",
			allocs:  4,
			frees:   2,
			corrupt: "after",
			wantErr: guard.ErrCorruption,
		},
		{
			name:    "double free",
			allocs:  4,
			frees:   2,
			corrupt: "double",
			wantErr: guard.ErrDoubleFree,
		},
		{
			name:    "unknown address",
			allocs:  4,
			frees:   2,
			corrupt: "unknown",
			wantErr: guard.ErrUnknownAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			guardAllocs = tt.allocs
			guardFrees = tt.frees
			guardCorrupt = tt.corrupt

			var fatal []error
			origFatal := guardOnFatal
			guardOnFatal = func(err error) { fatal = append(fatal, err) }
			defer func() { guardOnFatal = origFatal }()

			output, err := captureOutput(t, runGuardDemo)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Len(t, fatal, 1)
				require.True(t, errors.Is(fatal[0], tt.wantErr))
				return
			}
			require.NoError(t, err, output)
			require.Empty(t, fatal)
			assertContains(t, output, tt.wantContain)
			require.Equal(t, tt.allocs-tt.frees, strings.Count(output, "bytes of unfreed memory"))
		})
	}
}

func TestGuardDemoCorruptMessage(t *testing.T) {
	resetFlags()
	guardAllocs, guardFrees, guardCorrupt = 2, 0, "after"
	origFatal := guardOnFatal
	guardOnFatal = func(error) {}
	defer func() { guardOnFatal = origFatal }()

	_, err := captureOutput(t, runGuardDemo)
	require.Error(t, err)
	require.Contains(t, err.Error(), "illegal write 1 bytes after 24 bytes of memory allocated at guard.go:")
}

func TestGuardDemoJSON(t *testing.T) {
	resetFlags()
	jsonOut = true

	output, err := captureOutput(t, runGuardDemo)
	require.NoError(t, err)
	assertJSON(t, output)

	var res guardDemoResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	require.Equal(t, 5, res.Stats.Active)
	require.Len(t, res.Active, 5)
}

func TestGuardDemoRejectsBadFlags(t *testing.T) {
	resetFlags()
	guardCorrupt = "sideways"
	_, err := captureOutput(t, runGuardDemo)
	require.ErrorContains(t, err, "unknown fault")

	resetFlags()
	guardFrees = 11
	_, err = captureOutput(t, runGuardDemo)
	require.Error(t, err)

	resetFlags()
	guardFrees, guardCorrupt = 0, "double"
	_, err = captureOutput(t, runGuardDemo)
	require.ErrorContains(t, err, "needs at least one freed allocation")
}
