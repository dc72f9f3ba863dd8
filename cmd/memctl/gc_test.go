package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGCDemo(t *testing.T) {
	tests := []struct {
		name        string
		keepRoots   bool
		wantRegions int
		wantContain []string
	}{
		{
			name:        "roots dropped",
			keepRoots:   false,
			wantRegions: 8 + 1 + 1,
			wantContain: []string{
				"Used regions: 8 (160 bytes)",
				"Collected: 0 marked, 8 reclaimed",
				"Used regions: 0 (0 bytes)",
				"Free regions: 1 (1,048,576 bytes)",
			},
		},
		{
			name:        "roots kept",
			keepRoots:   true,
			wantRegions: 8 + 1 + 8 + 1,
			wantContain: []string{
				"Used regions: 8 (160 bytes)",
				"Collected: 8 marked, 0 reclaimed",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			gcKeepRoots = tt.keepRoots

			output, err := captureOutput(t, runGCDemo)
			require.NoError(t, err, output)
			assertContains(t, output, tt.wantContain)
			require.Equal(t, tt.wantRegions, strings.Count(output, "++ region"))
		})
	}
}

func TestGCDemoJSON(t *testing.T) {
	resetFlags()
	jsonOut = true

	output, err := captureOutput(t, runGCDemo)
	require.NoError(t, err)
	assertJSON(t, output)

	var res gcDemoResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	require.Equal(t, 8, res.Before.LiveRegions)
	require.Equal(t, 8, res.Collect.Reclaimed)
	require.Equal(t, 0, res.After.LiveRegions)
	require.Equal(t, 1, res.After.FreeRegions)
}

func TestGCDemoArenaTooSmall(t *testing.T) {
	resetFlags()
	gcArenaSize = 64

	_, err := captureOutput(t, runGCDemo)
	require.Error(t, err)
}
