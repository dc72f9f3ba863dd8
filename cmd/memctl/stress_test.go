package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStress(t *testing.T) {
	resetFlags()
	stressWorkers = 3
	stressOps = 2000
	stressSeed = 42

	output, err := captureOutput(t, func() error {
		return runStress(context.Background())
	})
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(output, "worker "))
	assertContains(t, output, []string{"worker 0:", "worker 2:", "collections"})
}

func TestStressJSONIsDeterministic(t *testing.T) {
	run := func() []workerResult {
		resetFlags()
		jsonOut = true
		stressWorkers = 2
		stressOps = 1500
		stressSeed = 7

		output, err := captureOutput(t, func() error {
			return runStress(context.Background())
		})
		require.NoError(t, err)
		var results []workerResult
		require.NoError(t, json.Unmarshal([]byte(output), &results))
		require.Len(t, results, 2)
		for i := range results {
			results[i].Elapsed = 0
		}
		return results
	}

	first := run()
	require.Equal(t, first, run())
	require.NotZero(t, first[0].Heap.Allocs)
	require.NotZero(t, first[0].Guard.Allocs)
}

func TestStressCancelled(t *testing.T) {
	resetFlags()
	stressWorkers = 2
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := captureOutput(t, func() error {
		return runStress(ctx)
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestStressRejectsBadParameters(t *testing.T) {
	resetFlags()
	stressWorkers = 0
	require.Error(t, runStress(context.Background()))
}
