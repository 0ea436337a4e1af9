package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBuild(t *testing.T, ns []int, reps int) map[int][]CircuitPlan {
	t.Helper()
	plans, err := BuildCircuits(ns, reps)
	require.NoError(t, err)
	return plans
}

func TestSimulatorIsDeterministic(t *testing.T) {
	plans := mustBuild(t, []int{2, 3, 4}, 2)
	sim := &Simulator{
		Shots: 200,
		Seed:  42,
		Noise: NoiseModel{GateError: 0.01, ReadoutError: 0.02},
		Log:   zerolog.Nop(),
	}

	first, err := sim.Run(context.Background(), plans)
	require.NoError(t, err)
	second, err := sim.Run(context.Background(), plans)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("same seed produced different histograms (-first +second):\n%s", diff)
	}
}

func TestSimulatorHistogramShape(t *testing.T) {
	plans := mustBuild(t, []int{3, 5}, 2)
	sim := &Simulator{Shots: 64, Seed: 3, Noise: NoiseModel{GateError: 0.5, ReadoutError: 0.1}, Log: zerolog.Nop()}

	data, err := sim.Run(context.Background(), plans)
	require.NoError(t, err)
	for n, hists := range data {
		require.Len(t, hists, len(ReferencePhases)*2)
		for _, h := range hists {
			total := 0
			for outcome, c := range h {
				assert.Len(t, outcome, n)
				total += c
			}
			assert.Equal(t, sim.Shots, total)
		}
	}
}

func TestNoiselessSimulationPassesEveryCount(t *testing.T) {
	ns := []int{2, 3, 4}
	sim := &Simulator{Shots: 2000, Seed: 1, Log: zerolog.Nop()}
	data, err := sim.Run(context.Background(), mustBuild(t, ns, 3))
	require.NoError(t, err)

	for _, n := range ns {
		for idx, h := range data[n] {
			phase := ReferencePhases[idx/3]
			assert.Equal(t, uint64(nearestBin(phase, n)), ModeOutcome(h), "n=%d phase=%g", n, phase)
		}
	}

	a, err := EffectiveQubitCount(data)
	require.NoError(t, err)
	assert.Equal(t, 1+len(ns), a.NEff)
}

func TestSimulatorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := &Simulator{Shots: 10, Log: zerolog.Nop()}
	_, err := sim.Run(ctx, mustBuild(t, []int{2, 3}, 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSimulatorRejectsZeroShots(t *testing.T) {
	sim := &Simulator{Log: zerolog.Nop()}
	_, err := sim.Run(context.Background(), mustBuild(t, []int{2}, 2))
	assert.Error(t, err)
}

func TestSimulatorRejectsUnmeasuredBit(t *testing.T) {
	qc := &Circuit{NumQubits: 3, NumCbits: 2}
	qc.AddGate("H", 0, 0)
	qc.AddMeasure(0, 0, 1)
	plans := map[int][]CircuitPlan{2: {{N: 2, Circuit: qc}}}

	sim := &Simulator{Shots: 10, Log: zerolog.Nop()}
	_, err := sim.Run(context.Background(), plans)
	assert.ErrorContains(t, err, "no measurement writes c[1]")
}

func TestSimulatorRejectsOversizedCircuit(t *testing.T) {
	plans := mustBuild(t, []int{MaxSimulatedQubits}, 1)
	sim := &Simulator{Shots: 10, Log: zerolog.Nop()}
	_, err := sim.Run(context.Background(), plans)
	assert.ErrorContains(t, err, "at most")
}
