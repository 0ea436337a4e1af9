package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outcomeDistribution(t *testing.T, qc *Circuit) []float64 {
	t.Helper()
	state, err := SimulateCircuit(qc)
	require.NoError(t, err)
	return state.OutcomeProbabilities(qc.MeasuredQubits())
}

func TestQPEExactPhases(t *testing.T) {
	tests := []struct {
		n     int
		phase float64
		want  int
	}{
		{2, 0.25, 1},
		{2, 0.75, 3},
		{3, 3.0 / 8, 3},
		{3, 5.0 / 8, 5},
		{4, 13.0 / 16, 13},
		{5, 1.0 / 32, 1},
	}
	for _, tt := range tests {
		probs := outcomeDistribution(t, NewQPECircuit(tt.n, tt.phase))
		require.Len(t, probs, 1<<tt.n)
		assert.InDelta(t, 1.0, probs[tt.want], 1e-9, "n=%d phase=%g", tt.n, tt.phase)
	}
}

func TestQPEReferencePhasesPeakAtNearestBin(t *testing.T) {
	for _, n := range []int{3, 5} {
		for _, phase := range ReferencePhases {
			probs := outcomeDistribution(t, NewQPECircuit(n, phase))
			best := 0
			for k, p := range probs {
				if p > probs[best] {
					best = k
				}
			}
			want := int(math.Round(phase*math.Ldexp(1, n))) % (1 << n)
			assert.Equal(t, want, best, "n=%d phase=%g", n, phase)

			total := 0.0
			for _, p := range probs {
				total += p
			}
			assert.InDelta(t, 1.0, total, 1e-9)
		}
	}
}

func TestApplyGateRejectsUnknownGate(t *testing.T) {
	s := NewStateVector(2)
	assert.Error(t, s.ApplyGate("CCX", 1, 0, nil))
	assert.Error(t, s.ApplyGate("CP", 1, -1, []float64{math.Pi}))
}

func TestFormatOutcomeBitOrder(t *testing.T) {
	// bit 0 (counting line 0) is the rightmost character
	assert.Equal(t, "001", formatOutcome(1, 3))
	assert.Equal(t, "100", formatOutcome(4, 3))
	assert.Equal(t, "0000", formatOutcome(0, 4))
}

func TestSimulateCircuitBoundsWidth(t *testing.T) {
	for _, width := range []int{MaxSimulatedQubits + 1, 63, 64} {
		_, err := SimulateCircuit(&Circuit{NumQubits: width})
		assert.Error(t, err, "width %d", width)
	}
}
