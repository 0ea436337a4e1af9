package main

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nearestBin is the outcome an ideal QPE run reports most often for phase.
func nearestBin(phase float64, n int) int {
	return int(math.Round(phase*math.Ldexp(1, n))) % (1 << n)
}

// decodeFunc picks the reported outcome for (n, phase index, repetition).
type decodeFunc func(n, j, r int) int

func idealDecode(n, j, _ int) int { return nearestBin(ReferencePhases[j], n) }

// farDecode reports the bin half a turn away from the true phase.
func farDecode(n, j, _ int) int { return (nearestBin(ReferencePhases[j], n) + 1<<(n-1)) % (1 << n) }

// syntheticDataset builds executor-ordered histograms where the mode of each
// histogram is chosen by decode and a weaker second outcome adds noise.
func syntheticDataset(reps int, decoders map[int]decodeFunc) map[int][]Histogram {
	raw := make(map[int][]Histogram, len(decoders))
	for n, decode := range decoders {
		hists := make([]Histogram, 0, len(ReferencePhases)*reps)
		for j := range ReferencePhases {
			for r := range reps {
				mode := decode(n, j, r)
				h := Histogram{formatOutcome(mode, n): 70}
				other := formatOutcome((mode+1)%(1<<n), n)
				h[other] += 30
				hists = append(hists, h)
			}
		}
		raw[n] = hists
	}
	return raw
}

func TestPhaseErrorWraparound(t *testing.T) {
	tests := []struct {
		name   string
		phase  float64
		phiEst float64
		want   float64
	}{
		{"estimate zero, phase near zero", 1.0 / 12, 0, 1.0 / 12},
		{"estimate zero, phase near one", 11.0 / 12, 0, 1.0 / 12},
		{"estimate one, phase near zero", 1.0 / 12, 1, 1.0 / 12},
		{"no wrap in the middle", 5.0 / 12, 0.5, 1.0 / 12},
		{"no wrap away from zero", 11.0 / 12, 0.25, 2.0 / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, phaseError(tt.phase, tt.phiEst), 1e-15)
		})
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	for n := 2; n <= 10; n++ {
		for _, phase := range ReferencePhases {
			k := int(math.Floor(phase * math.Ldexp(1, n)))
			h := Histogram{formatOutcome(k, n): 100}
			assert.Less(t, math.Abs(EstimatePhase(h, n)-phase), math.Ldexp(1, -n), "n=%d phase=%g", n, phase)
		}
	}
}

func TestModeOutcomeTieBreakIsLowestValue(t *testing.T) {
	h := Histogram{"110": 5, "011": 5, "101": 5, "000": 2}
	for range 50 {
		require.Equal(t, uint64(3), ModeOutcome(h))
	}
	assert.Equal(t, uint64(6), ModeOutcome(Histogram{"110": 6, "011": 5}))
}

func TestIdealDecodingMatchesTheoreticalEpsilon(t *testing.T) {
	// nearest-bin decoding of every reference phase is off by exactly 1/3 bin,
	// which the 3/4 weight turns into mu(n) = 1/2^(n+2)
	a, err := EffectiveQubitCount(syntheticDataset(3, map[int]decodeFunc{2: idealDecode, 3: idealDecode, 6: idealDecode}))
	require.NoError(t, err)
	for _, r := range a.Results {
		assert.InDelta(t, TheoreticalGain(r.N), r.MeanError, 1e-15, "n=%d", r.N)
		assert.InDelta(t, 0, r.StdError, 1e-15)
		assert.True(t, r.Passed)
	}
	assert.Equal(t, 4, a.NEff)
}

func TestEarlyExitStopsAtFirstFailure(t *testing.T) {
	raw := syntheticDataset(4, map[int]decodeFunc{
		2: idealDecode,
		3: idealDecode,
		4: farDecode,
		5: idealDecode,
	})
	a, err := EffectiveQubitCount(raw)
	require.NoError(t, err)

	// two consecutive passes before the failure: n_eff = 1 + 2
	assert.Equal(t, 3, a.NEff)
	require.Len(t, a.Results, 4)
	r4, ok := a.Result(4)
	require.True(t, ok)
	assert.False(t, r4.Passed)
	r5, ok := a.Result(5)
	require.True(t, ok)
	assert.True(t, r5.Passed, "counts after the failure are still evaluated")
}

func TestNoPassingCountGivesOne(t *testing.T) {
	a, err := EffectiveQubitCount(syntheticDataset(2, map[int]decodeFunc{2: farDecode, 3: idealDecode}))
	require.NoError(t, err)
	assert.Equal(t, 1, a.NEff)
}

func TestStandardError(t *testing.T) {
	// n=2, two repetitions; repetition 1 misreads phase 1/12 as 1/2.
	decode := func(n, j, r int) int {
		if j == 0 && r == 1 {
			return 2
		}
		return nearestBin(ReferencePhases[j], n)
	}
	a, err := EffectiveQubitCount(syntheticDataset(2, map[int]decodeFunc{2: decode}))
	require.NoError(t, err)

	r := a.Results[0]
	assert.InDelta(t, 5.0/64, r.MeanError, 1e-15)
	assert.InDelta(t, 1/(32*math.Sqrt2), r.StdError, 1e-15)
	assert.InDelta(t, 1.0/64, r.Loss, 1e-15)
	assert.True(t, r.Passed)
}

func TestComputeIsDeterministic(t *testing.T) {
	decode := func(n, j, r int) int { return (nearestBin(ReferencePhases[j], n) + (r*j)%2) % (1 << n) }
	ds, err := NewDataset(syntheticDataset(5, map[int]decodeFunc{2: decode, 3: decode, 4: decode, 5: decode}))
	require.NoError(t, err)

	first, err := ComputeEffectiveQubitCount(ds)
	require.NoError(t, err)
	for range 10 {
		again, err := ComputeEffectiveQubitCount(ds)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("analysis changed between runs (-first +again):\n%s", diff)
		}
	}
}

func TestSingleRepetitionIsRejected(t *testing.T) {
	_, err := EffectiveQubitCount(syntheticDataset(1, map[int]decodeFunc{2: idealDecode, 3: idealDecode}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooFewRepetitions))
}

func TestNewDatasetValidation(t *testing.T) {
	good := func() map[int][]Histogram {
		return syntheticDataset(2, map[int]decodeFunc{2: idealDecode, 3: idealDecode})
	}

	tests := []struct {
		name   string
		mutate func(map[int][]Histogram) map[int][]Histogram
		target error
	}{
		{"empty dataset", func(map[int][]Histogram) map[int][]Histogram { return nil }, ErrEmptyDataset},
		{"inconsistent repetitions", func(raw map[int][]Histogram) map[int][]Histogram {
			raw[4] = syntheticDataset(3, map[int]decodeFunc{4: idealDecode})[4]
			return raw
		}, ErrInconsistentRepetitions},
		{"empty histogram", func(raw map[int][]Histogram) map[int][]Histogram {
			raw[3][5] = Histogram{}
			return raw
		}, ErrEmptyHistogram},
		{"length not a multiple of 8", func(raw map[int][]Histogram) map[int][]Histogram {
			raw[2] = raw[2][:15]
			return raw
		}, nil},
		{"wrong bitstring width", func(raw map[int][]Histogram) map[int][]Histogram {
			raw[3][0] = Histogram{"01": 10}
			return raw
		}, nil},
		{"not a bitstring", func(raw map[int][]Histogram) map[int][]Histogram {
			raw[2][0] = Histogram{"0x": 10}
			return raw
		}, nil},
		{"qubit count below minimum", func(raw map[int][]Histogram) map[int][]Histogram {
			raw[1] = syntheticDataset(2, map[int]decodeFunc{2: idealDecode})[2]
			return raw
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataset(tt.mutate(good()))
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestDatasetKeyedAccess(t *testing.T) {
	const reps = 3
	decode := func(n, j, r int) int { return (j + r) % (1 << n) }
	raw := syntheticDataset(reps, map[int]decodeFunc{3: decode, 2: decode})
	ds, err := NewDataset(raw)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, ds.QubitCounts())
	assert.Equal(t, reps, ds.Repetitions())
	for j := range ReferencePhases {
		for r := range reps {
			h, ok := ds.Trial(3, TrialKey{Phase: j, Repetition: r})
			require.True(t, ok)
			assert.Equal(t, raw[3][r+j*reps], h)
		}
	}
	if diff := cmp.Diff(raw, ds.Lists()); diff != "" {
		t.Errorf("Lists() mismatch (-want +got):\n%s", diff)
	}
}
