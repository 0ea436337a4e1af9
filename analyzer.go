package main

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmptyDataset            = errors.New("dataset contains no qubit counts")
	ErrTooFewRepetitions       = errors.New("at least two repetitions per phase are needed to estimate a standard error")
	ErrInconsistentRepetitions = errors.New("qubit counts were measured with different repetition counts")
	ErrEmptyHistogram          = errors.New("histogram has no outcomes")
)

// errorWeight scales each phase's error so the 8 phases contribute equally.
const errorWeight = 3.0 / (4.0 * float64(len(ReferencePhases)))

// Histogram maps an outcome bitstring to its occurrence count. The rightmost
// character is classical bit 0, i.e. counting line 0.
type Histogram map[string]int

// TrialKey addresses one histogram of a qubit count.
type TrialKey struct {
	Phase      int // index into ReferencePhases
	Repetition int
}

// Dataset holds validated measurement histograms keyed by qubit count and trial.
type Dataset struct {
	counts      []int
	repetitions int
	trials      map[int]map[TrialKey]Histogram
}

// NewDataset validates executor output, where raw[n] lists one histogram per
// circuit in the order BuildCircuits produced them.
func NewDataset(raw map[int][]Histogram) (*Dataset, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyDataset
	}
	ds := &Dataset{
		counts: slices.Sorted(maps.Keys(raw)),
		trials: make(map[int]map[TrialKey]Histogram, len(raw)),
	}

	for _, n := range ds.counts {
		if n < MinQubitCount {
			return nil, fmt.Errorf("qubit count %d: below the minimum of %d", n, MinQubitCount)
		}
		hists := raw[n]
		if len(hists) == 0 || len(hists)%len(ReferencePhases) != 0 {
			return nil, fmt.Errorf("qubit count %d: %d histograms is not a positive multiple of %d", n, len(hists), len(ReferencePhases))
		}
		reps := len(hists) / len(ReferencePhases)
		if ds.repetitions == 0 {
			ds.repetitions = reps
		} else if reps != ds.repetitions {
			return nil, fmt.Errorf("qubit count %d has %d repetitions, expected %d: %w", n, reps, ds.repetitions, ErrInconsistentRepetitions)
		}

		trials := make(map[TrialKey]Histogram, len(hists))
		for j := range ReferencePhases {
			for r := range reps {
				h := hists[r+j*reps]
				if err := validateHistogram(h, n); err != nil {
					return nil, fmt.Errorf("qubit count %d, phase %d, repetition %d: %w", n, j, r, err)
				}
				trials[TrialKey{Phase: j, Repetition: r}] = h
			}
		}
		ds.trials[n] = trials
	}

	if ds.repetitions < 2 {
		return nil, fmt.Errorf("got %d repetition(s): %w", ds.repetitions, ErrTooFewRepetitions)
	}
	return ds, nil
}

func validateHistogram(h Histogram, n int) error {
	if len(h) == 0 {
		return ErrEmptyHistogram
	}
	for bits, count := range h {
		if len(bits) != n {
			return fmt.Errorf("outcome %q is not %d bits wide", bits, n)
		}
		if _, err := strconv.ParseUint(bits, 2, 64); err != nil {
			return fmt.Errorf("outcome %q is not a bitstring", bits)
		}
		if count <= 0 {
			return fmt.Errorf("outcome %q has non-positive count %d", bits, count)
		}
	}
	return nil
}

// QubitCounts returns the measured qubit counts in ascending order.
func (d *Dataset) QubitCounts() []int { return slices.Clone(d.counts) }

// Repetitions returns n_epsilon, the number of repetitions per phase.
func (d *Dataset) Repetitions() int { return d.repetitions }

// Trial returns the histogram for one (phase, repetition) of qubit count n.
func (d *Dataset) Trial(n int, key TrialKey) (Histogram, bool) {
	h, ok := d.trials[n][key]
	return h, ok
}

// Lists converts the dataset back to executor order.
func (d *Dataset) Lists() map[int][]Histogram {
	out := make(map[int][]Histogram, len(d.counts))
	for _, n := range d.counts {
		hists := make([]Histogram, len(ReferencePhases)*d.repetitions)
		for key, h := range d.trials[n] {
			hists[key.Repetition+key.Phase*d.repetitions] = h
		}
		out[n] = hists
	}
	return out
}

// CountResult is the accuracy estimate for one qubit count.
type CountResult struct {
	N         int
	MeanError float64 // mu_epsilon(n)
	StdError  float64 // alpha_epsilon(n)
	Gain      float64 // delta_gain(n) = 1/2^(n+2)
	Loss      float64 // Delta_loss(n) = MeanError - Gain
	Passed    bool
}

// Analysis is the outcome of one n_eff computation.
type Analysis struct {
	NEff        int
	Repetitions int
	Results     []CountResult // ascending by N
}

// Result returns the entry for qubit count n.
func (a *Analysis) Result(n int) (CountResult, bool) {
	i, ok := slices.BinarySearchFunc(a.Results, n, func(r CountResult, n int) int { return r.N - n })
	if !ok {
		return CountResult{}, false
	}
	return a.Results[i], true
}

// TheoreticalGain is the accuracy one more counting line buys: 1/2^(n+2).
func TheoreticalGain(n int) float64 {
	return math.Ldexp(1, -(n + 2))
}

// EffectiveQubitCount validates raw executor output and computes n_eff.
func EffectiveQubitCount(raw map[int][]Histogram) (*Analysis, error) {
	ds, err := NewDataset(raw)
	if err != nil {
		return nil, err
	}
	return ComputeEffectiveQubitCount(ds)
}

// ComputeEffectiveQubitCount estimates the mean phase error and its standard error per
// qubit count and returns n_eff = 1 + the number of consecutive passing counts,
// starting from the smallest. Counts after the first failure are reported but
// never raise n_eff.
func ComputeEffectiveQubitCount(ds *Dataset) (*Analysis, error) {
	if ds == nil || len(ds.counts) == 0 {
		return nil, ErrEmptyDataset
	}
	if ds.repetitions < 2 {
		return nil, ErrTooFewRepetitions
	}

	results := make([]CountResult, len(ds.counts))
	var g errgroup.Group
	for idx, n := range ds.counts {
		g.Go(func() error {
			res, err := ds.evaluate(n)
			if err != nil {
				return err
			}
			results[idx] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	neff := 1
	for _, r := range results {
		if !r.Passed {
			break
		}
		neff++
	}

	return &Analysis{NEff: neff, Repetitions: ds.repetitions, Results: results}, nil
}

// evaluate computes the per-repetition error samples for qubit count n and tests them.
func (d *Dataset) evaluate(n int) (CountResult, error) {
	samples := make([]float64, d.repetitions)
	for i := range samples {
		for j, phase := range ReferencePhases {
			h, ok := d.trials[n][TrialKey{Phase: j, Repetition: i}]
			if !ok {
				return CountResult{}, fmt.Errorf("qubit count %d: missing phase %d repetition %d", n, j, i)
			}
			samples[i] += errorWeight * phaseError(phase, EstimatePhase(h, n))
		}
	}

	mean, std := stat.MeanStdDev(samples, nil)
	alpha := std / math.Sqrt(float64(d.repetitions-1))
	gain := TheoreticalGain(n)
	loss := mean - gain

	return CountResult{
		N:         n,
		MeanError: mean,
		StdError:  alpha,
		Gain:      gain,
		Loss:      loss,
		Passed:    loss+alpha < gain,
	}, nil
}

// EstimatePhase decodes the most frequent outcome of h as a phase in [0, 1).
func EstimatePhase(h Histogram, n int) float64 {
	return float64(ModeOutcome(h)) / math.Ldexp(1, n)
}

// ModeOutcome returns the integer value of the most frequent bitstring in h.
// Ties go to the lowest value so the result does not depend on map order.
// Bitstrings that do not parse are skipped; an empty histogram yields 0.
func ModeOutcome(h Histogram) uint64 {
	var (
		best      uint64
		bestCount = -1
	)
	for bits, count := range h {
		v, err := strconv.ParseUint(bits, 2, 64)
		if err != nil {
			continue
		}
		if count > bestCount || (count == bestCount && v < best) {
			best, bestCount = v, count
		}
	}
	return best
}

// phaseError is |phase - phiEst|, with the estimates 0 and 1 treated as the same
// point on the circle.
func phaseError(phase, phiEst float64) float64 {
	err := math.Abs(phase - phiEst)
	switch phiEst {
	case 0:
		err = math.Min(err, math.Abs(phase-1))
	case 1:
		err = math.Min(err, math.Abs(phase))
	}
	return err
}
