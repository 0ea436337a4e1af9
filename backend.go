package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseModel is the error budget the simulator applies to ideal circuits.
type NoiseModel struct {
	// GateError is the depolarizing probability of each two-qubit gate. A circuit with
	// k such gates returns a uniformly random outcome with probability 1-(1-GateError)^k.
	GateError float64 `yaml:"gate_error"`
	// ReadoutError is the probability that a measured bit is flipped.
	ReadoutError float64 `yaml:"readout_error"`
}

// Simulator executes calibration circuits on a local state vector and samples shot
// histograms, standing in for hardware.
type Simulator struct {
	Shots int
	Seed  uint64
	Noise NoiseModel
	Log   zerolog.Logger
}

// Run executes every plan and returns one histogram per plan, in plan order.
// Each qubit count is simulated concurrently with its own random stream, so results
// depend only on Seed.
func (s *Simulator) Run(ctx context.Context, plans map[int][]CircuitPlan) (map[int][]Histogram, error) {
	if s.Shots < 1 {
		return nil, fmt.Errorf("shots must be positive, got %d", s.Shots)
	}
	ns := make([]int, 0, len(plans))
	for n := range plans {
		ns = append(ns, n)
	}
	slices.Sort(ns)

	out := make([][]Histogram, len(ns))
	g, gctx := errgroup.WithContext(ctx)
	for idx, n := range ns {
		g.Go(func() error {
			hists, err := s.runCount(gctx, n, plans[n])
			if err != nil {
				return fmt.Errorf("qubit count %d: %w", n, err)
			}
			out[idx] = hists
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := make(map[int][]Histogram, len(ns))
	for idx, n := range ns {
		data[n] = out[idx]
	}
	return data, nil
}

func (s *Simulator) runCount(ctx context.Context, n int, plans []CircuitPlan) ([]Histogram, error) {
	src := rand.NewPCG(s.Seed, uint64(n))
	ideal := make(map[*Circuit][]float64)
	hists := make([]Histogram, len(plans))

	for i, plan := range plans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		probs, ok := ideal[plan.Circuit]
		if !ok {
			if b := plan.Circuit.unmeasuredBit(); b >= 0 {
				return nil, fmt.Errorf("phase %d: no measurement writes c[%d]", plan.PhaseIndex, b)
			}
			state, err := SimulateCircuit(plan.Circuit)
			if err != nil {
				return nil, err
			}
			probs = state.OutcomeProbabilities(plan.Circuit.MeasuredQubits())
			ideal[plan.Circuit] = probs
			s.Log.Debug().
				Int("n", n).
				Int("phase_index", plan.PhaseIndex).
				Int("gates", len(plan.Circuit.Gates)).
				Msg("simulated circuit")
		}
		hists[i] = s.sample(probs, plan.Circuit.TwoQubitGateCount(), src)
	}

	s.Log.Info().Int("n", n).Int("circuits", len(plans)).Int("shots", s.Shots).Msg("qubit count executed")
	return hists, nil
}

// sample draws Shots outcomes from the noisy version of the ideal distribution.
func (s *Simulator) sample(ideal []float64, twoQubitGates int, src rand.Source) Histogram {
	width := bitWidth(len(ideal))
	depol := 1 - math.Pow(1-s.Noise.GateError, float64(twoQubitGates))
	uniform := depol / float64(len(ideal))

	weights := make([]float64, len(ideal))
	for k, p := range ideal {
		weights[k] = (1-depol)*p + uniform
	}
	outcomes := distuv.NewCategorical(weights, src)
	flip := distuv.Bernoulli{P: s.Noise.ReadoutError, Src: src}

	h := make(Histogram)
	for range s.Shots {
		k := int(outcomes.Rand())
		if s.Noise.ReadoutError > 0 {
			for b := range width {
				if flip.Rand() == 1 {
					k ^= 1 << b
				}
			}
		}
		h[formatOutcome(k, width)]++
	}
	return h
}

// formatOutcome renders k as a width-bit string, bit 0 rightmost.
func formatOutcome(k, width int) string {
	bits := strconv.FormatUint(uint64(k), 2)
	if len(bits) >= width {
		return bits
	}
	return strings.Repeat("0", width-len(bits)) + bits
}

func bitWidth(outcomes int) int {
	width := 0
	for 1<<width < outcomes {
		width++
	}
	return width
}
