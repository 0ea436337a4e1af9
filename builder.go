package main

import (
	"fmt"
	"math"
	"slices"
)

// ReferencePhases are the calibration phases, in the order circuits are generated
// and histograms are decoded. Both sides index into this one array.
var ReferencePhases = [8]float64{1.0 / 12, 1.0 / 6, 1.0 / 3, 5.0 / 12, 7.0 / 12, 2.0 / 3, 5.0 / 6, 11.0 / 12}

// MinQubitCount is the smallest number of counting lines a calibration circuit may use.
const MinQubitCount = 2

// InvalidInputError reports a circuit request that cannot be built.
type InvalidInputError struct {
	Min    int    // smallest qubit count requested
	Reason string // set when the failure is not about the minimum
}

func (e *InvalidInputError) Error() string {
	if e.Reason != "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: the smallest qubit count to measure is n = %d, got min(ns) = %d < %d",
		MinQubitCount, e.Min, MinQubitCount)
}

// CircuitPlan is one calibration circuit instance: n counting lines estimating
// ReferencePhases[PhaseIndex], repetition Repetition of that phase.
// Repetitions of the same (N, PhaseIndex) share one Circuit, which must not be mutated.
type CircuitPlan struct {
	N          int
	PhaseIndex int
	Phase      float64
	Repetition int
	Circuit    *Circuit
}

// Angle returns the controlled-phase rotation applied from counting line i.
func (p CircuitPlan) Angle(line int) float64 {
	return PhaseAngle(p.N, p.Phase, line)
}

// PhaseAngle is 2*pi*phase*2^(n-1-line). Line 0 carries the largest multiple, so after
// the swap-free inverse transform it reads out as the least significant bit.
func PhaseAngle(n int, phase float64, line int) float64 {
	return 2 * math.Pi * phase * math.Ldexp(1, n-1-line)
}

// BuildCircuits returns, for each n in ns, 8*repetitions plans: for every reference
// phase in order, repetitions consecutive copies of the same QPE circuit.
func BuildCircuits(ns []int, repetitions int) (map[int][]CircuitPlan, error) {
	if len(ns) == 0 {
		return nil, &InvalidInputError{Reason: "no qubit counts requested"}
	}
	if m := slices.Min(ns); m < MinQubitCount {
		return nil, &InvalidInputError{Min: m}
	}
	if repetitions < 1 {
		return nil, &InvalidInputError{Min: slices.Min(ns), Reason: fmt.Sprintf("repetitions must be positive, got %d", repetitions)}
	}

	circuits := make(map[int][]CircuitPlan, len(ns))
	for _, n := range ns {
		if _, dup := circuits[n]; dup {
			return nil, &InvalidInputError{Min: slices.Min(ns), Reason: fmt.Sprintf("qubit count %d requested twice", n)}
		}
		plans := make([]CircuitPlan, 0, len(ReferencePhases)*repetitions)
		for j, phase := range ReferencePhases {
			qc := NewQPECircuit(n, phase)
			for r := range repetitions {
				plans = append(plans, CircuitPlan{
					N:          n,
					PhaseIndex: j,
					Phase:      phase,
					Repetition: r,
					Circuit:    qc,
				})
			}
		}
		circuits[n] = plans
	}
	return circuits, nil
}

// NewQPECircuit builds the phase estimation circuit for n counting lines (0..n-1)
// and one ancillary line (n), measuring line i into classical bit i.
func NewQPECircuit(n int, phase float64) *Circuit {
	qc := &Circuit{NumQubits: n + 1, NumCbits: n}
	ancilla := n
	step := 0

	for q := range n {
		qc.AddGate("H", q, step)
		step++
	}
	qc.AddGate("X", ancilla, step)
	step++

	for i := range n {
		qc.AddParameterizedGate("CP", ancilla, step, []float64{PhaseAngle(n, phase, i)}, i)
		step++
	}

	step = appendInverseQFT(qc, n, step)

	for q := range n {
		qc.AddMeasure(q, q, step)
		step++
	}
	return qc
}

// appendInverseQFT adds the inverse Fourier transform on lines 0..n-1 without the
// final swaps and returns the next free step.
func appendInverseQFT(qc *Circuit, n, step int) int {
	for j := range n {
		for k := range j {
			qc.AddParameterizedGate("CP", k, step, []float64{-math.Pi / math.Ldexp(1, j-k)}, j)
			step++
		}
		qc.AddGate("H", j, step)
		step++
	}
	return step
}
