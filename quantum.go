package main

import (
	"fmt"
	"math"
	"math/cmplx"
)

type Complex = complex128

// MaxSimulatedQubits bounds the state vector at 2^24 amplitudes (256 MiB).
const MaxSimulatedQubits = 24

type StateVector struct {
	Amplitudes []Complex
	NumQubits  int
}

func NewStateVector(numQubits int) *StateVector {
	n := 1 << numQubits
	amps := make([]Complex, n)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) ApplyGate(gateType string, target int, control int, params []float64) error {
	theta := 0.0
	if len(params) > 0 {
		theta = params[0]
	}
	switch gateType {
	case "H":
		s.applyH(target)
	case "X":
		s.applyX(target)
	case "Z":
		s.applyP(target, math.Pi)
	case "P", "U1":
		s.applyP(target, theta)
	case "CP", "CU1":
		if control < 0 {
			return fmt.Errorf("%s on q[%d] has no control", gateType, target)
		}
		s.applyCP(control, target, theta)
	case "MEASURE":
	default:
		return fmt.Errorf("unsupported gate %q", gateType)
	}
	return nil
}

func (s *StateVector) applyH(q int) {
	hFactor := complex(1.0/math.Sqrt2, 0)
	n := len(s.Amplitudes)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amplitudes[i], s.Amplitudes[j]
			s.Amplitudes[i] = hFactor * (a + b)
			s.Amplitudes[j] = hFactor * (a - b)
		}
	}
}

func (s *StateVector) applyX(q int) {
	n := len(s.Amplitudes)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyP(q int, theta float64) {
	n := len(s.Amplitudes)
	bit := 1 << q
	phase := cmplx.Exp(complex(0, theta))
	for i := 0; i < n; i++ {
		if i&bit != 0 {
			s.Amplitudes[i] *= phase
		}
	}
}

func (s *StateVector) applyCP(control, target int, theta float64) {
	n := len(s.Amplitudes)
	both := 1<<control | 1<<target
	phase := cmplx.Exp(complex(0, theta))
	for i := 0; i < n; i++ {
		if i&both == both {
			s.Amplitudes[i] *= phase
		}
	}
}

// OutcomeProbabilities returns the distribution over classical outcomes when qubit
// lines[b] is read into bit b. Index k of the result is the outcome whose bit b is
// (k>>b)&1.
func (s *StateVector) OutcomeProbabilities(lines []int) []float64 {
	probs := make([]float64, 1<<len(lines))
	for i, amp := range s.Amplitudes {
		p := real(amp * cmplx.Conj(amp))
		if p == 0 {
			continue
		}
		k := 0
		for b, q := range lines {
			if i&(1<<q) != 0 {
				k |= 1 << b
			}
		}
		probs[k] += p
	}
	return probs
}

// SimulateCircuit runs every unitary gate of the circuit in step order.
func SimulateCircuit(circuit *Circuit) (*StateVector, error) {
	if circuit.NumQubits == 0 {
		return NewStateVector(1), nil
	}
	if circuit.NumQubits > MaxSimulatedQubits {
		return nil, fmt.Errorf("circuit has %d qubits, the simulator handles at most %d", circuit.NumQubits, MaxSimulatedQubits)
	}
	state := NewStateVector(circuit.NumQubits)

	for _, gate := range circuit.orderedGates() {
		if gate.Type == "MEASURE" || gate.Type == "BARRIER" {
			continue
		}
		if gate.Target >= circuit.NumQubits || gate.Control >= circuit.NumQubits {
			return nil, fmt.Errorf("gate %s at step %d addresses a qubit outside q[%d]", gate.Type, gate.Step, circuit.NumQubits)
		}
		if err := state.ApplyGate(gate.Type, gate.Target, gate.Control, gate.Params); err != nil {
			return nil, fmt.Errorf("step %d: %w", gate.Step, err)
		}
	}

	return state, nil
}
