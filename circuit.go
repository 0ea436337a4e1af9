package main

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Pre-compiled regexps for QASM parsing.
var (
	singleGateRegex    = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\];?$`)
	singleParamRegex   = regexp.MustCompile(`^(\w+)\s*\(\s*(` + paramPattern + `)\s*\)\s+q\[(\d+)\];?$`)
	twoQubitParamRegex = regexp.MustCompile(`^(\w+)\s*\(\s*(` + paramPattern + `)\s*\)\s+q\[(\d+)\],\s*q\[(\d+)\];?$`)
	measureRegex       = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*(\w+)\[(\d+)\];?$`)
	qregRegex          = regexp.MustCompile(`qreg\s+(\w+)\[(\d+)\]`)
	cregRegex          = regexp.MustCompile(`creg\s+(\w+)\[(\d+)\]`)
)

// Gate represents one operation placed on the circuit.
type Gate struct {
	Type    string
	Target  int
	Control int       // -1 if not a controlled gate
	Cbit    int       // classical bit written by MEASURE, -1 otherwise
	Step    int       // position in circuit timeline
	Params  []float64 // Parameters for parameterized gates
}

// Circuit holds a gate list over NumQubits lines and NumCbits classical bits.
type Circuit struct {
	NumQubits int
	NumCbits  int
	Gates     []Gate
	MaxSteps  int
}

func (c *Circuit) appendGate(g Gate) {
	c.Gates = append(c.Gates, g)
	if g.Step >= c.MaxSteps {
		c.MaxSteps = g.Step + 1
	}
}

// AddGate appends a gate to the circuit.
func (c *Circuit) AddGate(gateType string, target, step int, control ...int) {
	ctrl := -1
	if len(control) > 0 {
		ctrl = control[0]
	}
	c.appendGate(Gate{
		Type:    gateType,
		Target:  target,
		Control: ctrl,
		Cbit:    -1,
		Step:    step,
	})
}

// AddParameterizedGate appends a parameterized gate to the circuit.
func (c *Circuit) AddParameterizedGate(gateType string, target, step int, params []float64, control ...int) {
	ctrl := -1
	if len(control) > 0 {
		ctrl = control[0]
	}
	c.appendGate(Gate{
		Type:    gateType,
		Target:  target,
		Control: ctrl,
		Cbit:    -1,
		Step:    step,
		Params:  params,
	})
}

// AddMeasure appends a measurement of qubit into classical bit cbit.
func (c *Circuit) AddMeasure(qubit, cbit, step int) {
	c.appendGate(Gate{
		Type:    "MEASURE",
		Target:  qubit,
		Control: -1,
		Cbit:    cbit,
		Step:    step,
	})
	c.NumCbits = max(c.NumCbits, cbit+1)
}

// TwoQubitGateCount returns the number of controlled gates in the circuit.
func (c *Circuit) TwoQubitGateCount() int {
	count := 0
	for _, g := range c.Gates {
		if g.Control >= 0 {
			count++
		}
	}
	return count
}

// MeasuredQubits returns the qubit measured into each classical bit, indexed by bit.
// Unwritten bits hold -1.
func (c *Circuit) MeasuredQubits() []int {
	lines := make([]int, c.NumCbits)
	for i := range lines {
		lines[i] = -1
	}
	for _, g := range c.Gates {
		if g.Type == "MEASURE" && g.Cbit >= 0 && g.Cbit < len(lines) {
			lines[g.Cbit] = g.Target
		}
	}
	return lines
}

// unmeasuredBit returns the first classical bit no measurement writes, or -1.
func (c *Circuit) unmeasuredBit() int {
	return slices.Index(c.MeasuredQubits(), -1)
}

// orderedGates returns the gates sorted by step, keeping insertion order within a step.
func (c *Circuit) orderedGates() []Gate {
	gates := slices.Clone(c.Gates)
	slices.SortStableFunc(gates, func(a, b Gate) int {
		return cmp.Compare(a.Step, b.Step)
	})
	return gates
}

// ToQASM generates QASM 2.0 output from the circuit.
func (c *Circuit) ToQASM() string {
	numQubits := max(c.NumQubits, 1)
	numCbits := max(c.NumCbits, 1)

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", numQubits)
	fmt.Fprintf(&sb, "creg c[%d];\n\n", numCbits)

	for _, gate := range c.orderedGates() {
		switch {
		case gate.Type == "MEASURE":
			fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", gate.Target, gate.Cbit)
		case gate.Control >= 0:
			switch gate.Type {
			case "CP", "CU1":
				if len(gate.Params) > 0 {
					fmt.Fprintf(&sb, "cu1(%s) q[%d], q[%d];\n", formatParam(gate.Params[0]), gate.Control, gate.Target)
				}
			default:
				fmt.Fprintf(&sb, "%s q[%d], q[%d];\n", strings.ToLower(gate.Type), gate.Control, gate.Target)
			}
		case len(gate.Params) > 0:
			fmt.Fprintf(&sb, "%s(%s) q[%d];\n", strings.ToLower(gate.Type), formatParam(gate.Params[0]), gate.Target)
		default:
			fmt.Fprintf(&sb, "%s q[%d];\n", strings.ToLower(gate.Type), gate.Target)
		}
	}

	return sb.String()
}

// ParseQASM parses QASM text and rebuilds the circuit from it.
// Only the gate vocabulary emitted by ToQASM is understood.
func (c *Circuit) ParseQASM(qasm string) error {
	c.Gates = nil
	c.MaxSteps = 0
	step := 0

	for lineNo, line := range strings.Split(qasm, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "OPENQASM") || strings.HasPrefix(line, "include") {
			continue
		}
		if strings.HasPrefix(line, "qreg") {
			if matches := qregRegex.FindStringSubmatch(line); matches != nil {
				c.NumQubits, _ = strconv.Atoi(matches[2])
			}
			continue
		}
		if strings.HasPrefix(line, "creg") {
			if matches := cregRegex.FindStringSubmatch(line); matches != nil {
				c.NumCbits, _ = strconv.Atoi(matches[2])
			}
			continue
		}
		if strings.HasPrefix(line, "barrier") {
			continue
		}

		// Measurement: "measure q[0] -> c[0];"
		if matches := measureRegex.FindStringSubmatch(line); matches != nil {
			qubit, _ := strconv.Atoi(matches[1])
			cbit, _ := strconv.Atoi(matches[3])
			c.AddMeasure(qubit, cbit, step)
			step++
			continue
		}

		// Two-qubit parameterized gates (CU1, CP)
		if matches := twoQubitParamRegex.FindStringSubmatch(line); matches != nil {
			gateType := strings.ToUpper(matches[1])
			param, ok := parseParamExpr(matches[2])
			if !ok {
				return fmt.Errorf("line %d: invalid parameter %q", lineNo+1, matches[2])
			}
			control, _ := strconv.Atoi(matches[3])
			target, _ := strconv.Atoi(matches[4])
			if gateType == "CU1" {
				gateType = "CP"
			}
			c.AddParameterizedGate(gateType, target, step, []float64{param}, control)
			step++
			continue
		}

		// Single-qubit parameterized gates (P, U1, RZ)
		if matches := singleParamRegex.FindStringSubmatch(line); matches != nil {
			param, ok := parseParamExpr(matches[2])
			if !ok {
				return fmt.Errorf("line %d: invalid parameter %q", lineNo+1, matches[2])
			}
			target, _ := strconv.Atoi(matches[3])
			c.AddParameterizedGate(strings.ToUpper(matches[1]), target, step, []float64{param})
			step++
			continue
		}

		if matches := singleGateRegex.FindStringSubmatch(line); matches != nil {
			target, _ := strconv.Atoi(matches[2])
			c.AddGate(strings.ToUpper(matches[1]), target, step)
			step++
			continue
		}

		return fmt.Errorf("line %d: unsupported statement %q", lineNo+1, line)
	}

	return nil
}
