package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

const manifestFile = "manifest.yaml"

// ManifestEntry locates one circuit in execution order.
type ManifestEntry struct {
	N          int     `yaml:"n"`
	Index      int     `yaml:"index"`
	PhaseIndex int     `yaml:"phase_index"`
	Phase      float64 `yaml:"phase"`
	Repetition int     `yaml:"repetition"`
	File       string  `yaml:"file"`
}

// Manifest tells an external executor which QASM file to run for each histogram
// slot. Results must be returned per n in Index order.
type Manifest struct {
	QubitCounts []int           `yaml:"qubit_counts"`
	Repetitions int             `yaml:"repetitions"`
	Circuits    []ManifestEntry `yaml:"circuits"`
}

func circuitFileName(n, phaseIndex int) string {
	return fmt.Sprintf("n%d_phase%d.qasm", n, phaseIndex)
}

// ExportCircuits writes one QASM file per (n, phase) into dir plus manifest.yaml.
// Repetitions of a phase point at the same file.
func ExportCircuits(dir string, plans map[int][]CircuitPlan) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	m := &Manifest{}
	for n := range plans {
		m.QubitCounts = append(m.QubitCounts, n)
	}
	slices.Sort(m.QubitCounts)

	for _, n := range m.QubitCounts {
		written := make(map[int]bool)
		for idx, p := range plans[n] {
			name := circuitFileName(n, p.PhaseIndex)
			if !written[p.PhaseIndex] {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(p.Circuit.ToQASM()), 0o644); err != nil {
					return nil, fmt.Errorf("write %s: %w", name, err)
				}
				written[p.PhaseIndex] = true
			}
			m.Repetitions = max(m.Repetitions, p.Repetition+1)
			m.Circuits = append(m.Circuits, ManifestEntry{
				N:          n,
				Index:      idx,
				PhaseIndex: p.PhaseIndex,
				Phase:      p.Phase,
				Repetition: p.Repetition,
				File:       name,
			})
		}
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

// LoadCircuits reads a directory written by ExportCircuits and rebuilds the plans
// by parsing each QASM file once.
func LoadCircuits(dir string) (map[int][]CircuitPlan, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	parsed := make(map[string]*Circuit)
	plans := make(map[int][]CircuitPlan, len(m.QubitCounts))
	for _, e := range m.Circuits {
		qc, ok := parsed[e.File]
		if !ok {
			src, err := os.ReadFile(filepath.Join(dir, e.File))
			if err != nil {
				return nil, fmt.Errorf("read circuit: %w", err)
			}
			qc = &Circuit{}
			if err := qc.ParseQASM(string(src)); err != nil {
				return nil, fmt.Errorf("parse %s: %w", e.File, err)
			}
			if qc.NumCbits != e.N {
				return nil, fmt.Errorf("%s: %d classical bits, manifest says n = %d", e.File, qc.NumCbits, e.N)
			}
			if b := qc.unmeasuredBit(); b >= 0 {
				return nil, fmt.Errorf("%s: no measurement writes c[%d]", e.File, b)
			}
			parsed[e.File] = qc
		}
		if e.Index != len(plans[e.N]) {
			return nil, fmt.Errorf("manifest entry %s for n = %d out of order: index %d, expected %d", e.File, e.N, e.Index, len(plans[e.N]))
		}
		plans[e.N] = append(plans[e.N], CircuitPlan{
			N:          e.N,
			PhaseIndex: e.PhaseIndex,
			Phase:      e.Phase,
			Repetition: e.Repetition,
			Circuit:    qc,
		})
	}
	return plans, nil
}
