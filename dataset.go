package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// DatasetFile is the on-disk form of executor results.
type DatasetFile struct {
	RunID     string       `json:"run_id" yaml:"run_id" msgpack:"run_id"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at" msgpack:"created_at"`
	Shots     int          `json:"shots,omitempty" yaml:"shots,omitempty" msgpack:"shots,omitempty"`
	Results   CountResults `json:"results" yaml:"results" msgpack:"results"`
}

// CountResults maps a qubit count to its histograms in execution order. Keys may be
// written as integers or as decimal strings.
type CountResults map[int][]Histogram

// UnmarshalYAML accepts both `2:` and `"2":` keys.
func (r *CountResults) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string][]Histogram
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out := make(CountResults, len(raw))
	for key, hists := range raw {
		n, err := parseCountKey(key)
		if err != nil {
			return err
		}
		out[n] = hists
	}
	*r = out
	return nil
}

// DecodeMsgpack accepts integer and string map keys.
func (r *CountResults) DecodeMsgpack(dec *msgpack.Decoder) error {
	size, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	if size < 0 {
		*r = nil
		return nil
	}
	out := make(CountResults, size)
	for range size {
		key, err := dec.DecodeInterfaceLoose()
		if err != nil {
			return err
		}
		var n int
		switch k := key.(type) {
		case int64:
			n = int(k)
		case uint64:
			n = int(k)
		case string:
			if n, err = parseCountKey(k); err != nil {
				return err
			}
		default:
			return fmt.Errorf("results key %v is not a qubit count", key)
		}
		var hists []Histogram
		if err := dec.Decode(&hists); err != nil {
			return fmt.Errorf("results[%d]: %w", n, err)
		}
		out[n] = hists
	}
	*r = out
	return nil
}

func parseCountKey(key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, fmt.Errorf("results key %q is not a qubit count", key)
	}
	return n, nil
}

// NewDatasetFile wraps results with a fresh run id.
func NewDatasetFile(results map[int][]Histogram, shots int) *DatasetFile {
	return &DatasetFile{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Shots:     shots,
		Results:   results,
	}
}

type datasetCodec struct {
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

func codecFor(path string) (datasetCodec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return datasetCodec{
			marshal:   func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
			unmarshal: json.Unmarshal,
		}, nil
	case ".yaml", ".yml":
		return datasetCodec{marshal: yaml.Marshal, unmarshal: yaml.Unmarshal}, nil
	case ".msgpack", ".mpk":
		return datasetCodec{marshal: msgpack.Marshal, unmarshal: msgpack.Unmarshal}, nil
	default:
		return datasetCodec{}, fmt.Errorf("unknown dataset format %q (use .json, .yaml or .msgpack)", filepath.Ext(path))
	}
}

// WriteDatasetFile encodes f according to the file extension of path.
func WriteDatasetFile(path string, f *DatasetFile) error {
	codec, err := codecFor(path)
	if err != nil {
		return err
	}
	data, err := codec.marshal(f)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadDatasetFile decodes a dataset written by WriteDatasetFile or by an external
// executor using the same shape.
func ReadDatasetFile(path string) (*DatasetFile, error) {
	codec, err := codecFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f DatasetFile
	if err := codec.unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &f, nil
}
