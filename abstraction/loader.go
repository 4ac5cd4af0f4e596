package abstraction

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// strategyFile is the on-disk strategy format:
//
//	name: hu-40
//	tree: nlhe-fchqpwdta-40
//	buckets: {preflop: 8, flop: 8, turn: 8, river: 8}
//	default: uniform
//	rows:
//	  - path: ""          # root, dealer to act
//	    bucket: 7
//	    weights: {c: 0.2, p: 0.5, a: 0.3}
//	  - path: cC
//	    weights: {c: 1}   # no bucket: every bucket
type strategyFile struct {
	Name    string `yaml:"name"`
	Tree    string `yaml:"tree"`
	Buckets struct {
		Preflop int `yaml:"preflop"`
		Flop    int `yaml:"flop"`
		Turn    int `yaml:"turn"`
		River   int `yaml:"river"`
	} `yaml:"buckets"`
	Default string        `yaml:"default"`
	Rows    []strategyRow `yaml:"rows"`
}

type strategyRow struct {
	Path    string             `yaml:"path"`
	Bucket  *int               `yaml:"bucket"`
	Weights map[string]float64 `yaml:"weights"`
}

// ParseStrategy builds a Strategy and its tree from YAML.
func ParseStrategy(data []byte) (*Strategy, error) {
	var f strategyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse strategy: %w", err)
	}
	tree, err := NewTree(f.Tree)
	if err != nil {
		return nil, err
	}

	fallback := FallbackUniform
	switch strings.ToLower(strings.TrimSpace(f.Default)) {
	case "", "uniform":
	case "call":
		fallback = FallbackCall
	default:
		return nil, fmt.Errorf("unknown default %q", f.Default)
	}

	name := f.Name
	if name == "" {
		name = f.Tree
	}
	counts := [4]int{f.Buckets.Preflop, f.Buckets.Flop, f.Buckets.Turn, f.Buckets.River}
	for r, c := range counts {
		if c <= 0 {
			counts[r] = 1
		}
	}
	st := NewStrategy(name, tree, counts, fallback)

	for i, row := range f.Rows {
		n, err := tree.Find(row.Path)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		weights := make([]float64, tree.NumChildren(n))
		for k, w := range row.Weights {
			a, ok := ParseAction(k)
			if !ok {
				return nil, fmt.Errorf("row %d: unknown action %q", i, k)
			}
			idx := tree.ChildIndex(n, a)
			if idx < 0 {
				return nil, fmt.Errorf("row %d: no %s edge at %q", i, a, row.Path)
			}
			weights[idx] = w
		}
		bucket := -1
		if row.Bucket != nil {
			bucket = *row.Bucket
		}
		if err := st.Set(n, bucket, weights); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return st, nil
}

func LoadStrategy(path string) (*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	st, err := ParseStrategy(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}

// LoadArtifact loads every strategy file into one Set keyed by stack depth.
func LoadArtifact(paths ...string) (*Set, error) {
	if len(paths) == 0 {
		return nil, ErrNoStrategy
	}
	strategies := make([]*Strategy, 0, len(paths))
	seen := map[int]string{}
	for _, p := range paths {
		st, err := LoadStrategy(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[st.Depth()]; dup {
			return nil, fmt.Errorf("%s and %s both cover depth %d", prev, p, st.Depth())
		}
		seen[st.Depth()] = p
		strategies = append(strategies, st)
	}
	return NewSet(strategies...), nil
}
