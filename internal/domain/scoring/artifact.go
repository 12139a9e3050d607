package scoring

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/leadscore/internal/domain/encoding"
)

// artifactVersion is bumped whenever the on-disk layout changes.
const artifactVersion = 1

type artifactFile struct {
	Version  int                `json:"version"`
	Features []string           `json:"features"`
	Codes    encoding.CodeTable `json:"codes"`
	Trees    [][]node           `json:"trees"`
}

// Save writes m as a JSON artifact.
func Save(w io.Writer, m Model) error {
	if m.Forest == nil || len(m.Forest.trees) == 0 {
		return ErrNotTrained
	}
	a := artifactFile{
		Version:  artifactVersion,
		Features: encoding.FeatureNames,
		Codes:    m.Codes,
		Trees:    make([][]node, len(m.Forest.trees)),
	}
	for i, t := range m.Forest.trees {
		a.Trees[i] = t.nodes
	}
	if err := json.NewEncoder(w).Encode(a); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return nil
}

// Load reads an artifact written by Save and validates its structure.
func Load(r io.Reader) (Model, error) {
	var a artifactFile
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return Model{}, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if a.Version != artifactVersion {
		return Model{}, fmt.Errorf("%w: version %d, want %d", ErrInvalidArtifact, a.Version, artifactVersion)
	}
	if len(a.Features) != len(encoding.FeatureNames) {
		return Model{}, fmt.Errorf("%w: %d features, want %d", ErrInvalidArtifact, len(a.Features), len(encoding.FeatureNames))
	}
	for i, name := range a.Features {
		if name != encoding.FeatureNames[i] {
			return Model{}, fmt.Errorf("%w: feature %d is %q, want %q", ErrInvalidArtifact, i, name, encoding.FeatureNames[i])
		}
	}
	if len(a.Trees) == 0 {
		return Model{}, fmt.Errorf("%w: no trees", ErrInvalidArtifact)
	}

	forest := &Forest{features: len(a.Features), trees: make([]*tree, len(a.Trees))}
	for i, nodes := range a.Trees {
		if err := validateNodes(nodes, forest.features); err != nil {
			return Model{}, fmt.Errorf("%w: tree %d: %v", ErrInvalidArtifact, i, err)
		}
		forest.trees[i] = &tree{nodes: nodes}
	}
	return Model{Forest: forest, Codes: a.Codes}, nil
}

// validateNodes checks that every child index points forward inside the
// slice, so prediction always terminates.
func validateNodes(nodes []node, features int) error {
	if len(nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range nodes {
		if n.leaf() {
			if n.Prob < 0 || n.Prob > 1 {
				return fmt.Errorf("node %d: probability %v out of range", i, n.Prob)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= features {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(nodes) || n.Right >= len(nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

// SaveFile writes m to path, creating parent directories.
func SaveFile(path string, m Model) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	if err := Save(f, m); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads an artifact from path.
func LoadFile(path string) (Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return Model{}, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}
