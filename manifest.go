package detprep

// The dataset manifest consumed by the training component.

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest describes a dataset: its root, the image directory of each split relative to the root
// and the class names by id.
type Manifest struct {
	Path  string         `yaml:"path"`
	Train string         `yaml:"train"`
	Val   string         `yaml:"val"`
	Test  string         `yaml:"test"`
	Names map[int]string `yaml:"names"`
}

// NewManifest derives the manifest for the dataset at root from the vocabulary.
func NewManifest(root string, vocab *Vocabulary) Manifest {
	l := Layout{Root: root}
	m := Manifest{
		Path:  filepath.ToSlash(root),
		Train: l.RelImageDir(Train),
		Val:   l.RelImageDir(Val),
		Test:  l.RelImageDir(Test),
		Names: make(map[int]string, vocab.Len()),
	}
	for _, c := range vocab.Entries() {
		m.Names[c.ID] = c.Name
	}
	return m
}

// ClassNames returns the names in id order. It fails if the ids are not contiguous from zero.
func (m Manifest) ClassNames() ([]string, error) {
	names := make([]string, len(m.Names))
	for i := range names {
		name, ok := m.Names[i]
		if !ok {
			return nil, fmt.Errorf("manifest has no class with id %d", i)
		}
		names[i] = name
	}
	return names, nil
}

// Marshal encodes the manifest as YAML. Names are emitted in id order.
func (m Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteManifest writes m to path, replacing any existing file.
func WriteManifest(path string, m Manifest) error {
	enc, err := m.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, enc, 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %w", path, err)
	}
	return nil
}

// ReadManifest loads the manifest at path.
func ReadManifest(path string) (Manifest, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}

	var m Manifest
	if err := yaml.Unmarshal(enc, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest %q: %w", path, err)
	}
	return m, nil
}
