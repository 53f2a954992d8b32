package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/taxguide/internal/content"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Sequences []catalogSequence `yaml:"sequences"`
}

type catalogSequence struct {
	ID    string        `yaml:"id"`
	Title string        `yaml:"title"`
	Units []catalogUnit `yaml:"units"`
}

type catalogUnit struct {
	Key        string `yaml:"key"`
	Path       string `yaml:"path"`
	Title      string `yaml:"title"`
	SequenceID string `yaml:"sequence,omitempty"`
	Kind       string `yaml:"kind,omitempty"`
	Data       string `yaml:"data,omitempty"`
}

// Load decodes a YAML (or JSON) catalog and builds a validated Registry.
func Load(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cf catalogFile
	if err := dec.Decode(&cf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode catalog: %w: no sequences", ErrEmptySequence)
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(cf.Sequences) == 0 {
		return nil, fmt.Errorf("decode catalog: %w: no sequences", ErrEmptySequence)
	}

	seqs := make([]content.Sequence, 0, len(cf.Sequences))
	for _, cs := range cf.Sequences {
		seq := content.Sequence{ID: cs.ID, Title: cs.Title}
		for _, cu := range cs.Units {
			seq.Units = append(seq.Units, content.Unit{
				Key:        cu.Key,
				Path:       cu.Path,
				Title:      cu.Title,
				SequenceID: cu.SequenceID,
				DataRef:    cu.Data,
				Kind:       content.Kind(cu.Kind),
			})
		}
		seqs = append(seqs, seq)
	}
	return New(seqs...)
}

// LoadFile reads a catalog from disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	reg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Default returns the built-in local-tax catalog.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultCatalog))
}
