package network

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML layout of a network.
type File struct {
	Stations []StationRecord `yaml:"stations" validate:"required,min=1,dive"`
	Edges    []EdgeRecord    `yaml:"edges" validate:"dive"`
}

// StationRecord is one station entry of a network file.
type StationRecord struct {
	ID   string  `yaml:"id" validate:"required"`
	Name string  `yaml:"name"`
	Line string  `yaml:"line"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

// EdgeRecord is one connection entry of a network file. Connections are
// bidirectional unless OneWay is set.
type EdgeRecord struct {
	From    string  `yaml:"from" validate:"required"`
	To      string  `yaml:"to" validate:"required"`
	Minutes float64 `yaml:"minutes" validate:"gte=0"`
	Kind    string  `yaml:"kind" validate:"omitempty,oneof=transit transfer"`
	OneWay  bool    `yaml:"oneway"`
}

// LoadFile reads a YAML network file from path.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open network file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses and validates a YAML network document and builds the Graph.
func Decode(r io.Reader) (*Graph, error) {
	var doc File
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyNetwork
		}
		return nil, fmt.Errorf("decode network file: %w", err)
	}
	if len(doc.Stations) == 0 {
		return nil, ErrEmptyNetwork
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("validate network file: %w", err)
	}
	return doc.Build()
}

// Build converts the decoded records into a Graph.
func (doc *File) Build() (*Graph, error) {
	b := NewBuilder()
	for _, s := range doc.Stations {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		if err := b.AddStation(Station{ID: s.ID, Name: name, Line: s.Line, X: s.X, Y: s.Y}); err != nil {
			return nil, err
		}
	}
	for i, e := range doc.Edges {
		kind := Transit
		if e.Kind == string(Transfer) {
			kind = Transfer
		}
		var err error
		if e.OneWay {
			err = b.AddArc(e.From, e.To, e.Minutes, kind)
		} else {
			err = b.AddEdge(e.From, e.To, e.Minutes, kind)
		}
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return b.Build()
}
