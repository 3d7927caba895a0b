package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// ParseScorecard decodes, validates and compiles a YAML or JSON scorecard document.
func ParseScorecard(data []byte) (*Scorecard, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing scorecard: empty document")
		}
		return nil, fmt.Errorf("parsing scorecard: %w", err)
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("validating scorecard: %w", err)
	}

	sc, err := doc.compile()
	if err != nil {
		return nil, fmt.Errorf("compiling scorecard %q: %w", doc.Name, err)
	}
	return sc, nil
}

// LoadScorecard reads a scorecard document from disk.
func LoadScorecard(path string) (*Scorecard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scorecard: %w", err)
	}
	return ParseScorecard(data)
}
