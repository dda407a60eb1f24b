// Package loader reads contact records from outside sources: YAML fixture
// files and a Neo4j database holding the Person/Place/VISITS graph.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/models"
)

// ReadYAML decodes a contact graph document:
//
//	persons:
//	  - {name: Alice, health_status: Sick, confirmed_time: 2021-03-01T10:00:00Z}
//	places:
//	  - {name: Pub, type: Bar}
//	visits:
//	  - {person: Alice, place: Pub, start_time: ..., end_time: ...}
//
// Unknown keys are rejected. The records are not checked against each other;
// graph.Build does that.
func ReadYAML(r io.Reader) (*models.ContactGraph, error) {
	g := &models.ContactGraph{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(g); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperr.Validation("decode contact graph: %v", err).WithCause(err)
	}
	return g, nil
}

// ReadFile reads a YAML contact graph from path.
func ReadFile(path string) (*models.ContactGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadYAML(f)
}
