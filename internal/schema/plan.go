// Package schema describes the collections and indexes a store must carry.
package schema

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Direction is the sort order of one index key.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// String renders the direction the way the store spells it in index names.
func (d Direction) String() string {
	return strconv.Itoa(int(d))
}

// UnmarshalYAML accepts 1, -1, asc, desc, ascending and descending.
func (d *Direction) UnmarshalYAML(value *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(value.Value)) {
	case "1", "asc", "ascending":
		*d = Ascending
	case "-1", "desc", "descending":
		*d = Descending
	default:
		return errors.Errorf("line %d: invalid index direction %q", value.Line, value.Value)
	}
	return nil
}

// KeyField is one field of an index key pattern.
type KeyField struct {
	Field string    `yaml:"field"`
	Order Direction `yaml:"order"`
}

// IndexSpec declares one index.
type IndexSpec struct {
	Name   string     `yaml:"name,omitempty"`
	Keys   []KeyField `yaml:"keys"`
	Unique bool       `yaml:"unique,omitempty"`
}

// IndexName returns the explicit name, or the name the store generates
// for the key pattern (email_1, fecha_-1).
func (s IndexSpec) IndexName() string {
	if s.Name != "" {
		return s.Name
	}
	parts := make([]string, 0, len(s.Keys)*2)
	for _, key := range s.Keys {
		parts = append(parts, key.Field, key.Order.String())
	}
	return strings.Join(parts, "_")
}

// SameKeys reports whether keys has the same fields in the same order and
// directions as the spec.
func (s IndexSpec) SameKeys(keys []KeyField) bool {
	if len(keys) != len(s.Keys) {
		return false
	}
	for i := range keys {
		if keys[i] != s.Keys[i] {
			return false
		}
	}
	return true
}

// KeyPattern renders the keys as a shell document, e.g. { "fecha": -1 }.
func (s IndexSpec) KeyPattern() string {
	parts := make([]string, 0, len(s.Keys))
	for _, key := range s.Keys {
		parts = append(parts, fmt.Sprintf("%q: %d", key.Field, key.Order))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// CollectionSpec declares one collection and its indexes.
type CollectionSpec struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Indexes     []IndexSpec `yaml:"indexes,omitempty"`
}

// Plan is the ordered list of collections to provision.
type Plan struct {
	Collections []CollectionSpec `yaml:"collections"`
}

// Collection returns the named collection spec.
func (p *Plan) Collection(name string) (CollectionSpec, bool) {
	for _, c := range p.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return CollectionSpec{}, false
}

// IndexCount returns the number of indexes across all collections.
func (p *Plan) IndexCount() int {
	n := 0
	for _, c := range p.Collections {
		n += len(c.Indexes)
	}
	return n
}

//go:embed default-plan.yaml
var embeddedPlan embed.FS

// DefaultPlan returns the embedded plan for the authentication system.
func DefaultPlan() (*Plan, error) {
	data, err := embeddedPlan.ReadFile("default-plan.yaml")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read embedded plan")
	}
	return ParsePlan(data)
}

// LoadPlan reads a plan file from disk.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read plan file: %s", path)
	}
	return ParsePlan(data)
}

// ParsePlan decodes a YAML plan. Unknown keys are rejected.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to parse plan")
	}
	return &plan, nil
}
