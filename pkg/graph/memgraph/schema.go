package memgraph

import (
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-cypher/pkg/validation"
)

// LabelSchema declares a vertex label
type LabelSchema struct {
	Name       string   `yaml:"name" validate:"required"`
	PrimaryKey string   `yaml:"primary_key"`
	Properties []string `yaml:"properties"`
}

// RelationshipSchema declares an edge type
type RelationshipSchema struct {
	Name       string   `yaml:"name" validate:"required"`
	Properties []string `yaml:"properties"`
}

// Schema is an immutable label/type/key catalog
type Schema struct {
	labels   map[string]LabelSchema
	relTypes map[string]RelationshipSchema
	keys     map[string]bool
}

// NewSchema validates and indexes the declarations
func NewSchema(labels []LabelSchema, rels []RelationshipSchema) (*Schema, error) {
	s := &Schema{
		labels:   make(map[string]LabelSchema, len(labels)),
		relTypes: make(map[string]RelationshipSchema, len(rels)),
		keys:     make(map[string]bool),
	}

	for _, l := range labels {
		if err := validation.ValidateLabel(l.Name); err != nil {
			return nil, err
		}
		if _, dup := s.labels[l.Name]; dup {
			return nil, fmt.Errorf("label %q declared twice", l.Name)
		}
		props := append([]string(nil), l.Properties...)
		if l.PrimaryKey != "" && !contains(props, l.PrimaryKey) {
			props = append(props, l.PrimaryKey)
		}
		for _, k := range props {
			if err := validation.ValidatePropertyKey(k); err != nil {
				return nil, fmt.Errorf("label %s: %w", l.Name, err)
			}
			s.keys[k] = true
		}
		l.Properties = props
		s.labels[l.Name] = l
	}

	for _, r := range rels {
		if err := validation.ValidateLabel(r.Name); err != nil {
			return nil, err
		}
		if _, dup := s.relTypes[r.Name]; dup {
			return nil, fmt.Errorf("relationship type %q declared twice", r.Name)
		}
		for _, k := range r.Properties {
			if err := validation.ValidatePropertyKey(k); err != nil {
				return nil, fmt.Errorf("relationship %s: %w", r.Name, err)
			}
			s.keys[k] = true
		}
		s.relTypes[r.Name] = r
	}
	return s, nil
}

func (s *Schema) Labels() []string {
	out := make([]string, 0, len(s.labels))
	for name := range s.labels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Schema) RelationshipTypes() []string {
	out := make([]string, 0, len(s.relTypes))
	for name := range s.relTypes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Schema) PropertyKeys() []string {
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Schema) HasLabel(label string) bool {
	_, ok := s.labels[label]
	return ok
}

func (s *Schema) HasRelationshipType(typ string) bool {
	_, ok := s.relTypes[typ]
	return ok
}

func (s *Schema) HasPropertyKey(key string) bool { return s.keys[key] }

func (s *Schema) PrimaryKey(label string) (string, bool) {
	l, ok := s.labels[label]
	if !ok || l.PrimaryKey == "" {
		return "", false
	}
	return l.PrimaryKey, true
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
