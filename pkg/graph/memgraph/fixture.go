package memgraph

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/validation"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// Fixture is the YAML document describing a schema and its initial data.
//
//	schema:
//	  labels:
//	    - {name: Person, primary_key: name, properties: [age]}
//	  relationships:
//	    - {name: KNOWS}
//	vertices:
//	  - {key: alice, labels: [Person], properties: {name: alice, age: 30}}
//	edges:
//	  - {from: alice, to: bob, type: KNOWS}
type Fixture struct {
	Schema struct {
		Labels        []LabelSchema        `yaml:"labels" validate:"dive"`
		Relationships []RelationshipSchema `yaml:"relationships" validate:"dive"`
	} `yaml:"schema"`
	Vertices []FixtureVertex `yaml:"vertices" validate:"dive"`
	Edges    []FixtureEdge   `yaml:"edges" validate:"dive"`
}

// FixtureVertex is one vertex; Key names it for edge endpoints
type FixtureVertex struct {
	Key        string         `yaml:"key" validate:"required"`
	Labels     []string       `yaml:"labels" validate:"required,min=1"`
	Properties map[string]any `yaml:"properties"`
}

// FixtureEdge connects two fixture vertices by key
type FixtureEdge struct {
	From       string         `yaml:"from" validate:"required"`
	To         string         `yaml:"to" validate:"required"`
	Type       string         `yaml:"type" validate:"required"`
	Properties map[string]any `yaml:"properties"`
}

// LoadFixture decodes and validates a fixture and builds a committed graph
// from it.
func LoadFixture(r io.Reader) (*Graph, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := validation.Struct(&fx); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return fx.Build()
}

// LoadFixtureFile loads a fixture from path
func LoadFixtureFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFixture(f)
}

// Build creates the graph in a single write transaction
func (fx *Fixture) Build() (*Graph, error) {
	schema, err := NewSchema(fx.Schema.Labels, fx.Schema.Relationships)
	if err != nil {
		return nil, err
	}
	g := New(schema)

	txn, err := g.Begin(context.Background(), false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	ids := make(map[string]graph.VertexID, len(fx.Vertices))
	for _, fv := range fx.Vertices {
		if _, dup := ids[fv.Key]; dup {
			return nil, fmt.Errorf("vertex key %q used twice", fv.Key)
		}
		props, err := convertProps(fv.Properties)
		if err != nil {
			return nil, fmt.Errorf("vertex %s: %w", fv.Key, err)
		}
		v, err := txn.CreateVertex(fv.Labels, props)
		if err != nil {
			return nil, fmt.Errorf("vertex %s: %w", fv.Key, err)
		}
		ids[fv.Key] = v.ID
	}

	for i, fe := range fx.Edges {
		src, ok := ids[fe.From]
		if !ok {
			return nil, fmt.Errorf("edge %d: unknown vertex key %q", i, fe.From)
		}
		dst, ok := ids[fe.To]
		if !ok {
			return nil, fmt.Errorf("edge %d: unknown vertex key %q", i, fe.To)
		}
		props, err := convertProps(fe.Properties)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		if _, err := txn.CreateEdge(src, dst, fe.Type, props); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return g, nil
}

func convertProps(in map[string]any) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(in))
	for k, raw := range in {
		if err := validation.ValidatePropertyKey(k); err != nil {
			return nil, err
		}
		v, err := value.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
