package procedure

import (
	"context"

	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// NewBuiltinRegistry returns a registry holding the db.* and dbms.*
// introspection procedures.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// RegisterBuiltins adds the introspection procedures to r
func RegisterBuiltins(r *Registry) {
	r.MustRegister(&Signature{
		Name:        "db.labels",
		Results:     []Column{{Name: "label", Type: value.KindString}},
		ReadOnly:    true,
		Description: "List all vertex labels declared in the schema.",
		Impl: func(_ context.Context, env Env, _ []value.Value) ([][]value.Value, error) {
			return stringRows(env.Schema.Labels()), nil
		},
	})
	r.MustRegister(&Signature{
		Name:        "db.relationshipTypes",
		Results:     []Column{{Name: "relationshipType", Type: value.KindString}},
		ReadOnly:    true,
		Description: "List all relationship types declared in the schema.",
		Impl: func(_ context.Context, env Env, _ []value.Value) ([][]value.Value, error) {
			return stringRows(env.Schema.RelationshipTypes()), nil
		},
	})
	r.MustRegister(&Signature{
		Name:        "db.propertyKeys",
		Results:     []Column{{Name: "propertyKey", Type: value.KindString}},
		ReadOnly:    true,
		Description: "List all property keys declared in the schema.",
		Impl: func(_ context.Context, env Env, _ []value.Value) ([][]value.Value, error) {
			return stringRows(env.Schema.PropertyKeys()), nil
		},
	})
	r.MustRegister(&Signature{
		Name: "db.primaryKeys",
		Results: []Column{
			{Name: "label", Type: value.KindString},
			{Name: "propertyKey", Type: value.KindString},
		},
		ReadOnly:    true,
		Description: "List the primary key of every label that declares one.",
		Impl: func(_ context.Context, env Env, _ []value.Value) ([][]value.Value, error) {
			var rows [][]value.Value
			for _, l := range env.Schema.Labels() {
				if pk, ok := env.Schema.PrimaryKey(l); ok {
					rows = append(rows, []value.Value{value.String(l), value.String(pk)})
				}
			}
			return rows, nil
		},
	})
	r.MustRegister(&Signature{
		Name: "dbms.procedures",
		Results: []Column{
			{Name: "name", Type: value.KindString},
			{Name: "signature", Type: value.KindString},
			{Name: "read_only", Type: value.KindBool},
		},
		ReadOnly:    true,
		Description: "List every registered procedure.",
		Impl: func(_ context.Context, _ Env, _ []value.Value) ([][]value.Value, error) {
			sigs := r.List()
			rows := make([][]value.Value, len(sigs))
			for i, s := range sigs {
				rows[i] = []value.Value{value.String(s.Name), value.String(s.String()), value.Bool(s.ReadOnly)}
			}
			return rows, nil
		},
	})
}

func stringRows(items []string) [][]value.Value {
	rows := make([][]value.Value, len(items))
	for i, s := range items {
		rows[i] = []value.Value{value.String(s)}
	}
	return rows
}
