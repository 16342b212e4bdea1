// Package procedure holds the catalog of callable procedures. The compiler
// consults a Catalog to synthesize YIELD lists and check call arity; the
// executor invokes the resolved Signature's implementation.
package procedure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

var (
	ErrDuplicate    = errors.New("procedure already registered")
	ErrInvalidName  = errors.New("invalid procedure name")
	ErrNoResultCols = errors.New("procedure declares no result columns")
)

// Column is one declared parameter or result column
type Column struct {
	Name string
	Type value.Kind
}

// Env is what a procedure body can reach while it runs
type Env struct {
	Txn    graph.Txn
	Schema graph.Schema
}

// Func is a procedure body. It returns one []value.Value per result row,
// each ordered like Signature.Results.
type Func func(ctx context.Context, env Env, args []value.Value) ([][]value.Value, error)

// Signature declares a procedure
type Signature struct {
	Name        string
	Params      []Column
	Results     []Column
	ReadOnly    bool
	Description string
	Impl        Func
}

// ResultIndex returns the position of the named result column, or -1
func (s *Signature) ResultIndex(name string) int {
	for i, c := range s.Results {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// String renders the signature as name(p :: TYPE) :: (r :: TYPE)
func (s *Signature) String() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	sb.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s :: %s", p.Name, p.Type)
	}
	sb.WriteString(") :: (")
	for i, r := range s.Results {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s :: %s", r.Name, r.Type)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Catalog resolves procedure names to signatures. Implementations must be
// safe for concurrent lookups.
type Catalog interface {
	Lookup(name string) (*Signature, bool)
}

// Registry is the default Catalog
type Registry struct {
	byName map[string]*Signature
	mu     sync.RWMutex
}

var _ Catalog = (*Registry)(nil)

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Signature)}
}

// Register adds a procedure. Names are dotted identifiers and unique.
func (r *Registry) Register(sig *Signature) error {
	if !validName(sig.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, sig.Name)
	}
	if len(sig.Results) == 0 {
		return fmt.Errorf("%s: %w", sig.Name, ErrNoResultCols)
	}
	if sig.Impl == nil {
		return fmt.Errorf("%s: missing implementation", sig.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[sig.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, sig.Name)
	}
	r.byName[sig.Name] = sig
	return nil
}

// MustRegister is Register that panics on error
func (r *Registry) MustRegister(sig *Signature) {
	if err := r.Register(sig); err != nil {
		panic(err)
	}
}

// Lookup returns the signature registered under name
func (r *Registry) Lookup(name string) (*Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sig, ok := r.byName[name]
	return sig, ok
}

// List returns every signature sorted by name
func (r *Registry) List() []*Signature {
	r.mu.RLock()
	out := make([]*Signature, 0, len(r.byName))
	for _, sig := range r.byName {
		out = append(out, sig)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for i, c := range part {
			letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
			if !letter && (i == 0 || c < '0' || c > '9') {
				return false
			}
		}
	}
	return true
}
