package plan

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/graph"
)

// Derivation records where a pattern element comes from
type Derivation byte

const (
	// Matched elements are found by scanning or expanding
	Matched Derivation = 'M'
	// Argument elements were bound by an earlier clause
	Argument Derivation = 'A'
	// Created elements are written by CREATE
	Created Derivation = 'C'
)

// PatternNode is one node variable of a pattern segment
type PatternNode struct {
	ID         int
	Alias      string
	Labels     []string
	Derivation Derivation
}

// PatternEdge is one relationship variable of a pattern segment
type PatternEdge struct {
	Src, Dst   int
	Alias      string
	Types      []string
	Dir        graph.Direction
	Derivation Derivation
}

// PatternGraph describes the nodes and relationships of one MATCH,
// OPTIONAL MATCH or CREATE
type PatternGraph struct {
	Clause string
	Nodes  []*PatternNode
	Edges  []*PatternEdge

	byAlias map[string]*PatternNode
}

func newPatternGraph(clause string) *PatternGraph {
	return &PatternGraph{Clause: clause, byAlias: make(map[string]*PatternNode)}
}

// node returns the node for alias, adding it on first sight
func (g *PatternGraph) node(alias string, labels []string, d Derivation) *PatternNode {
	if n, ok := g.byAlias[alias]; ok {
		for _, l := range labels {
			if !containsString(n.Labels, l) {
				n.Labels = append(n.Labels, l)
			}
		}
		return n
	}
	n := &PatternNode{ID: len(g.Nodes), Alias: alias, Labels: append([]string(nil), labels...), Derivation: d}
	g.Nodes = append(g.Nodes, n)
	g.byAlias[alias] = n
	return n
}

func (g *PatternGraph) edge(src, dst *PatternNode, alias string, types []string, dir graph.Direction, d Derivation) {
	if dir == graph.Incoming {
		src, dst, dir = dst, src, graph.Outgoing
	}
	g.Edges = append(g.Edges, &PatternEdge{
		Src:        src.ID,
		Dst:        dst.ID,
		Alias:      alias,
		Types:      append([]string(nil), types...),
		Dir:        dir,
		Derivation: d,
	})
}

// Node returns the node bound to alias
func (g *PatternGraph) Node(alias string) (*PatternNode, bool) {
	n, ok := g.byAlias[alias]
	return n, ok
}

// String renders the graph one element per line
func (g *PatternGraph) String() string {
	var b strings.Builder
	b.WriteString("Current Pattern Graph:\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "N[%d] %s", n.ID, n.Alias)
		if len(n.Labels) > 0 {
			b.WriteString(":" + strings.Join(n.Labels, ":"))
		}
		fmt.Fprintf(&b, " (%c)\n", n.Derivation)
	}
	for _, e := range g.Edges {
		arrow := "-->"
		if e.Dir == graph.Both {
			arrow = "--"
		}
		fmt.Fprintf(&b, "R[%d %s %d] %s", e.Src, arrow, e.Dst, e.Alias)
		if len(e.Types) > 0 {
			b.WriteString(":" + strings.Join(e.Types, "|"))
		}
		fmt.Fprintf(&b, " (%c)\n", e.Derivation)
	}
	return b.String()
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
