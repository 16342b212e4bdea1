package plan

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/exec"
)

// Columns of the synthetic single-row results
const (
	PlanColumn    = "@plan"
	ProfileColumn = "@profile"
	SummaryColumn = "@summary"
)

func (p *ExecutionPlan) render(line func(op exec.Operator) string) string {
	lines := []string{fmt.Sprintf("ReadOnly:%t", p.readOnly), "Execution Plan:"}
	if p.root != nil {
		exec.Walk(p.root, func(op exec.Operator, depth int) {
			lines = append(lines, strings.Repeat("    ", depth)+line(op))
		})
	}
	return strings.Join(lines, "\n")
}

func describe(op exec.Operator) string {
	if d := op.Detail(); d != "" {
		return op.Name() + " " + d
	}
	return op.Name()
}

// DumpPlan renders the operator tree, one operator per line indented by
// depth. It does not touch the operators' state.
func (p *ExecutionPlan) DumpPlan() string {
	return p.render(describe)
}

// DumpProfile renders the operator tree annotated with the statistics of
// the last run
func (p *ExecutionPlan) DumpProfile() string {
	return p.render(func(op exec.Operator) string {
		st := op.Stats()
		return fmt.Sprintf("%s | Records produced: %d, Execution time: %.6f ms",
			describe(op), st.Rows, float64(st.Time.Nanoseconds())/1e6)
	})
}

// DumpGraph renders the pattern graph of every MATCH and CREATE
func (p *ExecutionPlan) DumpGraph() string {
	parts := make([]string, len(p.patterns))
	for i, g := range p.patterns {
		parts[i] = g.String()
	}
	return strings.Join(parts, "\n")
}
