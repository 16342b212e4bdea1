package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-cypher/pkg/engine"
	"github.com/dd0wney/cluso-cypher/pkg/result"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <query>",
		Short: "Run a query and print its rows",
		Long: `Run a query and print its rows as a table.

Example:
  cypher run -f social.yaml "MATCH (p:Person) RETURN p.name, p.age"
  cypher run -f social.yaml -p min=26 "MATCH (p:Person) WHERE p.age > $min RETURN p"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0])
		},
	}
}

func newExplainCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <query>",
		Short: "Print the execution plan of a query without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.TrimSpace(args[0])
			if !hasPrefixFold(q, "EXPLAIN") && !hasPrefixFold(q, "PROFILE") {
				q = "EXPLAIN " + q
			}
			return runQuery(cmd, opts, q)
		},
	}
}

func runQuery(cmd *cobra.Command, opts *rootOptions, query string) error {
	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := opts.engine.Run(ctx, query, params)
	if err != nil {
		return err
	}
	var out [][]result.Value
	for ; rows.Valid(); rows.Next() {
		out = append(out, rows.Row())
	}
	err = rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, renderText(rows.Header(), out))
	fmt.Fprintln(w, helpStyle.Render(footer(rows, len(out))))
	return nil
}

// footer summarizes a finished query below its table
func footer(rows *engine.Rows, n int) string {
	msg := fmt.Sprintf("%d row(s)", n)
	if rows.Truncated() {
		msg += ", truncated at the row limit"
	}
	if rows.Kind() == engine.KindWrite {
		st := rows.Stats()
		msg += "; " + st.Summary()
	}
	return msg
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
