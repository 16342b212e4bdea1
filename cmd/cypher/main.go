// Command cypher runs Cypher queries against an in-memory graph loaded from
// a YAML fixture.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-cypher/pkg/config"
	"github.com/dd0wney/cluso-cypher/pkg/engine"
	"github.com/dd0wney/cluso-cypher/pkg/graph/memgraph"
	"github.com/dd0wney/cluso-cypher/pkg/logging"
	"github.com/dd0wney/cluso-cypher/pkg/metrics"
)

// rootOptions holds the flags shared by every command
type rootOptions struct {
	Fixture     string
	ConfigPath  string
	Verbose     bool
	MetricsFile string
	Params      []string

	started time.Time
	graph   *memgraph.Graph
	engine  *engine.Engine
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{started: time.Now()}

	cmd := &cobra.Command{
		Use:           "cypher",
		Short:         "Compile and run Cypher queries",
		Long:          "Compile and run Cypher queries against an in-memory property graph loaded from a YAML fixture.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.MetricsFile == "" || opts.engine == nil {
				return nil
			}
			m := opts.engine.Metrics()
			m.UpdateSystemMetrics(opts.started)
			return m.WriteFile(opts.MetricsFile)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Fixture, "fixture", "f", "", "YAML fixture with the schema and initial graph")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level to stderr")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics here on exit")
	cmd.PersistentFlags().StringArrayVarP(&opts.Params, "param", "p", nil, "query parameter as name=value (value is YAML)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newExplainCommand(opts))
	cmd.AddCommand(newShellCommand(opts))

	return cmd
}

// open loads the configuration and the fixture and starts the engine
func (o *rootOptions) open(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	level := cfg.Level()
	if o.Verbose {
		level = logging.DebugLevel
	}
	logger := logging.NewJSONLogger(cmd.ErrOrStderr(), level)

	var g *memgraph.Graph
	if o.Fixture == "" {
		g, err = memgraph.LoadFixture(strings.NewReader(""))
	} else {
		g, err = memgraph.LoadFixtureFile(o.Fixture)
	}
	if err != nil {
		return err
	}
	o.graph = g

	o.engine, err = engine.New(g, cfg,
		engine.WithLogger(logger),
		engine.WithMetrics(metrics.NewRegistryWithNamespace(cfg.MetricsNamespace)),
	)
	return err
}
