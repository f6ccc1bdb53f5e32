// Package cli implements the lisa command line tool.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-inovesa/internal/logger"
	"github.com/robert-malhotra/go-inovesa/lisa"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	logLevel    string
	logPretty   bool
	format      string
	showMetrics bool

	log      *logger.Logger
	registry *prometheus.Registry
}

// NewRootCmd builds the command tree. Flag defaults come from LISA_LOG_LEVEL
// and LISA_LOG_PRETTY.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}
	pretty, _ := strconv.ParseBool(os.Getenv("LISA_LOG_PRETTY"))

	root := &cobra.Command{
		Use:   "lisa",
		Short: "Inspect Inovesa result archives",
		Long: "Reads Inovesa HDF5 result archives of any release, applies the known\n" +
			"corrections of older releases and converts values to physical units.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.format != "json" && a.format != "text" {
				return fmt.Errorf("unknown format %q, want json or text", a.format)
			}
			a.log = logger.NewLogger(logger.Config{
				Level:  a.logLevel,
				Pretty: a.logPretty,
				Output: cmd.ErrOrStderr(),
			})
			a.registry = prometheus.NewRegistry()
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.showMetrics {
				return nil
			}
			return writeMetrics(cmd.ErrOrStderr(), a.registry)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", envOr("LISA_LOG_LEVEL", "warn"), "Log level: trace, debug, info, warn, error or disabled")
	flags.BoolVar(&a.logPretty, "log-pretty", pretty, "Human-readable log output")
	flags.StringVarP(&a.format, "format", "f", "text", "Output format: json or text")
	flags.BoolVar(&a.showMetrics, "metrics", false, "Print load and conversion counters to stderr when done")

	root.AddCommand(
		newInfoCmd(a),
		newQuantitiesCmd(a),
		newGetCmd(a),
		newStatsCmd(a),
		newParamsCmd(a),
		newLsCmd(a),
		newTreeCmd(a),
	)
	return root, a
}

// Execute loads .env, runs the command line and exits non-zero on failure.
func Execute() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	root, a := newRoot()
	start := time.Now()
	cmd, err := root.ExecuteC()
	if a.log != nil {
		a.log.LogCommand(cmd.Name(), time.Since(start), err)
	}
	if err != nil {
		exitErr(cmd.Name(), err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// options returns the lisa options every command opens archives with.
func (a *app) options() []lisa.Option {
	return []lisa.Option{
		lisa.WithLogger(a.log.Zerolog()),
		lisa.WithRegisterer(a.registry),
	}
}

func (a *app) openArchive(path string) (*lisa.Archive, error) {
	return lisa.Open(path, a.options()...)
}

func (a *app) json() bool { return a.format == "json" }

// writeMetrics prints the gathered metrics in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, f := range families {
		if _, err := expfmt.MetricFamilyToText(w, f); err != nil {
			return fmt.Errorf("writing %s: %w", f.GetName(), err)
		}
	}
	return nil
}
