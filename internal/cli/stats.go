package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"
)

type summary struct {
	N      int     `json:"n"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Median float64 `json:"median"`
}

func summarize(data []float64) (summary, error) {
	s := summary{N: len(data)}
	var err error
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	return s, nil
}

func newStatsCmd(a *app) *cobra.Command {
	var flags componentFlags
	cmd := &cobra.Command{
		Use:   "stats FILE QUANTITY ROLE",
		Short: "Summarize one component of a quantity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, unit, err := flags.load(a, args)
			if err != nil {
				return err
			}
			vals, err := comp.Values()
			if err != nil {
				return err
			}
			s, err := summarize(vals)
			if err != nil {
				return fmt.Errorf("%s: %w", comp.Name(), err)
			}

			out := cmd.OutOrStdout()
			if a.json() {
				return writeJSON(out, s)
			}
			fmt.Fprintf(out, "%s (%s values, unit %s)\n", comp.Name(), humanize.Comma(int64(s.N)), unit)
			fmt.Fprintf(out, "  min    %g\n", s.Min)
			fmt.Fprintf(out, "  max    %g\n", s.Max)
			fmt.Fprintf(out, "  mean   %g\n", s.Mean)
			fmt.Fprintf(out, "  stddev %g\n", s.StdDev)
			fmt.Fprintf(out, "  median %g\n", s.Median)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
