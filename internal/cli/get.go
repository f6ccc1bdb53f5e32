package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-inovesa/lisa"
)

type getResult struct {
	Quantity lisa.Quantity `json:"quantity"`
	Role     string        `json:"role"`
	Unit     string        `json:"unit"`
	Shape    []int         `json:"shape"`
	Values   []float64     `json:"values"`
}

// componentFlags are shared by get and stats.
type componentFlags struct {
	unit  string
	index int
}

func (f *componentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.unit, "unit", "u", "", "Convert to this unit (default: stored values)")
	cmd.Flags().IntVarP(&f.index, "index", "i", -1, "Select one element along the first axis")
}

// load opens the archive and returns the requested component, converted.
func (f *componentFlags) load(a *app, args []string) (*lisa.Component, lisa.Unit, error) {
	q := lisa.Quantity(args[1])
	r, err := lisa.ParseRole(args[2])
	if err != nil {
		return nil, lisa.Raw, err
	}
	unit := lisa.Raw
	if f.unit != "" {
		unit = lisa.UnitOf(f.unit)
	}
	var opts []lisa.GetOption
	if f.index >= 0 {
		opts = append(opts, lisa.WithSubIndex(f.index))
	}

	c, err := lisa.OpenConverter(args[0], a.options()...)
	if err != nil {
		return nil, unit, err
	}
	defer c.Close()

	comp, err := c.Get(q, r, unit, opts...)
	if err != nil {
		return nil, unit, fmt.Errorf("%s %s: %w", q, r, err)
	}
	return comp, unit, nil
}

func newGetCmd(a *app) *cobra.Command {
	var flags componentFlags
	var limit int
	cmd := &cobra.Command{
		Use:   "get FILE QUANTITY ROLE",
		Short: "Print one component of a quantity",
		Long: "Print one component of a quantity. ROLE is one of timeaxis, spaceaxis,\n" +
			"energyaxis, frequencyaxis, data, real, imag, xdata, ydata or datagroup.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, unit, err := flags.load(a, args)
			if err != nil {
				return err
			}
			vals, err := comp.Values()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.json() {
				return writeJSON(out, getResult{
					Quantity: lisa.Quantity(args[1]),
					Role:     args[2],
					Unit:     unit.String(),
					Shape:    comp.Shape(),
					Values:   vals,
				})
			}
			fmt.Fprintf(out, "%s shape=%v unit=%s\n", comp.Name(), comp.Shape(), unit)
			if comp.Group() {
				for _, name := range comp.Attrs().Names() {
					fmt.Fprintf(out, "  @%s = %s\n", name, formatAny(comp.Attrs()[name]))
				}
				return nil
			}
			fmt.Fprintln(out, formatValues(vals, limit))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 10, "Values shown in text output before eliding")
	return cmd
}
