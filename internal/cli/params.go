package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newParamsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "params FILE [NAME...]",
		Short: "Print simulation parameters",
		Long: "Print simulation parameters. Without names, all parameters stored in the\n" +
			"archive are printed; legacy archives keep theirs in the .cfg sidecar and\n" +
			"must be asked by name.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.openArchive(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			names := args[1:]
			values := make(map[string]any)
			if len(names) == 0 {
				params, err := ar.Parameters()
				if err != nil {
					return err
				}
				names = params.Names()
				for _, n := range names {
					values[n] = params[n]
				}
			} else {
				set, err := ar.ParameterSet(names...)
				if err != nil {
					return err
				}
				for i, n := range set.Names() {
					values[n] = set.At(i)
				}
			}

			out := cmd.OutOrStdout()
			if a.json() {
				return writeJSON(out, values)
			}
			for _, n := range names {
				fmt.Fprintf(out, "%s = %s\n", n, formatAny(values[n]))
			}
			return nil
		},
	}
}
