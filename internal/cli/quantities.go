package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-inovesa/lisa"
)

func newQuantitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "quantities FILE",
		Aliases: []string{"q"},
		Short:   "List the quantities of an archive and their roles",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.openArchive(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			table := make(map[lisa.Quantity][]string)
			qs := ar.Quantities()
			for _, q := range qs {
				roles, err := ar.Roles(q)
				if err != nil {
					return err
				}
				for _, r := range roles {
					table[q] = append(table[q], r.String())
				}
			}

			out := cmd.OutOrStdout()
			if a.json() {
				return writeJSON(out, table)
			}
			for _, q := range qs {
				fmt.Fprintf(out, "%-18s %s\n", q, strings.Join(table[q], " "))
			}
			return nil
		},
	}
}
