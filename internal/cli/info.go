package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-inovesa/lisa"
)

type archiveInfo struct {
	Path       string          `json:"path"`
	Version    string          `json:"version"`
	Size       int64           `json:"size"`
	Legacy     bool            `json:"legacy"`
	Quantities []lisa.Quantity `json:"quantities"`
	Parameters int             `json:"parameters"`
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Show the version and contents of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.openArchive(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			st, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			info := archiveInfo{
				Path:       ar.Path(),
				Version:    ar.Version().String(),
				Size:       st.Size(),
				Legacy:     ar.Version().Legacy(),
				Quantities: ar.Quantities(),
			}
			if params, err := ar.Parameters(); err == nil {
				info.Parameters = len(params)
			} else {
				a.log.Debug().Err(err).Msg("no parameters")
			}

			out := cmd.OutOrStdout()
			if a.json() {
				return writeJSON(out, info)
			}
			fmt.Fprintf(out, "path:       %s\n", info.Path)
			fmt.Fprintf(out, "version:    %s", info.Version)
			if info.Legacy {
				fmt.Fprint(out, " (legacy)")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "size:       %s\n", humanize.Bytes(uint64(info.Size)))
			fmt.Fprintf(out, "quantities: %d\n", len(info.Quantities))
			fmt.Fprintf(out, "parameters: %d\n", info.Parameters)
			return nil
		},
	}
}
