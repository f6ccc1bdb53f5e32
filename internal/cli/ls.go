package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-inovesa/lisa"
)

type catalogEntry struct {
	Path         string   `json:"path"`
	Size         int64    `json:"size"`
	BunchCurrent *float64 `json:"bunch_current"`
}

func newLsCmd(a *app) *cobra.Command {
	var pattern string
	cmd := &cobra.Command{
		Use:   "ls [DIR]",
		Short: "List the archives of a scan, highest bunch current first",
		Long: "List the archives of a parameter scan in catalog order. DIR defaults to\n" +
			"$LISA_DIR, then the current directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := envOr("LISA_DIR", ".")
			if len(args) == 1 {
				dir = args[0]
			}
			c, err := lisa.OpenCatalog(dir, pattern, a.options()...)
			if err != nil {
				return err
			}
			defer c.Close()

			var entries []catalogEntry
			for _, p := range c.Paths() {
				e := catalogEntry{Path: p}
				if st, err := os.Stat(p); err == nil {
					e.Size = st.Size()
				}
				s, err := lisa.ReadSidecar(p)
				if err != nil {
					return err
				}
				if v, ok, err := s.Float(lisa.ParamBunchCurrent); err == nil && ok {
					e.BunchCurrent = &v
				}
				entries = append(entries, e)
			}

			out := cmd.OutOrStdout()
			if a.json() {
				return writeJSON(out, entries)
			}
			for _, e := range entries {
				current := "-"
				if e.BunchCurrent != nil {
					current = fmt.Sprintf("%g A", *e.BunchCurrent)
				}
				fmt.Fprintf(out, "%-12s %9s  %s\n", current, humanize.Bytes(uint64(e.Size)), filepath.Base(e.Path))
			}
			fmt.Fprintf(out, "%s archives\n", humanize.Comma(int64(len(entries))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "*.h5", "Glob selecting the archives")
	return cmd
}
