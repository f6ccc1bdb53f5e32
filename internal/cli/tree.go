package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-inovesa/hdf5"
)

func newTreeCmd(a *app) *cobra.Command {
	var attrs bool
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "tree FILE",
		Short: "Print the HDF5 object tree of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hdf5.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (superblock v%d)\n", f.Path(), f.Version())
			return hdf5.Walk(f.Root(), func(p string, obj hdf5.Object, err error) error {
				depth := len(hdf5.SplitPath(p))
				indent := strings.Repeat("  ", depth)
				if err != nil {
					fmt.Fprintf(out, "%s%s: error: %v\n", indent, p, err)
					return nil
				}
				if maxDepth > 0 && depth > maxDepth {
					return hdf5.SkipGroup
				}
				printObject(out, indent, obj)
				if attrs {
					printAttrs(out, indent+"    ", obj)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&attrs, "attrs", "a", false, "Print attribute values")
	cmd.Flags().IntVar(&maxDepth, "depth", 0, "Stop descending below this depth (0: no limit)")
	return cmd
}

func printObject(w io.Writer, indent string, obj hdf5.Object) {
	name := obj.Name()
	switch o := obj.(type) {
	case *hdf5.Group:
		members, _ := o.Members()
		fmt.Fprintf(w, "%s%s/ (%d members)\n", indent, name, len(members))
	case *hdf5.Dataset:
		line := fmt.Sprintf("%s%s %v %s%d", indent, name, o.Shape(), o.Class(), o.ElemSize()*8)
		if o.Chunked() {
			line += " chunked"
		}
		if filters := o.Filters(); len(filters) > 0 {
			line += " [" + strings.Join(filters, ",") + "]"
		}
		fmt.Fprintln(w, line)
	}
}

func printAttrs(w io.Writer, indent string, obj hdf5.Object) {
	list, err := obj.Attrs()
	if err != nil {
		fmt.Fprintf(w, "%s@ error: %v\n", indent, err)
		return
	}
	for _, at := range list {
		v, err := at.Value()
		if err != nil {
			fmt.Fprintf(w, "%s@%s: %v\n", indent, at.Name(), err)
			continue
		}
		fmt.Fprintf(w, "%s@%s = %s\n", indent, at.Name(), formatAny(v))
	}
}
