package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"solverd/internal/categories"
)

func categoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories [table]",
		Short: "List builtin category tables or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				tbl, ok := categories.Lookup(args[0])
				if !ok {
					return fmt.Errorf("unknown category table %q (known: %s)", args[0], strings.Join(categories.Names(), ", "))
				}
				for _, c := range tbl {
					fmt.Fprintln(a.out, c)
				}
				return nil
			}
			for _, n := range categories.Names() {
				tbl, _ := categories.Lookup(n)
				fmt.Fprintf(a.out, "%s\t%d\n", n, len(tbl))
			}
			return nil
		},
	}
}
