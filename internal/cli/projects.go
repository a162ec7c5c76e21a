package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"solverd/internal/registry"
	"solverd/internal/strategy"
)

type projectRow struct {
	Name     string   `json:"name"`
	Strategy string   `json:"strategy"`
	Builtin  bool     `json:"builtin_strategy"`
	Models   []string `json:"models"`
	Inputs   int      `json:"inputs"`
	Titles   int      `json:"titles"`
}

func projectsCmd(a *app) *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "projects",
		Short: "Scan the root directory and list loadable projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, skipped, err := registry.LoadDir(a.cfg.Root, a.log)
			if err != nil {
				return err
			}
			rows := make([]projectRow, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, projectRow{
					Name:     p.Name,
					Strategy: p.Strategy,
					Builtin:  strategy.IsBuiltin(p.Strategy),
					Models:   p.ModelNames(),
					Inputs:   len(p.InputImages()),
					Titles:   len(p.TitleImages()),
				})
			}
			if asJSON {
				b, err := sonic.ConfigStd.MarshalIndent(rows, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.out, string(b))
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTRATEGY\tMODELS\tINPUTS\tTITLES")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", r.Name, r.Strategy, len(r.Models), r.Inputs, r.Titles)
			}
			for _, s := range skipped {
				fmt.Fprintf(tw, "%s\t(skipped: %v)\t\t\t\n", s.Name, s.Err)
			}
			return tw.Flush()
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return c
}
