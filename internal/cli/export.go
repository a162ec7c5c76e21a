package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"solverd/internal/bundle"
	"solverd/internal/manager"
)

func exportCmd(a *app) *cobra.Command {
	var (
		ttl      time.Duration
		rotating bool
		out      string
	)
	c := &cobra.Command{
		Use:     "export <project>...",
		Short:   "Export projects as encrypted bundles",
		Example: "  solverd export clicky --ttl 72h\n  solverd export a b --rotating --out dist",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mcfg, err := a.managerConfig()
			if err != nil {
				return err
			}
			// Bundles in the compile directory are outputs here, not inputs.
			mcfg.CompileDir = ""
			mgr, err := manager.New(mcfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			dir := out
			if dir == "" {
				dir = a.cfg.CompilePath()
			}
			opts := bundle.ExportOptions{TTL: ttl, Rotating: rotating}
			for _, name := range args {
				p, err := mgr.ExportFile(name, dir, opts)
				if err != nil {
					return fmt.Errorf("export %s: %w", name, err)
				}
				fmt.Fprintln(a.out, p)
			}
			return nil
		},
	}
	c.Flags().DurationVar(&ttl, "ttl", 0, "Lifetime of the bundle (0 = unlimited)")
	c.Flags().BoolVar(&rotating, "rotating", false, "Use the time-windowed key (import within 30 minutes)")
	c.Flags().StringVarP(&out, "out", "o", "", "Output directory (default: compile_dir)")
	return c
}
