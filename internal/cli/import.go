package cli

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/spf13/cobra"

	"solverd/internal/bundle"
	"solverd/internal/layout"
)

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Decode bundles and report what they carry without installing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := bundle.New(bundle.Config{Secret: a.cfg.EncryptionKey, Logger: &a.log})
			failed := 0
			for _, f := range args {
				data, err := os.ReadFile(f)
				if err != nil {
					return err
				}
				pkg, err := codec.Open(data)
				if err != nil {
					failed++
					fmt.Fprintf(a.out, "%s\tinvalid\t%v\n", f, err)
					continue
				}
				expiry := "never"
				if d, ok := pkg.Deadline(); ok {
					if !d.After(time.Now()) {
						expiry = "expired " + d.Format(time.RFC3339)
					} else {
						expiry = d.Format(time.RFC3339)
					}
				}
				models := 0
				for _, n := range pkg.Tree.Names() {
					if path.Base(n) == layout.ModelConfigFile {
						models++
					}
				}
				fmt.Fprintf(a.out, "%s\t%s\trotating=%t\tentries=%d\tmodels=%d\texpires=%s\n",
					f, pkg.Project, pkg.Rotating, pkg.Tree.Len(), models, expiry)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d bundles invalid", failed, len(args))
			}
			return nil
		},
	}
}
