// Package reconcilecmder provides the reconcile command that repairs the
// vector index from the document store.
package reconcilecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucidjournal/lucidd/pkg/bootstrap"
	"github.com/lucidjournal/lucidd/pkg/logger"

	servecmder "github.com/lucidjournal/lucidd/cmd/lucidd/serve"
)

const reconcileLongDesc string = `Walk every stored dream and repair the vector index.

Records without an embedding are embedded and indexed; records whose index
entry is missing or stale are re-upserted from the document store. The
document store always wins.`

func NewReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair the vector index from the document store",
		Long:  reconcileLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			configDir, err := cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %v", err)
			}

			log := logger.NewLogger(debug)
			defer log.Sync()

			cfg, err := servecmder.LoadConfig(configDir)
			if err != nil {
				return err
			}

			sys, err := bootstrap.Build(cfg, configDir, log)
			if err != nil {
				return fmt.Errorf("building system: %w", err)
			}
			defer sys.Close()

			return sys.Journal.Reconcile(context.Background())
		},
	}
}
