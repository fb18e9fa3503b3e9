// Package luciddcmder
package luciddcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/lucidjournal/lucidd/cmd/lucidd/config"
	reconcilecmder "github.com/lucidjournal/lucidd/cmd/lucidd/reconcile"
	servecmder "github.com/lucidjournal/lucidd/cmd/lucidd/serve"
)

const luciddLongDesc string = `Lucidd is a dream journal service with AI enrichment.

Run services using:
  lucidd serve         Run the API server with async enrichment
  lucidd reconcile     Repair the vector index from the document store
  lucidd config        Manage persistent configuration`

const luciddShortDesc string = "Lucidd - Dream Journal"

func NewLuciddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lucidd",
		Short: luciddShortDesc,
		Long:  luciddLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config-dir", "c", "", "Override the .lucidd/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(reconcilecmder.NewReconcileCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}
