// Package configcmder provides the config command for managing persistent
// lucidd configuration stored in the .lucidd/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent lucidd configuration.

Configuration is stored as config.toml in the .lucidd/ directory and provides
default values for command flags. CLI flags and LUCIDD_* environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.path,
  api.listen,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  llm.provider, llm.target, llm.model,
  image.model, image.size,
  events.provider, events.brokers, events.topic,
  enrich.workers, enrich.queue_size

Use subcommands to get, set, or list configuration values:
  lucidd config set <key> <value>    Set a configuration value
  lucidd config get <key>            Get a configuration value
  lucidd config list                 List all configuration values

Examples:
  lucidd config set storage.provider sqlite
  lucidd config set embedding.model nomic-embed-text
  lucidd config get api.listen
  lucidd config list`

const configShortDesc string = "Manage persistent lucidd configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
