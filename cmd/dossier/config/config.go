// Package configcmder provides the config command for managing persistent
// dossier configuration stored in the .dossier/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/dossier/pkg/cliui"
	"github.com/papercomputeco/dossier/pkg/config"
)

const configLongDesc string = `Manage persistent dossier configuration.

Configuration is stored as config.toml in the .dossier/ directory and provides
default values for command flags. CLI flags and DOSSIER_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.target, client.lang, client.count, client.format, client.mode,
  client.timeout, client.poll_interval,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  api.listen,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  dossier config set <key> <value>    Set a configuration value
  dossier config get <key>            Get a configuration value
  dossier config list                 List all configuration values

Examples:
  dossier config set client.lang English
  dossier config set client.count 10
  dossier config get client.target
  dossier config list`

const configShortDesc string = "Manage persistent dossier configuration"

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

// configDirFlag reads the inherited --config-dir flag. It is absent when the
// config command runs without the root command.
func configDirFlag(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}

func validKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
