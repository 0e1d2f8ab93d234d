// Package initcmder provides the init command for initializing a local
// .dossier directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/dossier/pkg/cliui"
	"github.com/papercomputeco/dossier/pkg/config"
)

const (
	dirName = ".dossier"
)

const initLongDesc string = `Initialize a new .dossier/ directory in the current working directory.

Creates a local .dossier/ directory that takes precedence over the default
~/.dossier/ directory for configuration, the session archive and the
last-session pointer.

With --preset, a config.toml for a deployment style is written as well:
  local       archive to SQLite in .dossier/, publish nothing (default config)
  ephemeral   keep the archive in memory for the life of the process
  shared      archive to PostgreSQL and announce sessions on Kafka

Examples:
  dossier init
  dossier init --preset shared`

const initShortDesc string = "Initialize a local .dossier/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Write a config.toml for a preset (%s)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(out io.Writer) error {
	// Validate the preset before touching the filesystem.
	var preset *config.Config
	if c.preset != "" {
		var err error
		preset, err = config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .dossier directory: %w", err)
		}
		fmt.Fprintf(out, "%s Initialized .dossier directory: %s\n", cliui.SuccessMark, dir)
	}

	if preset == nil {
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(preset); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Wrote %s preset to %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(strings.ToLower(c.preset)),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
	return nil
}
