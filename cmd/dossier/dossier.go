// Package dossiercmder
package dossiercmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/dossier/cmd/dossier/config"
	historycmder "github.com/papercomputeco/dossier/cmd/dossier/history"
	initcmder "github.com/papercomputeco/dossier/cmd/dossier/init"
	replaycmder "github.com/papercomputeco/dossier/cmd/dossier/replay"
	researchcmder "github.com/papercomputeco/dossier/cmd/dossier/research"
	servecmder "github.com/papercomputeco/dossier/cmd/dossier/serve"
	versioncmder "github.com/papercomputeco/dossier/cmd/version"
)

const dossierLongDesc string = `Dossier is a terminal client for a streaming research pipeline.

It sends a query to the research server, follows the pipeline as it
searches, extracts, summarizes and reports, and renders the resulting
research document. Finished sessions are archived for later review.

Common commands:
  dossier research "<query>"   Run a research request
  dossier history              List archived sessions
  dossier replay capture.sse   Run a recorded event stream through the reducer
  dossier serve                Serve the session archive over HTTP`

const dossierShortDesc string = "Dossier - streaming research client"

func NewDossierCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dossier",
		Short:         dossierShortDesc,
		Long:          dossierLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .dossier configuration directory")

	// Add subcommands
	cmd.AddCommand(researchcmder.NewResearchCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
