package main

import (
	"os"

	dossiercmder "github.com/papercomputeco/dossier/cmd/dossier"
)

func main() {
	cmd := dossiercmder.NewDossierCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
