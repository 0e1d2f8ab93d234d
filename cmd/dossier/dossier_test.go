package dossiercmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	dossiercmder "github.com/papercomputeco/dossier/cmd/dossier"
)

var _ = Describe("NewDossierCmd", func() {
	It("registers every subcommand", func() {
		cmd := dossiercmder.NewDossierCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("research", "replay", "history", "serve", "config", "init", "version"))
	})

	It("has the global flags", func() {
		cmd := dossiercmder.NewDossierCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("prints the version", func() {
		var out bytes.Buffer
		cmd := dossiercmder.NewDossierCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("dev"))
	})
})
