package historycmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	dossiercmder "github.com/papercomputeco/dossier/cmd/dossier"
	"github.com/papercomputeco/dossier/pkg/dotdir"
	"github.com/papercomputeco/dossier/pkg/storage"
	"github.com/papercomputeco/dossier/pkg/storage/sqlite"
	testutils "github.com/papercomputeco/dossier/pkg/utils/test"
)

var _ = Describe("History command", func() {
	var (
		tmpDir string
		dbPath string
		stdout *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := dossiercmder.NewDossierCmd()
		cmd.SetOut(stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"history", "--config-dir", tmpDir, "--sqlite", dbPath}, args...))
		return cmd.Execute()
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "archive.db")
		stdout = &bytes.Buffer{}

		driver, err := sqlite.NewSQLiteDriver(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		for i, q := range []string{"first query", "second query", "third query"} {
			rec := testutils.NewTestRecord("session-"+string(rune('a'+i)), q, base.Add(time.Duration(i)*time.Hour))
			Expect(driver.Put(context.Background(), rec)).To(Succeed())
		}
	})

	It("lists sessions newest first", func() {
		Expect(run()).To(Succeed())
		out := stdout.String()
		Expect(out).To(ContainSubstring("third query"))
		Expect(out).To(ContainSubstring("first query"))
		Expect(bytes.Index(stdout.Bytes(), []byte("third"))).To(BeNumerically("<", bytes.Index(stdout.Bytes(), []byte("first"))))
	})

	It("honors --limit", func() {
		Expect(run("--limit", "1")).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("third query"))
		Expect(stdout.String()).NotTo(ContainSubstring("second query"))
	})

	It("lists as JSON", func() {
		Expect(run("--json")).To(Succeed())
		var records []storage.Record
		Expect(json.Unmarshal(stdout.Bytes(), &records)).To(Succeed())
		Expect(records).To(HaveLen(3))
		Expect(records[0].ID).To(Equal("session-c"))
	})

	It("shows a session with its trace and document", func() {
		Expect(run("session-b", "--logs")).To(Succeed())
		out := stdout.String()
		Expect(out).To(ContainSubstring("session-b"))
		Expect(out).To(ContainSubstring("second query"))
		Expect(out).To(ContainSubstring("Trace"))
		Expect(out).To(ContainSubstring("# Research Report: second query"))
	})

	It("resolves the last session", func() {
		Expect(dotdir.NewManager().SaveLastSession(&dotdir.LastSession{ID: "session-a", Query: "first query"}, tmpDir)).To(Succeed())

		Expect(run("last", "--json")).To(Succeed())
		var record storage.Record
		Expect(json.Unmarshal(stdout.Bytes(), &record)).To(Succeed())
		Expect(record.Query).To(Equal("first query"))
	})

	It("reports when no session was run yet", func() {
		Expect(run("last")).To(MatchError(ContainSubstring("no research session")))
	})

	It("reports an unknown session", func() {
		Expect(run("nope")).To(MatchError(ContainSubstring(`no archived session "nope"`)))
	})
})
