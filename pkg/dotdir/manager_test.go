package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/dossier/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	chdir := func(dir string) {
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(func() { os.Chdir(origDir) })
	}

	Describe("Target", func() {
		It("creates the override directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("prefers the override even when a local .dossier dir exists", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".dossier"), 0o755)).To(Succeed())
			chdir(tmpDir)

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .dossier dir when no override is provided", func() {
			local := filepath.Join(tmpDir, ".dossier")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			chdir(tmpDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to the home directory", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())
			chdir(emptyDir)

			home := filepath.Join(tmpDir, "home")
			Expect(os.Mkdir(home, 0o755)).To(Succeed())
			GinkgoT().Setenv("HOME", home)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(home, ".dossier")))
		})
	})

	Describe("LastSession", func() {
		It("returns nil when nothing was recorded", func() {
			last, err := m.LoadLastSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(last).To(BeNil())
		})

		It("round-trips the pointer", func() {
			finished := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			Expect(m.SaveLastSession(&dotdir.LastSession{
				ID:         "abc",
				Query:      "quantum networking",
				Status:     "completed",
				FinishedAt: finished,
				Output:     "report.md",
			}, tmpDir)).To(Succeed())

			last, err := m.LoadLastSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(last.ID).To(Equal("abc"))
			Expect(last.FinishedAt.Equal(finished)).To(BeTrue())
			Expect(last.Output).To(Equal("report.md"))
		})

		It("rejects a nil pointer", func() {
			Expect(m.SaveLastSession(nil, tmpDir)).To(HaveOccurred())
		})

		It("reports a corrupt file", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "last_session.json"), []byte("{"), 0o600)).To(Succeed())
			_, err := m.LoadLastSession(tmpDir)
			Expect(err).To(MatchError(ContainSubstring("parsing last session")))
		})

		It("clears the pointer and tolerates clearing twice", func() {
			Expect(m.SaveLastSession(&dotdir.LastSession{ID: "abc"}, tmpDir)).To(Succeed())
			Expect(m.ClearLastSession(tmpDir)).To(Succeed())
			Expect(m.ClearLastSession(tmpDir)).To(Succeed())

			last, err := m.LoadLastSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(last).To(BeNil())
		})
	})
})
