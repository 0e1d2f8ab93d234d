package researchcmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	dossiercmder "github.com/papercomputeco/dossier/cmd/dossier"
	researchcmder "github.com/papercomputeco/dossier/cmd/dossier/research"
	"github.com/papercomputeco/dossier/pkg/dotdir"
	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/storage/sqlite"
)

const reportStream = "data: {\"message\": \"Starting research\"}\n\n" +
	"data: {\"search\": {\"search_results\": [{\"url\": \"http://x\"}, {\"url\": \"http://y\"}]}}\n\n" +
	"data: {\"custom_summary\": \"{\\\"title\\\": \\\"T\\\", \\\"source\\\": \\\"http://x\\\", \\\"summary\\\": [\\\"a\\\", \\\"b\\\"]}\"}\n\n" +
	"data: {\"report\": {\"report\": \"# Final Report\\n\\nFusion is close.\"}}\n\n" +
	"data: [DONE]\n\n"

var _ = Describe("NewResearchCmd", func() {
	It("requires a query", func() {
		cmd := researchcmder.NewResearchCmd()
		Expect(cmd.Args(cmd, []string{})).NotTo(Succeed())
		Expect(cmd.Args(cmd, []string{"fusion", "energy"})).To(Succeed())
	})

	It("registers the shared flags", func() {
		cmd := researchcmder.NewResearchCmd()
		for _, name := range []string{"target", "lang", "count", "mode", "sqlite", "storage", "output", "capture", "tui"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().Lookup("count").DefValue).To(Equal("5"))
	})
})

var _ = Describe("Research command execution", func() {
	var (
		tmpDir  string
		server  *httptest.Server
		handler http.HandlerFunc
		stdout  *bytes.Buffer
		stderr  *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := dossiercmder.NewDossierCmd()
		cmd.SetOut(stdout)
		cmd.SetErr(stderr)
		base := []string{
			"research",
			"--config-dir", tmpDir,
			"--target", server.URL,
			"--sqlite", filepath.Join(tmpDir, "archive.db"),
		}
		cmd.SetArgs(append(base, args...))
		return cmd.ExecuteContext(context.Background())
	}

	archived := func() []progress.Status {
		driver, err := sqlite.NewSQLiteDriver(filepath.Join(tmpDir, "archive.db"))
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		records, err := driver.List(context.Background())
		Expect(err).NotTo(HaveOccurred())
		statuses := make([]progress.Status, 0, len(records))
		for _, r := range records {
			statuses = append(statuses, r.Status)
		}
		return statuses
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	Context("in stream mode", func() {
		var received *atomic.Value

		BeforeEach(func() {
			received = &atomic.Value{}
			handler = func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				_ = json.NewDecoder(r.Body).Decode(&body)
				received.Store(body)
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = io.WriteString(w, reportStream)
			}
		})

		It("prints progress, the document, and archives the session", func() {
			output := filepath.Join(tmpDir, "report.md")
			capturePath := filepath.Join(tmpDir, "captures", "run.sse")

			Expect(run("-l", "English", "-n", "3",
				"--output", output,
				"--capture", capturePath,
				"fusion", "energy",
			)).To(Succeed())

			body := received.Load().(map[string]any)
			Expect(body["query"]).To(Equal("fusion energy"))
			Expect(body["lang"]).To(Equal("English"))
			Expect(body["count"]).To(BeNumerically("==", 3))
			Expect(body["mode"]).To(Equal("stream"))

			Expect(stdout.String()).To(ContainSubstring("# Final Report"))
			Expect(stderr.String()).To(ContainSubstring(`Initializing research for: "fusion energy"`))
			Expect(stderr.String()).To(ContainSubstring("Search found 2 results."))
			Expect(stderr.String()).To(ContainSubstring("Streamed summary item..."))
			Expect(stderr.String()).To(ContainSubstring("Report generation complete."))

			written, err := os.ReadFile(output)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(written)).To(Equal("# Final Report\n\nFusion is close."))

			captured, err := os.ReadFile(capturePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(captured)).To(Equal(reportStream))

			last, err := dotdir.NewManager().LoadLastSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(last.Query).To(Equal("fusion energy"))
			Expect(last.Status).To(Equal("completed"))
			Expect(last.Output).To(Equal(output))

			Expect(archived()).To(Equal([]progress.Status{progress.Completed}))
		})

		It("skips the archive with --no-archive", func() {
			Expect(run("--no-archive", "fusion")).To(Succeed())
			Expect(archived()).To(BeEmpty())
		})

		It("rejects an invalid request before contacting the server", func() {
			err := run("-n", "50", "fusion")
			Expect(err).To(MatchError(ContainSubstring("count must be between 1 and 20")))
			Expect(received.Load()).To(BeNil())
		})
	})

	It("fails on a non-2xx response and archives the failure", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "pipeline unavailable", http.StatusInternalServerError)
		}

		err := run("fusion")
		Expect(err).To(MatchError(ContainSubstring("research failed")))
		Expect(err.Error()).To(ContainSubstring("500"))
		Expect(stderr.String()).To(ContainSubstring("No document was produced."))
		Expect(archived()).To(Equal([]progress.Status{progress.Failed}))
	})

	It("fails when the pipeline reports an error but keeps the document", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "data: {\"summaries\": [{\"title\": \"T\", \"source\": \"http://x\", \"summary\": [\"a\"]}]}\n\n"+
				"data: {\"error\": \"model overloaded\"}\n\n")
		}

		err := run("fusion")
		Expect(err).To(MatchError("research failed: model overloaded"))
		Expect(stdout.String()).To(ContainSubstring("### T"))
	})

	It("succeeds softly when the stream ends without a report", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "data: {\"search_results\": []}\n\n")
		}

		Expect(run("fusion")).To(Succeed())
		Expect(archived()).To(Equal([]progress.Status{progress.Extracting}))
	})

	It("polls an async job until it completes", func() {
		var polls atomic.Int32
		handler = func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/research":
				_, _ = io.WriteString(w, `{"job_id":"job-1","status":"pending"}`)
			case r.URL.Path == "/jobs/job-1":
				if polls.Add(1) < 3 {
					_, _ = io.WriteString(w, `{"id":"job-1","status":"in_progress"}`)
					return
				}
				_, _ = io.WriteString(w, `{"id":"job-1","status":"completed","result":{"report":"# Async Report"}}`)
			default:
				http.NotFound(w, r)
			}
		}

		Expect(run("--mode", "async", "--poll-interval", "5ms", "fusion")).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("# Async Report"))
		Expect(stderr.String()).To(ContainSubstring("Research job job-1 submitted."))
		Expect(strings.Count(stderr.String(), "Research job job-1 is in progress.")).To(Equal(1))
		Expect(archived()).To(Equal([]progress.Status{progress.Completed}))
	})

	It("fails when an async job fails", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				_, _ = io.WriteString(w, `{"job_id":"job-2","status":"pending"}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":"job-2","status":"failed","error":"search quota exceeded"}`)
		}

		err := run("--mode", "async", "--poll-interval", "5ms", "fusion")
		Expect(err).To(MatchError("research failed: search quota exceeded"))
	})
})
