package session_test

import (
	"context"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/dossier/pkg/event"
	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/session"
	"github.com/papercomputeco/dossier/pkg/sse"
	"github.com/papercomputeco/dossier/pkg/tracelog"
)

// brokenBody yields its data and then fails like a dropped connection.
type brokenBody struct {
	data   io.Reader
	err    error
	closed bool
}

func (b *brokenBody) Read(p []byte) (int, error) {
	n, err := b.data.Read(p)
	if errors.Is(err, io.EOF) {
		return n, b.err
	}
	return n, err
}

func (b *brokenBody) Close() error {
	b.closed = true
	return nil
}

// trackedBody records whether it was closed.
type trackedBody struct {
	io.Reader
	closed bool
}

func (t *trackedBody) Close() error {
	t.closed = true
	return nil
}

func frames(payloads ...string) string {
	var b strings.Builder
	for _, p := range payloads {
		b.WriteString("data: ")
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	return b.String()
}

func consume(s *session.Session, stream string) error {
	return s.Consume(context.Background(), sse.NewDecoder(strings.NewReader(stream)))
}

func errorLines(logs []string) []string {
	var out []string
	for _, l := range logs {
		if strings.HasPrefix(l, "Error") {
			out = append(out, l)
		}
	}
	return out
}

var _ = Describe("Session", func() {
	Describe("end to end reduction", func() {
		It("reduces search results and an authoritative summaries list", func() {
			s := session.New("quantum")
			err := consume(s, frames(
				`{"search_results":[1,2]}`,
				`{"summaries":["{\"title\":\"T\",\"summary\":[\"a\",\"b\"],\"source\":\"http://x\"}"]}`,
				`[DONE]`,
			))
			Expect(err).NotTo(HaveOccurred())

			snap := s.Snapshot()
			Expect(snap.Status).To(Equal(progress.Reporting))
			Expect(snap.Document).To(ContainSubstring("### T"))
			Expect(snap.Document).To(ContainSubstring("- a\n"))
			Expect(snap.Document).To(ContainSubstring("- b\n"))
			Expect(snap.Document).To(ContainSubstring("[http://x](http://x)"))
			Expect(snap.Logs).To(ContainElements("Search found 2 results.", "Generated 1 summaries."))
		})

		It("stays idle on a single malformed frame", func() {
			s := session.New("quantum")
			Expect(consume(s, "data: {not json\n\ndata: [DONE]\n\n")).To(Succeed())

			snap := s.Snapshot()
			Expect(snap.Status).To(Equal(progress.Idle))
			Expect(errorLines(snap.Logs)).To(BeEmpty())
			Expect(snap.Document).To(BeEmpty())
		})

		It("lets an authoritative list replace streamed items", func() {
			s := session.New("quantum")
			Expect(consume(s, frames(
				`{"custom_summary":"{\"title\":\"A\",\"source\":\"s1\"}"}`,
				`{"summaries":["{\"title\":\"B\",\"source\":\"s2\"}"]}`,
				`[DONE]`,
			))).To(Succeed())

			snap := s.Snapshot()
			Expect(snap.Document).To(ContainSubstring("### B"))
			Expect(snap.Document).NotTo(ContainSubstring("### A"))
			Expect(snap.Summaries).To(HaveLen(1))
		})
	})

	Describe("streamed summaries", func() {
		It("renders each streamed item and collapses the notices", func() {
			s := session.New("q")
			Expect(consume(s, frames(
				`{"custom_summary":"{\"title\":\"A\",\"source\":\"s1\"}"}`,
				`{"custom_summary":{"title":"B","source":"s2"}}`,
			))).To(Succeed())

			snap := s.Snapshot()
			Expect(snap.Status).To(Equal(progress.Reporting))
			Expect(snap.Document).To(ContainSubstring("### A"))
			Expect(snap.Document).To(ContainSubstring("### B"))
			Expect(strings.Index(snap.Document, "### A")).To(BeNumerically("<", strings.Index(snap.Document, "### B")))

			notices := 0
			for _, l := range snap.Logs {
				if l == tracelog.StreamedNotice {
					notices++
				}
			}
			Expect(notices).To(Equal(1))
		})

		It("ignores a focused summary without the item shape", func() {
			s := session.New("q")
			s.Apply(event.Event{Focused: "thinking..."})

			snap := s.Snapshot()
			Expect(snap.Document).To(BeEmpty())
			Expect(snap.Status).To(Equal(progress.Searching))
		})
	})

	Describe("status", func() {
		It("does not regress when an earlier stage is restated", func() {
			s := session.New("q")
			Expect(consume(s, frames(
				`{"summarize":{"summaries":[]}}`,
				`{"search":{"search_results":[1]}}`,
				`{"extract":{"contents":[1,2,3]}}`,
			))).To(Succeed())

			snap := s.Snapshot()
			Expect(snap.Status).To(Equal(progress.Reporting))
			Expect(snap.Logs).To(ContainElement("Extracted content from 3 sources."))
		})

		It("completes on a final report and keeps it as the document", func() {
			s := session.New("q")
			Expect(consume(s, frames(
				`{"custom_summary":"{\"title\":\"A\",\"source\":\"s1\"}"}`,
				`{"report":{"report":"# Final report"}}`,
				`{"search_results":[1]}`,
				`[DONE]`,
			))).To(Succeed())

			snap := s.Snapshot()
			Expect(snap.Status).To(Equal(progress.Completed))
			Expect(snap.Document).To(Equal("# Final report"))
			Expect(snap.ReportSeen).To(BeTrue())
			Expect(snap.Logs).To(ContainElement("Report generation complete."))
		})

		It("does not render summaries over a final report", func() {
			s := session.New("q")
			Expect(consume(s, frames(
				`{"report":{"report":"# Final report"}}`,
				`{"summaries":[{"title":"Late","summary":["x"],"source":"http://late"}]}`,
				`{"custom_summary":"{\"title\":\"Later\",\"source\":\"s2\"}"}`,
			))).To(Succeed())

			snap := s.Snapshot()
			Expect(snap.Document).To(Equal("# Final report"))
			Expect(snap.Status).To(Equal(progress.Completed))
		})

		It("keeps the last stage when the stream closes without the sentinel", func() {
			s := session.New("q")
			Expect(consume(s, frames(`{"contents":[1]}`))).To(Succeed())
			Expect(s.Status()).To(Equal(progress.Summarizing))
		})

		It("fails on a producer error", func() {
			s := session.New("q")
			Expect(consume(s, frames(
				`{"search_results":[1]}`,
				`{"error":"model overloaded"}`,
				`{"contents":[1]}`,
			))).To(Succeed())

			snap := s.Snapshot()
			Expect(snap.Status).To(Equal(progress.Failed))
			Expect(snap.Logs).To(ContainElement("Error: model overloaded"))
		})

		It("logs producer messages", func() {
			s := session.New("q")
			Expect(consume(s, frames(`{"message":"Ranking sources"}`))).To(Succeed())
			Expect(s.Snapshot().Logs).To(ContainElement("Ranking sources"))
		})
	})

	Describe("transport", func() {
		It("fails on a transport error but keeps the document", func() {
			body := &brokenBody{
				data: strings.NewReader(frames(`{"custom_summary":"{\"title\":\"A\",\"source\":\"s1\"}"}`)),
				err:  errors.New("connection reset by peer"),
			}
			s := session.New("q")
			err := s.Consume(context.Background(), sse.NewDecoder(body))
			Expect(err).To(MatchError(ContainSubstring("connection reset by peer")))

			snap := s.Snapshot()
			Expect(snap.Status).To(Equal(progress.Failed))
			Expect(snap.Document).To(ContainSubstring("### A"))
			Expect(errorLines(snap.Logs)).To(HaveLen(1))
			Expect(body.closed).To(BeTrue())
		})

		It("releases the stream when the context is already cancelled", func() {
			body := &trackedBody{Reader: strings.NewReader(frames(`{"search_results":[1]}`))}
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			s := session.New("q")
			err := s.Consume(ctx, sse.NewDecoder(body))
			Expect(err).To(MatchError(context.Canceled))
			Expect(body.closed).To(BeTrue())
			Expect(s.Status()).To(Equal(progress.Idle))
		})

		It("releases the stream on a normal end", func() {
			body := &trackedBody{Reader: strings.NewReader(frames(`[DONE]`))}
			s := session.New("q")
			Expect(s.Consume(context.Background(), sse.NewDecoder(body))).To(Succeed())
			Expect(body.closed).To(BeTrue())
		})
	})

	Describe("observer and reset", func() {
		It("delivers a snapshot per update", func() {
			var seen []progress.Status
			s := session.New("q", session.WithObserver(func(snap session.Snapshot) {
				seen = append(seen, snap.Status)
			}))
			Expect(consume(s, frames(`{"search_results":[]}`, `{"contents":[]}`, `[DONE]`))).To(Succeed())

			Expect(seen).To(Equal([]progress.Status{
				progress.Idle,
				progress.Extracting,
				progress.Summarizing,
				progress.Summarizing,
			}))
		})

		It("discards all prior state on reset", func() {
			s := session.New("first")
			firstID := s.ID()
			Expect(consume(s, frames(`{"custom_summary":"{\"title\":\"A\",\"source\":\"s1\"}"}`))).To(Succeed())

			s.Reset("second")
			snap := s.Snapshot()
			Expect(snap.ID).NotTo(Equal(firstID))
			Expect(snap.Query).To(Equal("second"))
			Expect(snap.Status).To(Equal(progress.Idle))
			Expect(snap.Document).To(BeEmpty())
			Expect(snap.Summaries).To(BeEmpty())
			Expect(snap.Logs).To(Equal([]string{`Initializing research for: "second"`}))
		})
	})
})
