package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/dossier/pkg/client"
	"github.com/papercomputeco/dossier/pkg/logger"
)

var _ = Describe("Request", func() {
	It("fills defaults", func() {
		req := client.NewRequest("fusion energy")
		Expect(req.Lang).To(Equal("Korean"))
		Expect(req.Count).To(Equal(5))
		Expect(req.Format).To(Equal("markdown"))
		Expect(req.Mode).To(Equal(client.ModeStream))
	})

	It("rejects an empty query", func() {
		req := client.Request{Query: "   "}
		Expect(req.Validate()).To(MatchError(client.ErrEmptyQuery))
	})

	It("fills blank fields during validation", func() {
		req := client.Request{Query: " q "}
		Expect(req.Validate()).To(Succeed())
		Expect(req.Query).To(Equal("q"))
		Expect(req.Count).To(Equal(client.DefaultCount))
		Expect(req.Lang).To(Equal(client.DefaultLang))
	})

	DescribeTable("rejects invalid fields",
		func(mutate func(*client.Request), want string) {
			req := client.NewRequest("q")
			mutate(&req)
			err := req.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(want))
		},
		Entry("count above range", func(r *client.Request) { r.Count = 21 }, "count"),
		Entry("negative count", func(r *client.Request) { r.Count = -1 }, "count"),
		Entry("unknown mode", func(r *client.Request) { r.Mode = "batch" }, "mode"),
		Entry("malformed date", func(r *client.Request) { r.StartDate = "2024/01/01" }, "start_date"),
		Entry("malformed time", func(r *client.Request) { r.EndTime = "9am" }, "end_time"),
	)
})

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		c       *client.Client
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		c = client.New(client.Config{Target: server.URL + "/", Timeout: time.Second}, logger.Nop())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Stream", func() {
		It("posts a stream request and returns the body", func() {
			var got client.Request
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/research"))
				Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
				Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())

				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = io.WriteString(w, "data: {\"search_results\":[]}\n\ndata: [DONE]\n\n")
			}

			req := client.NewRequest("q")
			req.Mode = client.ModeAsync
			body, err := c.Stream(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			defer body.Close()

			data, err := io.ReadAll(body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(HaveSuffix("data: [DONE]\n\n"))
			Expect(got.Query).To(Equal("q"))
			Expect(got.Mode).To(Equal(client.ModeStream))
		})

		It("reports non-2xx responses with status and body", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "pipeline unavailable", http.StatusBadGateway)
			}

			_, err := c.Stream(ctx, client.NewRequest("q"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("502"))
			Expect(err.Error()).To(ContainSubstring("pipeline unavailable"))
		})

		It("does not contact the server for an invalid request", func() {
			var calls atomic.Int32
			handler = func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
			}

			_, err := c.Stream(ctx, client.NewRequest(""))
			Expect(err).To(MatchError(client.ErrEmptyQuery))
			Expect(calls.Load()).To(BeZero())
		})
	})

	Describe("async jobs", func() {
		It("submits a job", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				var got client.Request
				Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
				Expect(got.Mode).To(Equal(client.ModeAsync))
				_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "job-1", "status": "pending"})
			}

			ref, err := c.Submit(ctx, client.NewRequest("q"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.ID).To(Equal("job-1"))
			Expect(ref.Status).To(Equal(client.JobPending))
		})

		It("rejects a submission reply without an id", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":"pending"}`)
			}

			_, err := c.Submit(ctx, client.NewRequest("q"))
			Expect(err).To(HaveOccurred())
		})

		It("polls until the job completes", func() {
			var polls atomic.Int32
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/jobs/job-1"))
				job := map[string]any{"id": "job-1", "status": "in_progress"}
				if polls.Add(1) >= 3 {
					job["status"] = "completed"
					job["result"] = map[string]string{"report": "# Done"}
				}
				_ = json.NewEncoder(w).Encode(job)
			}

			var seen []client.JobStatus
			job, err := c.Wait(ctx, "job-1", 5*time.Millisecond, func(j *client.Job) {
				seen = append(seen, j.Status)
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(job.Result).NotTo(BeNil())
			Expect(job.Result.Report).To(Equal("# Done"))
			Expect(seen).To(Equal([]client.JobStatus{client.JobInProgress, client.JobInProgress, client.JobCompleted}))
		})

		It("returns the error of a failed job", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"id":"job-2","status":"failed","error":"search quota exceeded"}`)
			}

			job, err := c.Wait(ctx, "job-2", time.Millisecond, nil)
			Expect(err).To(MatchError(ContainSubstring("search quota exceeded")))
			Expect(job.Status).To(Equal(client.JobFailed))
		})

		It("reports an unknown job", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"detail":"Job not found"}`, http.StatusNotFound)
			}

			_, err := c.Job(ctx, "missing")
			Expect(err).To(MatchError(ContainSubstring("404")))
		})

		It("stops waiting when the context is cancelled", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"id":"job-3","status":"pending"}`)
			}

			waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
			defer cancel()

			_, err := c.Wait(waitCtx, "job-3", 10*time.Millisecond, nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
