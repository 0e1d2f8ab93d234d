package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// JobStatus is the lifecycle state of an asynchronous job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Done reports whether the job has stopped.
func (s JobStatus) Done() bool {
	return s == JobCompleted || s == JobFailed
}

// DefaultPollInterval is used by Wait when no interval is given.
const DefaultPollInterval = 2 * time.Second

// JobRef is the server's reply to an async submission.
type JobRef struct {
	ID      string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message,omitempty"`
}

// JobResult is the output of a completed job.
type JobResult struct {
	Report string `json:"report"`
}

// Job is the state of an asynchronous job as reported by GET /jobs/{id}.
type Job struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	CreatedAt string     `json:"created_at,omitempty"`
	UpdatedAt string     `json:"updated_at,omitempty"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Job fetches the current state of job id.
func (c *Client) Job(ctx context.Context, id string) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target+"/jobs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	return &job, nil
}

// Wait polls job id every interval until it completes or fails, or ctx is
// done. A failed job is returned along with an error carrying its message.
func (c *Client) Wait(ctx context.Context, id string, interval time.Duration, onPoll func(*Job)) (*Job, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.Job(ctx, id)
		if err != nil {
			return nil, err
		}
		if onPoll != nil {
			onPoll(job)
		}

		switch job.Status {
		case JobCompleted:
			return job, nil
		case JobFailed:
			return job, fmt.Errorf("research job %s failed: %s", id, job.Error)
		}

		c.logger.Debug("research job pending", "job", id, "status", job.Status)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
