package worker

import (
	"context"
	"time"

	ccdavalidator "github.com/gofhir/ccdavalidator"
)

// Validator validates one request. *engine.Validator implements it.
type Validator interface {
	Validate(ctx context.Context, req ccdavalidator.Request) *ccdavalidator.Result
}

// ValidatorFunc is a function that implements Validator.
type ValidatorFunc func(ctx context.Context, req ccdavalidator.Request) *ccdavalidator.Result

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, req ccdavalidator.Request) *ccdavalidator.Result {
	return f(ctx, req)
}

// Job is a validation request to be processed by a worker.
type Job struct {
	// ID identifies the job in its result, e.g. the file path.
	ID string

	// Request is the validation request. The worker owns its document
	// stream once the job is accepted.
	Request ccdavalidator.Request
}

// JobResult is the outcome of one job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Result is the validation envelope. It is nil only when Error is set.
	Result *ccdavalidator.Result

	// Error is set when the job could not be handed to a validator.
	Error error

	// Duration is the time taken to validate.
	Duration time.Duration
}

// Failed reports whether the job did not produce a usable result.
func (r *JobResult) Failed() bool {
	return r.Error != nil || (r.Result != nil && r.Result.Metadata.ServiceError)
}

// BatchResult aggregates results from multiple jobs.
type BatchResult struct {
	// Results holds one entry per job, in submission order.
	Results []*JobResult

	// TotalJobs is the number of jobs submitted.
	TotalJobs int

	// CompletedJobs is the number of jobs that produced a result.
	CompletedJobs int

	// FailedJobs is the number of jobs with a service error or job error.
	FailedJobs int

	// TotalDuration is the wall time for the whole batch.
	TotalDuration time.Duration
}

// HasErrors returns true if any job failed or reported error findings.
func (br *BatchResult) HasErrors() bool {
	for _, r := range br.Results {
		if r == nil {
			continue
		}
		if r.Error != nil {
			return true
		}
		if r.Result != nil && r.Result.HasErrors() {
			return true
		}
	}
	return false
}

// ErrorCount returns the total number of error findings across all results.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil && r.Result != nil {
			count += r.Result.ErrorCount()
		}
	}
	return count
}

// closeDocument closes the job's stream when the job will not be validated.
func closeDocument(job Job) {
	if job.Request.Document != nil {
		_ = job.Request.Document.Close()
	}
}

// ErrNoValidator is returned when no validator is configured.
var ErrNoValidator = workerError("no validator configured")

type workerError string

func (e workerError) Error() string {
	return string(e)
}
