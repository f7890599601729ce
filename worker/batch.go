package worker

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// sequentialThreshold is the batch size at or below which jobs run on the
// calling goroutine.
const sequentialThreshold = 2

// BatchValidator validates a set of documents in parallel.
type BatchValidator struct {
	validator Validator
	workers   int
}

// NewBatchValidator creates a new batch validator. If workers <= 0 it
// defaults to runtime.NumCPU().
func NewBatchValidator(v Validator, workers int) *BatchValidator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BatchValidator{
		validator: v,
		workers:   workers,
	}
}

// Workers returns the configured concurrency.
func (bv *BatchValidator) Workers() int {
	return bv.workers
}

// ValidateBatch validates jobs and returns one result per job, in order.
//
// Every job reaches the validator even after ctx is cancelled: the validator
// closes the job's stream and reports the cancellation on its result.
func (bv *BatchValidator) ValidateBatch(ctx context.Context, jobs []Job) *BatchResult {
	start := time.Now()

	var results []*JobResult
	switch {
	case len(jobs) == 0:
		results = make([]*JobResult, 0)
	case len(jobs) <= sequentialThreshold:
		results = bv.validateSequential(ctx, jobs)
	default:
		results = bv.validateParallel(ctx, jobs)
	}

	br := &BatchResult{
		Results:       results,
		TotalJobs:     len(jobs),
		TotalDuration: time.Since(start),
	}
	for _, r := range results {
		if r.Result != nil {
			br.CompletedJobs++
		}
		if r.Failed() {
			br.FailedJobs++
		}
	}
	return br
}

func (bv *BatchValidator) validateSequential(ctx context.Context, jobs []Job) []*JobResult {
	results := make([]*JobResult, 0, len(jobs))
	for _, job := range jobs {
		results = append(results, bv.run(ctx, job))
	}
	return results
}

func (bv *BatchValidator) validateParallel(ctx context.Context, jobs []Job) []*JobResult {
	numWorkers := bv.workers
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	indexes := make(chan int, len(jobs))
	for i := range jobs {
		indexes <- i
	}
	close(indexes)

	// Each worker writes only its own indexes
	results := make([]*JobResult, len(jobs))

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for idx := range indexes {
				results[idx] = bv.run(ctx, jobs[idx])
			}
		}()
	}
	wg.Wait()

	return results
}

func (bv *BatchValidator) run(ctx context.Context, job Job) *JobResult {
	start := time.Now()
	if bv.validator == nil {
		closeDocument(job)
		return &JobResult{ID: job.ID, Error: ErrNoValidator, Duration: time.Since(start)}
	}
	return &JobResult{
		ID:       job.ID,
		Result:   bv.validator.Validate(ctx, job.Request),
		Duration: time.Since(start),
	}
}

// ValidateBatchSimple validates jobs with one worker per CPU.
func ValidateBatchSimple(ctx context.Context, v Validator, jobs []Job) *BatchResult {
	return NewBatchValidator(v, runtime.NumCPU()).ValidateBatch(ctx, jobs)
}
