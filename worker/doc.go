// Package worker validates many C-CDA documents concurrently through one
// shared validator.
//
// BatchValidator handles a fixed set of documents and returns results in
// submission order:
//
//	bv := worker.NewBatchValidator(v, 4)
//	batch := bv.ValidateBatch(ctx, jobs)
//	for _, r := range batch.Results {
//	    // r.Result is never nil
//	}
//
// Pool accepts jobs over time and delivers results as they complete:
//
//	pool := worker.NewPool(v, 4)
//	pool.Submit(worker.Job{ID: "ccd-1", Request: req})
//	result := <-pool.Results()
//	pool.Close()
//
// Every submitted document stream is closed exactly once, including streams
// of jobs discarded when a pool is closed.
package worker
