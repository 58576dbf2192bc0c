package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "heiconv/errors"
)

// BatchOptions configures one RunBatch call.
type BatchOptions struct {
	// WorkerCount is clamped to [1, max(1, len(requests))]. Zero or
	// negative is corrected to 1 rather than rejected.
	WorkerCount int
	// Convert executes one request. Required.
	Convert TaskFunc
	// Sink observes completions. Optional.
	Sink ProgressSink
	// Logger receives batch lifecycle events. Optional.
	Logger Logger
}

// RunBatch converts every request using a fixed pool of workers pulling
// from one pre-populated FIFO queue and returns the aggregate result.
//
// Cancelling ctx stops workers from pulling further requests; tasks already
// started run to completion under a detached context, so no output file is
// ever abandoned mid-write. Requests never started produce no outcome. A
// per-request failure never stops the batch; the only errors returned here
// are setup errors (empty request list, missing task function), in which
// case no BatchResult is produced.
func RunBatch(ctx context.Context, requests []ConversionRequest, opts BatchOptions) (*BatchResult, error) {
	if len(requests) == 0 {
		return nil, apperrors.ErrNoRequests
	}
	if opts.Convert == nil {
		return nil, apperrors.ErrNilConvert
	}

	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}

	workers := opts.WorkerCount
	if workers < 1 {
		workers = 1
	}
	if workers > len(requests) {
		workers = len(requests)
	}

	id := uuid.NewString()
	log.Info("batch.start", "batch_id", id, "total", len(requests), "workers", workers)

	// The work source: filled up front and closed, so a receive never
	// blocks. FIFO order is the channel's own guarantee.
	queue := make(chan ConversionRequest, len(requests))
	for _, req := range requests {
		queue <- req
	}
	close(queue)

	stats := &batchStats{
		snap: Snapshot{Total: len(requests)},
		sink: opts.Sink,
	}

	// In-flight tasks must finish even after cancellation; they observe a
	// detached context while workers watch the batch context.
	taskCtx := context.WithoutCancel(ctx)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					log.Debug("batch.worker.stop", "batch_id", id, "worker", worker, "reason", "cancelled")
					return
				default:
				}
				req, ok := <-queue
				if !ok {
					return
				}
				stats.fold(opts.Convert(taskCtx, req))
			}
		}(i)
	}
	wg.Wait()

	res := stats.result(id, time.Since(start))
	log.Info("batch.done",
		"batch_id", id,
		"completed", res.Snapshot.Completed,
		"succeeded", res.Snapshot.Succeeded,
		"failed", res.Snapshot.Failed,
		"cancelled", res.Cancelled,
		"wall_ms", res.Wall.Milliseconds())
	return res, nil
}

// ── statistics accumulator ────────────────────────────────────────────────────

// batchStats is the only cross-worker shared state. One mutex guards the
// counters, the failure list, and the sink call, so every sink observation
// sees a consistent snapshot and the completed count never regresses
// between observations.
type batchStats struct {
	mu       sync.Mutex
	snap     Snapshot
	failures []FailureDetail
	sink     ProgressSink
}

func (s *batchStats) fold(out ConversionOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Completed++
	s.snap.TaskTime += out.Elapsed
	if out.Succeeded() {
		s.snap.Succeeded++
	} else {
		s.snap.Failed++
		kind, _ := apperrors.KindOf(out.Err)
		reason := "unknown failure"
		if out.Err != nil {
			reason = out.Err.Error()
		}
		s.failures = append(s.failures, FailureDetail{
			Source: out.Request.Source,
			Kind:   kind,
			Reason: reason,
		})
	}

	if s.sink != nil {
		s.sink.OnOutcome(s.snap, out)
	}
}

func (s *batchStats) result(id string, wall time.Duration) *BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	failures := make([]FailureDetail, len(s.failures))
	copy(failures, s.failures)
	return &BatchResult{
		BatchID:  id,
		Snapshot: s.snap,
		Failures: failures,
		Wall:     wall,
		// Completed short of Total only ever means cancellation: failures
		// still count as completed.
		Cancelled: s.snap.Completed < s.snap.Total,
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
