package core_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"heiconv/core"
	apperrors "heiconv/errors"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

// mixedRequests builds n requests where every odd index points at a source
// the stub task will fail on.
func mixedRequests(n int) []core.ConversionRequest {
	reqs := make([]core.ConversionRequest, n)
	for i := range reqs {
		name := fmt.Sprintf("photo-%03d", i)
		if i%2 == 1 {
			name += "-missing"
		}
		reqs[i] = core.ConversionRequest{
			Source:      "in/" + name + ".heic",
			Destination: "out/" + name + ".png",
			Format:      core.FormatPNG,
			Quality:     85,
		}
	}
	return reqs
}

// stubTask succeeds unless the source name contains "missing". Elapsed is
// fixed so TaskTime sums are deterministic.
func stubTask(delay time.Duration) core.TaskFunc {
	return func(_ context.Context, req core.ConversionRequest) core.ConversionOutcome {
		if delay > 0 {
			time.Sleep(delay)
		}
		if strings.Contains(req.Source, "missing") {
			return core.ConversionOutcome{
				Request: req,
				Status:  core.StatusFailure,
				Elapsed: time.Millisecond,
				Err:     apperrors.New(apperrors.KindSourceUnreadable, "stub", errors.New("no such file")),
			}
		}
		return core.ConversionOutcome{
			Request:    req,
			Status:     core.StatusSuccess,
			Elapsed:    time.Millisecond,
			OutputSize: 128,
		}
	}
}

// recordingSink captures every snapshot and flags invariant violations as
// they happen rather than after the fact.
type recordingSink struct {
	mu         sync.Mutex
	snaps      []core.Snapshot
	sources    []string
	violations []string
}

func (s *recordingSink) OnOutcome(snap core.Snapshot, out core.ConversionOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Completed != snap.Succeeded+snap.Failed {
		s.violations = append(s.violations,
			fmt.Sprintf("completed %d != succeeded %d + failed %d", snap.Completed, snap.Succeeded, snap.Failed))
	}
	if snap.Completed > snap.Total {
		s.violations = append(s.violations,
			fmt.Sprintf("completed %d > total %d", snap.Completed, snap.Total))
	}
	if n := len(s.snaps); n > 0 && snap.Completed < s.snaps[n-1].Completed {
		s.violations = append(s.violations,
			fmt.Sprintf("completed regressed: %d after %d", snap.Completed, s.snaps[n-1].Completed))
	}
	s.snaps = append(s.snaps, snap)
	s.sources = append(s.sources, out.Request.Source)
}

func (s *recordingSink) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

// ── Setup errors ──────────────────────────────────────────────────────────────

func TestRunBatch_EmptyRequests(t *testing.T) {
	res, err := core.RunBatch(context.Background(), nil, core.BatchOptions{Convert: stubTask(0)})
	if !errors.Is(err, apperrors.ErrNoRequests) {
		t.Fatalf("error: got %v, want ErrNoRequests", err)
	}
	if res != nil {
		t.Errorf("result: got %+v, want nil", res)
	}
}

func TestRunBatch_NilTask(t *testing.T) {
	res, err := core.RunBatch(context.Background(), mixedRequests(3), core.BatchOptions{})
	if !errors.Is(err, apperrors.ErrNilConvert) {
		t.Fatalf("error: got %v, want ErrNilConvert", err)
	}
	if res != nil {
		t.Errorf("result: got %+v, want nil", res)
	}
}

// ── Counting across worker counts ─────────────────────────────────────────────

func TestRunBatch_MixedOutcomes_WorkerCounts(t *testing.T) {
	for _, workers := range []int{0, 1, 5, 100} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			sink := &recordingSink{}
			reqs := mixedRequests(20)

			res, err := core.RunBatch(context.Background(), reqs, core.BatchOptions{
				WorkerCount: workers,
				Convert:     stubTask(0),
				Sink:        sink,
			})
			if err != nil {
				t.Fatalf("RunBatch: %v", err)
			}

			snap := res.Snapshot
			if snap.Total != 20 || snap.Completed != 20 {
				t.Errorf("total/completed: got %d/%d, want 20/20", snap.Total, snap.Completed)
			}
			if snap.Succeeded != 10 || snap.Failed != 10 {
				t.Errorf("succeeded/failed: got %d/%d, want 10/10", snap.Succeeded, snap.Failed)
			}
			if snap.TaskTime != 20*time.Millisecond {
				t.Errorf("task time: got %s, want 20ms", snap.TaskTime)
			}
			if res.Cancelled {
				t.Error("cancelled: got true for a run to completion")
			}
			if len(res.Failures) != 10 {
				t.Fatalf("failures: got %d, want 10", len(res.Failures))
			}
			for _, f := range res.Failures {
				if f.Kind != apperrors.KindSourceUnreadable {
					t.Errorf("failure kind for %s: got %s", f.Source, f.Kind)
				}
			}
			if sink.calls() != 20 {
				t.Errorf("sink calls: got %d, want 20", sink.calls())
			}
			for _, v := range sink.violations {
				t.Errorf("snapshot invariant: %s", v)
			}
			if res.BatchID == "" {
				t.Error("batch id is empty")
			}
		})
	}
}

func TestRunBatch_NegativeWorkers(t *testing.T) {
	res, err := core.RunBatch(context.Background(), mixedRequests(5), core.BatchOptions{
		WorkerCount: -3,
		Convert:     stubTask(0),
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.Snapshot.Completed != 5 {
		t.Errorf("completed: got %d, want 5", res.Snapshot.Completed)
	}
}

// ── Ordering ──────────────────────────────────────────────────────────────────

func TestRunBatch_SingleWorker_PreservesOrder(t *testing.T) {
	sink := &recordingSink{}
	reqs := mixedRequests(10)

	_, err := core.RunBatch(context.Background(), reqs, core.BatchOptions{
		WorkerCount: 1,
		Convert:     stubTask(0),
		Sink:        sink,
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	for i, req := range reqs {
		if sink.sources[i] != req.Source {
			t.Errorf("completion %d: got %s, want %s", i, sink.sources[i], req.Source)
		}
	}
}

// ── Cancellation ──────────────────────────────────────────────────────────────

// cancellingSink cancels the batch context once a target completion count
// is reached.
type cancellingSink struct {
	recordingSink
	cancelAt int
	cancel   context.CancelFunc
}

func (s *cancellingSink) OnOutcome(snap core.Snapshot, out core.ConversionOutcome) {
	s.recordingSink.OnOutcome(snap, out)
	if snap.Completed == s.cancelAt {
		s.cancel()
	}
}

func TestRunBatch_CancelStopsNewWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const workers = 2
	sink := &cancellingSink{cancelAt: 4, cancel: cancel}
	reqs := mixedRequests(20)

	res, err := core.RunBatch(ctx, reqs, core.BatchOptions{
		WorkerCount: workers,
		Convert:     stubTask(5 * time.Millisecond),
		Sink:        sink,
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	snap := res.Snapshot
	if snap.Completed < 4 {
		t.Errorf("completed: got %d, want at least 4", snap.Completed)
	}
	// In-flight tasks finish; nothing new starts after the cancel lands.
	if snap.Completed > 4+workers {
		t.Errorf("completed: got %d, want at most %d", snap.Completed, 4+workers)
	}
	if !res.Cancelled {
		t.Error("cancelled: got false after mid-batch cancel")
	}
	if snap.Completed != snap.Succeeded+snap.Failed {
		t.Errorf("counts: %d != %d+%d", snap.Completed, snap.Succeeded, snap.Failed)
	}
	if sink.calls() != snap.Completed {
		t.Errorf("sink calls: got %d, want %d", sink.calls(), snap.Completed)
	}
	for _, v := range sink.violations {
		t.Errorf("snapshot invariant: %s", v)
	}
}

func TestRunBatch_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := core.RunBatch(ctx, mixedRequests(8), core.BatchOptions{
		WorkerCount: 4,
		Convert:     stubTask(0),
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.Snapshot.Completed != 0 {
		t.Errorf("completed: got %d, want 0", res.Snapshot.Completed)
	}
	if !res.Cancelled {
		t.Error("cancelled: got false for a pre-cancelled context")
	}
}

func TestRunBatch_InFlightDetachedFromCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var taskCtxErrs []error

	task := func(taskCtx context.Context, req core.ConversionRequest) core.ConversionOutcome {
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		taskCtxErrs = append(taskCtxErrs, taskCtx.Err())
		mu.Unlock()
		return core.ConversionOutcome{Request: req, Status: core.StatusSuccess}
	}

	sink := &cancellingSink{cancelAt: 1, cancel: cancel}
	_, err := core.RunBatch(ctx, mixedRequests(8), core.BatchOptions{
		WorkerCount: 2,
		Convert:     task,
		Sink:        sink,
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, e := range taskCtxErrs {
		if e != nil {
			t.Errorf("task %d saw cancellation: %v", i, e)
		}
	}
}

// ── Stress ────────────────────────────────────────────────────────────────────

func TestRunBatch_StressMonotoneCounts(t *testing.T) {
	sink := &recordingSink{}
	reqs := mixedRequests(1000)

	res, err := core.RunBatch(context.Background(), reqs, core.BatchOptions{
		WorkerCount: 4,
		Convert:     stubTask(0),
		Sink:        sink,
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	if res.Snapshot.Completed != 1000 || res.Snapshot.Succeeded != 500 || res.Snapshot.Failed != 500 {
		t.Errorf("counts: got %d/%d/%d, want 1000/500/500",
			res.Snapshot.Completed, res.Snapshot.Succeeded, res.Snapshot.Failed)
	}
	if sink.calls() != 1000 {
		t.Errorf("sink calls: got %d, want 1000", sink.calls())
	}
	for _, v := range sink.violations {
		t.Errorf("snapshot invariant: %s", v)
	}
}
