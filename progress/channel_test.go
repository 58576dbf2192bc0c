package progress_test

import (
	"testing"

	"heiconv/core"
	apperrors "heiconv/errors"
	"heiconv/progress"
)

func TestChannelSink_DeliversUpdates(t *testing.T) {
	sink := progress.NewChannelSink(4)

	sink.OnOutcome(core.Snapshot{Total: 2, Completed: 1, Succeeded: 1},
		successOutcome("a.heic", core.FormatJPEG, 99))
	sink.OnOutcome(core.Snapshot{Total: 2, Completed: 2, Succeeded: 1, Failed: 1},
		failureOutcome("b.heic", apperrors.KindSourceUnreadable))
	sink.Close()

	var got []progress.Update
	for u := range sink.Updates() {
		got = append(got, u)
	}
	if len(got) != 2 {
		t.Fatalf("received %d updates, want 2", len(got))
	}

	if got[0].Source != "a.heic" || !got[0].Success || got[0].Format != core.FormatJPEG {
		t.Errorf("first update = %+v", got[0])
	}
	if got[0].Snapshot.Completed != 1 {
		t.Errorf("first snapshot completed = %d, want 1", got[0].Snapshot.Completed)
	}
	if got[1].Success || got[1].Kind != apperrors.KindSourceUnreadable || got[1].Err == "" {
		t.Errorf("second update = %+v", got[1])
	}
	if sink.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", sink.Dropped())
	}
}

func TestChannelSink_DropsOldestWhenConsumerLags(t *testing.T) {
	sink := progress.NewChannelSink(1)

	for i := 1; i <= 3; i++ {
		snap := core.Snapshot{Total: 3, Completed: i, Succeeded: i}
		sink.OnOutcome(snap, successOutcome("x.heic", core.FormatPNG, 1))
	}
	sink.Close()

	var last progress.Update
	n := 0
	for u := range sink.Updates() {
		last = u
		n++
	}
	if n != 1 {
		t.Fatalf("received %d updates from a full buffer of 1, want 1", n)
	}
	if last.Snapshot.Completed != 3 {
		t.Errorf("kept update has completed = %d, want the newest (3)", last.Snapshot.Completed)
	}
	if sink.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", sink.Dropped())
	}
}

func TestChannelSink_BufferFloorOfOne(t *testing.T) {
	sink := progress.NewChannelSink(0)

	// Must not block even with no consumer attached.
	sink.OnOutcome(core.Snapshot{Total: 1, Completed: 1, Succeeded: 1},
		successOutcome("a.heic", core.FormatPNG, 1))
	sink.Close()

	if _, ok := <-sink.Updates(); !ok {
		t.Error("expected one buffered update before close")
	}
	if _, ok := <-sink.Updates(); ok {
		t.Error("expected the channel to be closed")
	}
}
