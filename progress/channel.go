package progress

import (
	"sync/atomic"

	"heiconv/core"
	apperrors "heiconv/errors"
)

// Update is one progress event delivered to a channel consumer.
type Update struct {
	Snapshot core.Snapshot
	Source   string
	Format   core.Format
	Success  bool
	Kind     apperrors.Kind
	Err      string
}

// ChannelSink forwards outcomes to a buffered channel without ever
// blocking the workers. When the consumer lags, the oldest queued update
// is dropped so the newest snapshot always gets through.
type ChannelSink struct {
	ch      chan Update
	dropped int64
}

// NewChannelSink creates a sink with the given buffer size; sizes below
// one are raised to one.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan Update, buffer)}
}

func (s *ChannelSink) OnOutcome(snap core.Snapshot, out core.ConversionOutcome) {
	u := Update{
		Snapshot: snap,
		Source:   out.Request.Source,
		Format:   out.Request.Format,
		Success:  out.Succeeded(),
	}
	if out.Err != nil {
		u.Kind, _ = apperrors.KindOf(out.Err)
		u.Err = out.Err.Error()
	}

	select {
	case s.ch <- u:
		return
	default:
	}
	select {
	case <-s.ch:
		atomic.AddInt64(&s.dropped, 1)
	default:
	}
	select {
	case s.ch <- u:
	default:
		atomic.AddInt64(&s.dropped, 1)
	}
}

// Updates returns the consumer side of the sink.
func (s *ChannelSink) Updates() <-chan Update { return s.ch }

// Dropped reports how many updates were discarded to keep workers moving.
func (s *ChannelSink) Dropped() int64 { return atomic.LoadInt64(&s.dropped) }

// Close releases the consumer. Call only after the batch has returned;
// the sink must not receive further outcomes.
func (s *ChannelSink) Close() { close(s.ch) }
