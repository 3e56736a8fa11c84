package executor

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EventEmitter is a buffered, thread-safe event channel for hosts that
// consume the stream asynchronously (the CLI, a TUI). If the channel is
// full the emitter tries briefly, then drops the event and counts the drop.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	log          *zap.SugaredLogger
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(bufferSize int, log *zap.SugaredLogger) *EventEmitter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &EventEmitter{
		events: make(chan Event, bufferSize),
		log:    log,
	}
}

// Emit sends an event, dropping it after a short grace period if the
// receiver is not draining.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			e.log.Warnw("event channel full, dropping",
				"type", event.Type, "total_dropped", count)
		}
	}
}

// DroppedCount returns how many events have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read side of the stream.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the stream. Call only after the last Emit.
func (e *EventEmitter) Close() {
	close(e.events)
}
