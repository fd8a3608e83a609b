package engine

import "fmt"

// EventStatus classifies a progress event.
type EventStatus string

// Progress event status constants.
const (
	EventStarting EventStatus = "starting"
	EventSuccess  EventStatus = "success"
	EventError    EventStatus = "error"
)

// ProgressEvent is the unit exchanged with observers. Transient: the
// engine never persists events, and durable progress is written before
// the corresponding event is emitted, so an observer never sees a
// notification unsupported by on-disk state.
type ProgressEvent struct {
	QueueID  string
	BatchNum int
	ItemNum  int
	Status   EventStatus
	Message  string
}

// Sink receives progress events. Implementations must not block the
// engine's worker beyond a bounded duration; the engine additionally
// guards itself by routing events through a drop-on-overflow buffer.
type Sink func(ProgressEvent)

// bufferedSink decouples the worker from a slow observer: events go
// into a bounded channel drained by one goroutine, and overflow is
// dropped rather than stalling the engine.
type bufferedSink struct {
	ch      chan ProgressEvent
	done    chan struct{}
	dropped int
}

func newBufferedSink(sink Sink, size int) *bufferedSink {
	b := &bufferedSink{
		ch:   make(chan ProgressEvent, size),
		done: make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		for ev := range b.ch {
			sink(ev)
		}
	}()
	return b
}

func (b *bufferedSink) emit(ev ProgressEvent) {
	select {
	case b.ch <- ev:
	default:
		b.dropped++
	}
}

// close flushes buffered events and waits for the drain goroutine.
func (b *bufferedSink) close() {
	close(b.ch)
	<-b.done
}

func (e ProgressEvent) String() string {
	return fmt.Sprintf("[%s] queue=%s batch=%d item=%d %s", e.Status, e.QueueID, e.BatchNum, e.ItemNum, e.Message)
}
