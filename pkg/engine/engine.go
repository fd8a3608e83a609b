// Package engine is the supervisor that drains queues against live
// browser sessions. One worker executes queues strictly sequentially
// (each queue holds an exclusive profile lock for its account) and
// drives up to batch_size tabs within the current batch. Progress is
// written to the durable store before the matching event reaches any
// observer, and a pause or cancel request is honored within one item's
// processing time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"croon/pkg/catalog"
	"croon/pkg/queue"
	"croon/pkg/session"
)

// DefaultRestartEvery is the hard-cleanup period: after this many items
// every open tab is restarted under the same session, regardless of
// batch boundaries, to bound browser memory growth.
const DefaultRestartEvery = 8

// sinkBufferSize bounds how many undelivered events may pile up before
// the engine starts dropping them instead of stalling.
const sinkBufferSize = 64

// Store is the slice of the queue store the engine drives.
type Store interface {
	Get(id string) (queue.Entry, error)
	Transition(id string, to queue.Status) (queue.Entry, error)
	RecordProgress(id string, delta, nextItem int) (queue.Entry, error)
	Catalog() *catalog.Catalog
}

// Sessions acquires and releases per-account automation sessions.
type Sessions interface {
	Acquire(ctx context.Context, accountName string) (*session.Session, error)
	Release(s *session.Session) error
}

// SubmissionRef identifies an item accepted by the platform.
type SubmissionRef struct {
	ID string
}

// FormFiller drives the platform's creation form in one tab. The
// engine treats it as a black box: only the result and its timing
// matter.
type FormFiller interface {
	Fill(ctx context.Context, tab session.Tab, item catalog.WorkItem) (SubmissionRef, error)
}

// Outcome is the per-item record handed to an attached recorder for
// audit and export. Recording is best-effort and never affects queue
// state.
type Outcome struct {
	QueueID      string
	AccountName  string
	ItemIndex    int // absolute catalog index
	Title        string
	SubmissionID string
	Status       string
	Error        string
}

// Recorder consumes finalized per-item outcomes.
type Recorder interface {
	RecordOutcome(Outcome)
}

// Options configures optional engine collaborators.
type Options struct {
	Sink         Sink
	Pacer        Pacer
	Recorder     Recorder
	Logger       *log.Logger
	RestartEvery int
}

// Engine executes queues. Construct once with New and reuse; Run may be
// called for successive batches of queue IDs.
type Engine struct {
	store        Store
	sessions     Sessions
	filler       FormFiller
	pacer        Pacer
	recorder     Recorder
	sink         Sink
	logger       *log.Logger
	restartEvery int
}

// New builds an Engine around the given collaborators.
func New(store Store, sessions Sessions, filler FormFiller, opts Options) *Engine {
	e := &Engine{
		store:        store,
		sessions:     sessions,
		filler:       filler,
		pacer:        opts.Pacer,
		recorder:     opts.Recorder,
		sink:         opts.Sink,
		logger:       opts.Logger,
		restartEvery: opts.RestartEvery,
	}
	if e.pacer == nil {
		e.pacer = NewHumanPacer(DefaultMinInterval, DefaultMaxJitter)
	}
	if e.sink == nil {
		e.sink = func(ProgressEvent) {}
	}
	if e.logger == nil {
		e.logger = log.New(discardWriter{}, "", 0)
	}
	if e.restartEvery <= 0 {
		e.restartEvery = DefaultRestartEvery
	}
	return e
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Run executes the given queues in order. Queue-level failures are
// isolated: a failed queue is marked and the next one still runs. Run
// returns non-nil only when the run-scoped context is cancelled.
func (e *Engine) Run(ctx context.Context, queueIDs []string) error {
	sink := newBufferedSink(e.sink, sinkBufferSize)
	defer sink.close()

	for _, id := range queueIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.runQueue(ctx, id, sink); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			e.logger.Printf("queue %s stopped: %v", id, err)
		}
	}
	return nil
}

// runQueue drives a single queue to a terminal or paused state. The
// session is released on every path.
func (e *Engine) runQueue(ctx context.Context, id string, sink *bufferedSink) error {
	entry, err := e.store.Get(id)
	if err != nil {
		return err
	}
	if entry.Status != queue.StatusPending && entry.Status != queue.StatusPaused {
		return fmt.Errorf("queue is %s, not runnable", entry.Status)
	}
	resuming := entry.Status == queue.StatusPaused

	entry, err = e.store.Transition(id, queue.StatusRunning)
	if err != nil {
		return err
	}
	if resuming {
		e.logger.Printf("queue %s resuming at item %d (%d/%d items done)",
			id, entry.NextItem+1, entry.ItemsCompleted, entry.TotalItems)
	}

	sess, err := e.sessions.Acquire(ctx, entry.AccountName)
	if err != nil {
		sink.emit(ProgressEvent{QueueID: id, Status: EventError, Message: "session: " + err.Error()})
		if ctx.Err() != nil {
			e.transitionQuietly(id, queue.StatusCancelled)
			return ctx.Err()
		}
		// ProfileLockedError and TokenError both fail the queue with no
		// automatic retry; the operator resolves and resubmits.
		e.transitionQuietly(id, queue.StatusFailed)
		return err
	}
	defer e.sessions.Release(sess)

	return e.runBatches(ctx, entry, sess, sink)
}

// runBatches walks the queue's reserved range batch by batch. A resumed
// queue picks up at the persisted resume point, mid-batch included, so
// no item is ever submitted twice.
func (e *Engine) runBatches(ctx context.Context, entry queue.Entry, sess *session.Session, sink *bufferedSink) error {
	items := e.store.Catalog().Slice(entry.ItemRange)
	if len(items) < entry.TotalItems {
		e.transitionQuietly(entry.ID, queue.StatusFailed)
		return fmt.Errorf("catalog holds %d of %d reserved items", len(items), entry.TotalItems)
	}

	batchCount := entry.BatchCount()
	itemsSinceRestart := 0
	resumeFrom := entry.NextItem

	for b := resumeFrom / entry.BatchSize; b < batchCount; b++ {
		if stop, err := e.checkControl(ctx, entry.ID); stop {
			return err
		}

		start := b * entry.BatchSize
		n := min(entry.BatchSize, entry.TotalItems-start)
		first := 0
		if resumeFrom > start {
			first = resumeFrom - start
		}

		tabs, err := e.openTabs(ctx, sess, n-first)
		if err != nil {
			return e.failRun(entry.ID, sink, fmt.Errorf("open batch tabs: %w", err))
		}
		tabBase := first

		for i := first; i < n; i++ {
			if stop, err := e.checkControl(ctx, entry.ID); stop {
				closeTabs(tabs)
				return err
			}

			// Periodic hard cleanup: restart every handle under the
			// same session.
			if itemsSinceRestart >= e.restartEvery {
				closeTabs(tabs)
				tabs, err = e.openTabs(ctx, sess, n-i)
				if err != nil {
					return e.failRun(entry.ID, sink, fmt.Errorf("restart tabs: %w", err))
				}
				tabBase = i
				itemsSinceRestart = 0
			}

			item := items[start+i]
			itemNum := start + i + 1
			sink.emit(ProgressEvent{
				QueueID: entry.ID, BatchNum: b + 1, ItemNum: itemNum,
				Status: EventStarting, Message: item.Title,
			})

			if err := e.pacer.Pace(ctx); err != nil {
				closeTabs(tabs)
				e.transitionQuietly(entry.ID, queue.StatusCancelled)
				return err
			}

			ref, fillErr := e.filler.Fill(ctx, tabs[i-tabBase], item)
			itemsSinceRestart++

			if fillErr != nil {
				if ctx.Err() != nil {
					closeTabs(tabs)
					e.transitionQuietly(entry.ID, queue.StatusCancelled)
					return ctx.Err()
				}
				if !sess.Healthy(ctx) {
					closeTabs(tabs)
					return e.failRun(entry.ID, sink, fmt.Errorf("session died: %w", fillErr))
				}
				// Isolated per-item failure: the attempt still consumes
				// the item, so the resume point moves past it and the
				// failure stays visible in the final counts.
				if _, err := e.store.RecordProgress(entry.ID, 0, start+i+1); err != nil {
					closeTabs(tabs)
					return e.failRun(entry.ID, sink, fmt.Errorf("persist progress: %w", err))
				}
				sink.emit(ProgressEvent{
					QueueID: entry.ID, BatchNum: b + 1, ItemNum: itemNum,
					Status: EventError, Message: fillErr.Error(),
				})
				e.record(entry, entry.ItemRange.Start+start+i, item, SubmissionRef{}, "error", fillErr.Error())
				continue
			}

			// Durable progress happens-before the success event.
			if _, err := e.store.RecordProgress(entry.ID, 1, start+i+1); err != nil {
				closeTabs(tabs)
				return e.failRun(entry.ID, sink, fmt.Errorf("persist progress: %w", err))
			}
			sink.emit(ProgressEvent{
				QueueID: entry.ID, BatchNum: b + 1, ItemNum: itemNum,
				Status: EventSuccess, Message: item.Title,
			})
			e.record(entry, entry.ItemRange.Start+start+i, item, ref, "success", "")
		}

		closeTabs(tabs)
	}

	if _, err := e.store.Transition(entry.ID, queue.StatusCompleted); err != nil {
		return err
	}
	e.logger.Printf("queue %s completed", entry.ID)
	return nil
}

// checkControl is the cooperative cancellation point, evaluated between
// items. Run-scoped cancellation marks the queue cancelled; an external
// pause or cancel (written to the store by another goroutine) stops the
// run and leaves the externally-set status in place.
func (e *Engine) checkControl(ctx context.Context, id string) (bool, error) {
	if ctx.Err() != nil {
		e.transitionQuietly(id, queue.StatusCancelled)
		return true, ctx.Err()
	}
	entry, err := e.store.Get(id)
	if err != nil {
		return true, err
	}
	switch entry.Status {
	case queue.StatusPaused:
		e.logger.Printf("queue %s paused at %d/%d items", id, entry.ItemsCompleted, entry.TotalItems)
		return true, nil
	case queue.StatusCancelled:
		e.logger.Printf("queue %s cancelled at %d/%d items", id, entry.ItemsCompleted, entry.TotalItems)
		return true, nil
	}
	return false, nil
}

// failRun marks the queue failed, reports it, and returns err for the
// caller to surface. Progress already persisted is preserved.
func (e *Engine) failRun(id string, sink *bufferedSink, err error) error {
	sink.emit(ProgressEvent{QueueID: id, Status: EventError, Message: err.Error()})
	e.transitionQuietly(id, queue.StatusFailed)
	return err
}

// transitionQuietly applies a transition and logs instead of failing;
// used on paths already unwinding from another error. The store's
// idempotent terminal-state check absorbs races with external requests.
func (e *Engine) transitionQuietly(id string, to queue.Status) {
	if _, err := e.store.Transition(id, to); err != nil {
		var invalid *queue.InvalidTransitionError
		if !errors.As(err, &invalid) {
			e.logger.Printf("queue %s: transition to %s: %v", id, to, err)
		}
	}
}

func (e *Engine) openTabs(ctx context.Context, sess *session.Session, n int) ([]session.Tab, error) {
	tabs := make([]session.Tab, 0, n)
	for i := 0; i < n; i++ {
		tab, err := sess.NewTab(ctx)
		if err != nil {
			closeTabs(tabs)
			return nil, err
		}
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

func closeTabs(tabs []session.Tab) {
	for _, t := range tabs {
		_ = t.Close()
	}
}

func (e *Engine) record(entry queue.Entry, itemIndex int, item catalog.WorkItem, ref SubmissionRef, status, errMsg string) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordOutcome(Outcome{
		QueueID:      entry.ID,
		AccountName:  entry.AccountName,
		ItemIndex:    itemIndex,
		Title:        item.Title,
		SubmissionID: ref.ID,
		Status:       status,
		Error:        errMsg,
	})
}
