// Package lifecycle implements the per-folder state machine that drives
// a registered folder from registration through scanning and indexing
// into a steady watched state, and the prioritized task queue that
// backs its indexing phase.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// State is one node of the folder lifecycle state machine.
type State string

const (
	StatePending   State = "pending"
	StateScanning  State = "scanning"
	StateReady     State = "ready"
	StateIndexing  State = "indexing"
	StateActive    State = "active"
	StateError     State = "error"
)

// Snapshot is the observable result of Progress(), safe to read from
// any goroutine at any time.
type Snapshot struct {
	FolderID  string
	Phase     State
	Total     int
	Done      int
	Failed    int
	Percent   float64
	ErrorMessage string

	LastScanStarted    time.Time
	LastIndexStarted   time.Time
	LastIndexCompleted time.Time
}

// Scanner performs one scan cycle for a folder, returning the tasks to
// enqueue. A non-nil error transitions the machine straight to
// StateError: no partial task set is ever enqueued from a failed scan.
type Scanner interface {
	Scan(ctx context.Context, folderID string) ([]Task, error)
}

// Executor applies a single task (an embedding create/update/remove
// operation against the storage adapter). A returned error that
// implements the worker-lost/worker-timeout retryable classification is
// retried per the bounded-backoff policy; any other error fails the
// task permanently.
type Executor interface {
	Execute(ctx context.Context, task Task) error
}

// Machine drives one folder's lifecycle. It is safe for concurrent use;
// callers observe state via Progress() (Snapshot) while Start(),
// NotifyChanges(), and Dispose() mutate it.
type Machine struct {
	folderID    string
	scanner     Scanner
	executor    Executor
	retry       RetryPolicy
	concurrency int // max tasks drained concurrently

	mu    sync.Mutex
	state State
	queue *Queue

	total, done, failed int
	errorMessage        string

	lastScanStarted    time.Time
	lastIndexStarted   time.Time
	lastIndexCompleted time.Time

	pendingBatch []Change // events buffered while indexing, applied after drain
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	draining     bool // true for the lifetime of one in-flight drain goroutine
}

// NewMachine constructs a Machine in StatePending. concurrency bounds
// how many tasks are drained from the queue at once; values <= 0 are
// treated as 1.
func NewMachine(folderID string, scanner Scanner, executor Executor, retry RetryPolicy, concurrency int) *Machine {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Machine{
		folderID:    folderID,
		scanner:     scanner,
		executor:    executor,
		retry:       retry,
		concurrency: concurrency,
		state:       StatePending,
		queue:       NewQueue(),
	}
}

// Start transitions pending -> scanning and kicks off the first scan.
// It is idempotent: calling it when the machine is already past pending
// is a no-op.
func (m *Machine) Start(ctx context.Context) {
	m.mu.Lock()
	if m.state != StatePending {
		m.mu.Unlock()
		return
	}
	m.state = StateScanning
	m.total, m.done, m.failed = 0, 0, 0
	m.lastScanStarted = now()
	m.mu.Unlock()

	m.runScan(ctx)
}

// NotifyChanges accepts a coalesced watcher batch. It is only
// meaningful in StateActive or StateIndexing; in StateIndexing the
// batch is buffered and a follow-up scan runs once the current drain
// ends.
func (m *Machine) NotifyChanges(ctx context.Context, batch []Change) {
	m.mu.Lock()
	switch m.state {
	case StateActive:
		m.state = StateScanning
		m.lastScanStarted = now()
		m.mu.Unlock()
		m.runScan(ctx)
		return
	case StateIndexing:
		m.pendingBatch = append(m.pendingBatch, batch...)
		m.mu.Unlock()
	default:
		m.mu.Unlock()
	}
}

// Progress returns a snapshot observable from any goroutine at any
// time.
func (m *Machine) Progress() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := m.total
	if total == 0 {
		total = 1
	}
	percent := float64(m.done) / float64(total) * 100
	if percent > 100 {
		percent = 100
	}
	return Snapshot{
		FolderID:           m.folderID,
		Phase:              m.state,
		Total:              m.total,
		Done:               m.done,
		Failed:             m.failed,
		Percent:            percent,
		ErrorMessage:       m.errorMessage,
		LastScanStarted:    m.lastScanStarted,
		LastIndexStarted:   m.lastIndexStarted,
		LastIndexCompleted: m.lastIndexCompleted,
	}
}

// Dispose releases the machine's running work; any queued tasks are
// abandoned.
func (m *Machine) Dispose() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Machine) runScan(ctx context.Context) {
	scanCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	tasks, err := m.scanner.Scan(scanCtx, m.folderID)
	if err != nil {
		m.mu.Lock()
		m.state = StateError
		m.errorMessage = fmt.Sprintf("scan failed: %v", err)
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	if len(tasks) == 0 {
		m.state = StateActive
		m.lastIndexCompleted = now()
		m.mu.Unlock()
		return
	}
	for _, t := range tasks {
		m.queue.Push(t)
	}
	m.total = len(tasks)
	m.state = StateReady
	m.mu.Unlock()

	m.beginIndexing(ctx)
}

// StartIndexing transitions ready -> indexing and begins draining the
// task queue. Exposed so callers (and tests) can drive the transition
// explicitly; runScan also calls this (via beginIndexing) to start the
// same drain automatically once a scan produces tasks, so the two never
// race a queue between them.
func (m *Machine) StartIndexing(ctx context.Context) {
	m.beginIndexing(ctx)
}

// beginIndexing transitions ready -> indexing and launches the single
// drain goroutine for this indexing cycle. It is the one path both
// runScan and the exported StartIndexing go through, guarded so a
// drain already in flight is never started a second time: the state
// check alone would do it in the common case, but draining is kept as
// an explicit second guard since it is the condition that actually
// matters (state is what callers observe; draining is what must be
// true at most once).
func (m *Machine) beginIndexing(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateReady || m.draining {
		m.mu.Unlock()
		return
	}
	m.state = StateIndexing
	m.lastIndexStarted = now()
	m.draining = true
	m.mu.Unlock()

	m.startIndexing(ctx)
}

func (m *Machine) startIndexing(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.drain(ctx)
	}()
}

// drain pulls tasks off the queue in priority order until it is empty,
// retrying each with the machine's backoff policy.
func (m *Machine) drain(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for {
		task, ok := m.queue.Pop()
		if !ok {
			break
		}

		select {
		case <-ctx.Done():
			_ = g.Wait()
			return
		default:
		}

		g.Go(func() error {
			err := Retry(gctx, m.retry, func() error {
				return m.executor.Execute(gctx, task)
			})

			m.mu.Lock()
			if err != nil {
				m.failed++
			} else {
				m.done++
			}
			m.mu.Unlock()
			return nil // task failures are recorded, not propagated to the group
		})
	}
	_ = g.Wait()

	m.mu.Lock()
	m.state = StateActive
	m.lastIndexCompleted = now()
	m.draining = false
	pending := m.pendingBatch
	m.pendingBatch = nil
	m.mu.Unlock()

	if len(pending) > 0 {
		m.NotifyChanges(ctx, pending)
	}
}

// now is a seam so tests can stub the clock if ever needed; production
// code always uses wall-clock time.
var now = time.Now
