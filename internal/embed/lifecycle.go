package embed

import (
	"context"
	"fmt"
	"sync"
	"time"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

// WorkerState is a state in the worker lifecycle machine, separate
// from a folder's own lifecycle state.
type WorkerState string

const (
	StateIdle      WorkerState = "idle"
	StateLoading   WorkerState = "loading"
	StateReady     WorkerState = "ready"
	StateUnloading WorkerState = "unloading"
)

// snapshot is a point-in-time view of the worker lifecycle, the unit
// published on the fan-out channel.
type snapshot struct {
	State   WorkerState
	ModelID string
}

// modelLifecycle drives idle -> loading(modelId) -> ready(modelId) ->
// unloading -> idle. Model swaps are strictly sequential: the worker
// is never ready for two models at once.
//
// Consumers observe state via waitForState; they never mutate it from
// a callback, per the fan-out-channel design used throughout this
// package instead of observer hooks.
type modelLifecycle struct {
	mu    sync.Mutex
	state snapshot

	subscribers map[chan snapshot]struct{}
}

func newModelLifecycle() *modelLifecycle {
	return &modelLifecycle{
		state:       snapshot{State: StateIdle},
		subscribers: make(map[chan snapshot]struct{}),
	}
}

func (l *modelLifecycle) current() snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *modelLifecycle) transition(s snapshot) {
	l.mu.Lock()
	l.state = s
	subs := make([]chan snapshot, 0, len(l.subscribers))
	for ch := range l.subscribers {
		subs = append(subs, ch)
	}
	l.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- s:
		default:
		}
	}
}

func (l *modelLifecycle) subscribe() (chan snapshot, func()) {
	ch := make(chan snapshot, 1)
	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		delete(l.subscribers, ch)
		l.mu.Unlock()
	}
	return ch, cancel
}

// waitForState blocks until the lifecycle reaches state s (for any
// model, if modelID is empty, or for the specific modelID), or ctx/
// timeout expires.
func (l *modelLifecycle) waitForState(ctx context.Context, s WorkerState, modelID string, timeout time.Duration) error {
	if cur := l.current(); cur.State == s && (modelID == "" || cur.ModelID == modelID) {
		return nil
	}

	ch, cancel := l.subscribe()
	defer cancel()

	deadline := time.After(timeout)
	for {
		select {
		case snap := <-ch:
			if snap.State == s && (modelID == "" || snap.ModelID == modelID) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("timed out waiting for state %s", s)
		}
	}
}

// ensureModel drives the lifecycle to ready(modelID), unloading
// whatever model (if any) is currently resident first. loadFn and
// unloadFn perform the actual worker RPCs; ensureModel only sequences
// the state transitions around them.
func (l *modelLifecycle) ensureModel(ctx context.Context, modelID string, loadFn, unloadFn func(context.Context, string) error) error {
	cur := l.current()
	if cur.State == StateReady && cur.ModelID == modelID {
		return nil
	}

	if cur.State == StateReady || cur.State == StateLoading {
		l.transition(snapshot{State: StateUnloading, ModelID: cur.ModelID})
		if err := unloadFn(ctx, cur.ModelID); err != nil {
			return folderrerrors.WorkerLostError("unload resident model", err)
		}
		l.transition(snapshot{State: StateIdle})
	}

	l.transition(snapshot{State: StateLoading, ModelID: modelID})
	if err := loadFn(ctx, modelID); err != nil {
		l.transition(snapshot{State: StateIdle})
		return err
	}
	l.transition(snapshot{State: StateReady, ModelID: modelID})
	return nil
}
