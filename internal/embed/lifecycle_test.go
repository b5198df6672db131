package embed

import (
	"context"
	"testing"
	"time"
)

func TestModelLifecycle_InitialStateIsIdle(t *testing.T) {
	l := newModelLifecycle()
	if cur := l.current(); cur.State != StateIdle {
		t.Fatalf("expected initial state idle, got %v", cur.State)
	}
}

func TestModelLifecycle_EnsureModel_LoadsFromIdle(t *testing.T) {
	l := newModelLifecycle()
	var loaded string

	err := l.ensureModel(context.Background(), "model-a",
		func(ctx context.Context, id string) error { loaded = id; return nil },
		func(ctx context.Context, id string) error { t.Fatal("unload should not be called from idle"); return nil },
	)
	if err != nil {
		t.Fatalf("ensureModel: %v", err)
	}
	if loaded != "model-a" {
		t.Fatalf("expected model-a to load, got %q", loaded)
	}
	cur := l.current()
	if cur.State != StateReady || cur.ModelID != "model-a" {
		t.Fatalf("expected ready(model-a), got %+v", cur)
	}
}

func TestModelLifecycle_EnsureModel_NoopWhenAlreadyReady(t *testing.T) {
	l := newModelLifecycle()
	loadCalls := 0
	load := func(ctx context.Context, id string) error { loadCalls++; return nil }
	unload := func(ctx context.Context, id string) error { return nil }

	if err := l.ensureModel(context.Background(), "model-a", load, unload); err != nil {
		t.Fatalf("first ensureModel: %v", err)
	}
	if err := l.ensureModel(context.Background(), "model-a", load, unload); err != nil {
		t.Fatalf("second ensureModel: %v", err)
	}
	if loadCalls != 1 {
		t.Fatalf("expected load to be called once, got %d", loadCalls)
	}
}

func TestModelLifecycle_EnsureModel_SwapsSequentially(t *testing.T) {
	l := newModelLifecycle()
	var order []string

	load := func(ctx context.Context, id string) error { order = append(order, "load:"+id); return nil }
	unload := func(ctx context.Context, id string) error { order = append(order, "unload:"+id); return nil }

	if err := l.ensureModel(context.Background(), "model-a", load, unload); err != nil {
		t.Fatalf("load model-a: %v", err)
	}
	if err := l.ensureModel(context.Background(), "model-b", load, unload); err != nil {
		t.Fatalf("swap to model-b: %v", err)
	}

	want := []string{"load:model-a", "unload:model-a", "load:model-b"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}

	cur := l.current()
	if cur.State != StateReady || cur.ModelID != "model-b" {
		t.Fatalf("expected ready(model-b), got %+v", cur)
	}
}

func TestModelLifecycle_EnsureModel_LoadFailureReturnsToIdle(t *testing.T) {
	l := newModelLifecycle()
	loadErr := context.DeadlineExceeded

	err := l.ensureModel(context.Background(), "model-a",
		func(ctx context.Context, id string) error { return loadErr },
		func(ctx context.Context, id string) error { return nil },
	)
	if err != loadErr {
		t.Fatalf("expected load error to propagate, got %v", err)
	}
	if cur := l.current(); cur.State != StateIdle {
		t.Fatalf("expected state to fall back to idle after a load failure, got %v", cur.State)
	}
}

func TestModelLifecycle_WaitForState_AlreadyThere(t *testing.T) {
	l := newModelLifecycle()
	if err := l.waitForState(context.Background(), StateIdle, "", time.Second); err != nil {
		t.Fatalf("waitForState: %v", err)
	}
}

func TestModelLifecycle_WaitForState_Transitions(t *testing.T) {
	l := newModelLifecycle()
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.transition(snapshot{State: StateReady, ModelID: "model-a"})
	}()

	if err := l.waitForState(context.Background(), StateReady, "model-a", time.Second); err != nil {
		t.Fatalf("waitForState: %v", err)
	}
}

func TestModelLifecycle_WaitForState_TimesOut(t *testing.T) {
	l := newModelLifecycle()
	err := l.waitForState(context.Background(), StateReady, "", 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}
