package embed

import (
	"context"
	"testing"
	"time"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

func TestWorker_CallSuccess(t *testing.T) {
	w, err := spawnWorker(context.Background(), "sh", []string{"-c", `read -r line; printf '%s\n' '{"id":1,"result":{"ok":true}}'`})
	if err != nil {
		t.Fatalf("spawnWorker: %v", err)
	}
	defer func() { _ = w.cmd.Process.Kill() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := w.call(ctx, MethodEmbed, EmbedParams{Texts: []string{"hello"}})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.ID != 1 {
		t.Errorf("expected response id 1, got %d", resp.ID)
	}
}

func TestWorker_CallRPCError(t *testing.T) {
	w, err := spawnWorker(context.Background(), "sh", []string{"-c", `read -r line; printf '%s\n' '{"id":1,"error":{"code":1,"message":"boom"}}'`})
	if err != nil {
		t.Fatalf("spawnWorker: %v", err)
	}
	defer func() { _ = w.cmd.Process.Kill() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = w.call(ctx, MethodLoadModel, LoadModelParams{ModelID: "m"})
	if err == nil {
		t.Fatal("expected an RPC error")
	}
	if err.Error() != "boom" {
		t.Errorf("expected worker's error message to surface, got %q", err.Error())
	}
}

func TestWorker_CallTimeout(t *testing.T) {
	w, err := spawnWorker(context.Background(), "sh", []string{"-c", "sleep 10"})
	if err != nil {
		t.Fatalf("spawnWorker: %v", err)
	}
	defer func() { _ = w.cmd.Process.Kill() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = w.call(ctx, MethodEmbed, EmbedParams{Texts: []string{"hello"}})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if folderrerrors.GetCode(err) != folderrerrors.ErrCodeWorkerTimeout {
		t.Errorf("expected ErrCodeWorkerTimeout, got %v", folderrerrors.GetCode(err))
	}
	if !folderrerrors.IsRetryable(err) {
		t.Error("expected a worker timeout to be retryable")
	}
}

func TestWorker_CallAfterProcessExit(t *testing.T) {
	w, err := spawnWorker(context.Background(), "sh", []string{"-c", "true"})
	if err != nil {
		t.Fatalf("spawnWorker: %v", err)
	}
	defer func() { _ = w.cmd.Process.Kill() }()

	// Give the already-exited process time to close stdout so the
	// reader goroutine has observed it and closed w.lost.
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = w.call(ctx, MethodEmbed, EmbedParams{Texts: []string{"hello"}})
	if err == nil {
		t.Fatal("expected a worker-lost error after the process exited")
	}
	if folderrerrors.GetCode(err) != folderrerrors.ErrCodeWorkerLost {
		t.Errorf("expected ErrCodeWorkerLost, got %v", folderrerrors.GetCode(err))
	}
}

func TestWorker_CloseIsIdempotent(t *testing.T) {
	w, err := spawnWorker(context.Background(), "sh", []string{"-c", "sleep 0"})
	if err != nil {
		t.Fatalf("spawnWorker: %v", err)
	}

	if err := w.close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := w.close(); err != nil {
		t.Fatalf("second close should be a no-op, got: %v", err)
	}
}

func TestWorker_CallAfterClose(t *testing.T) {
	w, err := spawnWorker(context.Background(), "sh", []string{"-c", "sleep 0"})
	if err != nil {
		t.Fatalf("spawnWorker: %v", err)
	}
	if err := w.close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = w.call(context.Background(), MethodEmbed, EmbedParams{Texts: []string{"hello"}})
	if err == nil {
		t.Fatal("expected an error calling a closed worker")
	}
	if folderrerrors.GetCode(err) != folderrerrors.ErrCodeWorkerLost {
		t.Errorf("expected ErrCodeWorkerLost, got %v", folderrerrors.GetCode(err))
	}
}
