package embed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

// Config configures the embedding worker subprocess and its request
// handling. WorkerCommand/WorkerArgs launch the out-of-process
// embedding executable; CapabilityPath points at the YAML model
// capability registry (§6).
type Config struct {
	WorkerCommand  string
	WorkerArgs     []string
	CapabilityPath string
	BatchSize      int
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

// Coordinator is the single process-wide owner of the embedding
// worker subprocess. This is a hard singleton per spec.md §4.5: the
// worker is the one truly global mutable resource in the system, and
// a second instance would race against the first over the same
// worker-cache directory and model state. Construction is unexported;
// Get is the only accessor.
type Coordinator struct {
	cfg   Config
	caps  *CapabilityTable
	life  *modelLifecycle
	lock  *FileLock

	mu sync.Mutex
	w  *worker
}

var (
	instanceOnce sync.Once
	instance     *Coordinator
	instanceErr  error
)

// Get returns the process-wide Coordinator, constructing it on first
// call. Subsequent calls ignore cfg and return the same instance --
// per design, there is never a second worker in this process.
func Get(cfg Config) (*Coordinator, error) {
	instanceOnce.Do(func() {
		instance, instanceErr = newCoordinator(cfg)
	})
	return instance, instanceErr
}

// newCoordinator is unexported: callers reach the Coordinator only
// through Get.
func newCoordinator(cfg Config) (*Coordinator, error) {
	cfg = cfg.withDefaults()

	caps, err := LoadCapabilityTable(cfg.CapabilityPath)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		cfg:  cfg,
		caps: caps,
		life: newModelLifecycle(),
	}, nil
}

// Embed generates vectors for a batch of texts using modelID, honoring
// that model's declared input/output transformations. class determines
// the literal text prefix (if any) and is forwarded to the worker in the
// request. Requests are not queued or reordered by class here: an
// Interactive (search-time) request is sent to the worker as soon as it
// is made, with no priority over Indexing batches.
func (c *Coordinator) Embed(ctx context.Context, modelID string, texts []string, class RequestClass) ([][]float32, error) {
	caps, err := c.caps.Lookup(modelID)
	if err != nil {
		return nil, err
	}

	if err := c.ensureModel(ctx, modelID); err != nil {
		return nil, err
	}

	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = prepareText(t, class, caps)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	w, err := c.activeWorker(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := w.call(reqCtx, MethodEmbed, EmbedParams{Texts: prepared, Class: string(class)})
	if err != nil {
		if folderrerrors.GetCode(err) == folderrerrors.ErrCodeWorkerLost {
			c.onWorkerLost()
		}
		return nil, err
	}

	var result EmbedResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, folderrerrors.InternalError("decode embed response", err)
	}

	for i, v := range result.Vectors {
		result.Vectors[i] = postprocessVector(v, caps)
	}
	return result.Vectors, nil
}

// ExtractSemantics requests key phrases, topics, and readability for
// text from the worker. When reuseEmbedding is non-nil the worker must
// not recompute the document embedding.
func (c *Coordinator) ExtractSemantics(ctx context.Context, modelID, text string, reuseEmbedding []float32) (*ExtractSemanticsResult, error) {
	if _, err := c.caps.Lookup(modelID); err != nil {
		return nil, err
	}
	if err := c.ensureModel(ctx, modelID); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	w, err := c.activeWorker(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := w.call(reqCtx, MethodExtractSemantics, ExtractSemanticsParams{Text: text, ReuseEmbedding: reuseEmbedding})
	if err != nil {
		if folderrerrors.GetCode(err) == folderrerrors.ErrCodeWorkerLost {
			c.onWorkerLost()
		}
		return nil, err
	}

	var result ExtractSemanticsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, folderrerrors.InternalError("decode extract_semantics response", err)
	}
	return &result, nil
}

// Capabilities returns the declarative capability entry for modelID,
// so callers outside the coordinator (e.g. internal/semantic choosing
// between worker-side extraction and its local fallback) can branch on
// a model's declared capabilities without duplicating the registry.
func (c *Coordinator) Capabilities(modelID string) (ModelCapabilities, error) {
	return c.caps.Lookup(modelID)
}

// ensureModel drives the lifecycle machine to ready(modelID), spawning
// the worker subprocess on first use.
func (c *Coordinator) ensureModel(ctx context.Context, modelID string) error {
	w, err := c.activeWorker(ctx)
	if err != nil {
		return err
	}

	return c.life.ensureModel(ctx, modelID,
		func(ctx context.Context, id string) error {
			resp, err := w.call(ctx, MethodLoadModel, LoadModelParams{ModelID: id})
			if err != nil {
				return err
			}
			if resp.Error != nil {
				return folderrerrors.UnsupportedModelError("load model "+id, resp.Error)
			}
			return nil
		},
		func(ctx context.Context, id string) error {
			_, err := w.call(ctx, MethodUnloadModel, nil)
			return err
		},
	)
}

// activeWorker returns the running worker subprocess, spawning it on
// first use.
func (c *Coordinator) activeWorker(ctx context.Context) (*worker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.w != nil {
		return c.w, nil
	}

	w, err := spawnWorker(ctx, c.cfg.WorkerCommand, c.cfg.WorkerArgs)
	if err != nil {
		return nil, err
	}
	c.w = w
	return w, nil
}

// onWorkerLost tears down the dead subprocess handle and resets the
// lifecycle to idle; the next ensureModel respawns a fresh worker. The
// in-flight call still returns its worker-lost error, which is
// retryable: no task is re-queued, the caller's Retry repeats it.
func (c *Coordinator) onWorkerLost() {
	c.mu.Lock()
	w := c.w
	c.w = nil
	c.mu.Unlock()

	if w != nil {
		_ = w.close()
	}
	c.life.transition(snapshot{State: StateIdle})
}

// Close shuts down the worker subprocess. Intended for process
// shutdown only.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	w := c.w
	c.w = nil
	c.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.close()
}
