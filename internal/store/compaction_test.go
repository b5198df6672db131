package store

import (
	"context"
	"testing"
	"time"
)

func vectorsFor(t *testing.T, st *SQLiteStore, dim int, paths ...string) {
	t.Helper()
	for i, p := range paths {
		v := make([]float32, dim)
		v[0] = float32(i + 1)
		err := st.WriteDocument(context.Background(), "f1", DocumentWrite{
			RelativePath: p,
			Fingerprint:  Fingerprint{Size: 1},
			ModelID:      "m",
			Chunks: []ChunkWrite{
				{ID: "chunk-" + p, Ordinal: 0, Text: "x", TokenCount: 1, ExtractionCoords: []byte("{}"), Vector: v},
			},
		})
		if err != nil {
			t.Fatalf("WriteDocument(%s): %v", p, err)
		}
	}
}

func TestCompactor_OnIdlePastThresholdTriggersRebuild(t *testing.T) {
	st, err := Open(":memory:", DefaultVectorStoreConfig(4))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	vectorsFor(t, st, 4, "a.txt", "b.txt", "c.txt")
	for _, p := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := st.RemoveDocument(context.Background(), p); err != nil {
			t.Fatalf("RemoveDocument: %v", err)
		}
	}
	vectorsFor(t, st, 4, "d.txt")

	before := st.VectorStats()
	if before.Orphans == 0 {
		t.Fatalf("expected orphans from removed documents, got %+v", before)
	}

	c := NewCompactor(st, CompactionConfig{
		Enabled:         true,
		IdleTimeout:     10 * time.Millisecond,
		Cooldown:        time.Hour,
		OrphanThreshold: 0.1,
		MinOrphanCount:  1,
	})
	c.Start(context.Background())
	defer c.Stop()

	c.OnSearchComplete()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st.VectorStats().Orphans == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	after := st.VectorStats()
	if after.Orphans != 0 {
		t.Fatalf("expected compaction to clear orphans, got %+v", after)
	}
	if after.Live != 1 {
		t.Fatalf("expected the one surviving document's vector to remain, got %+v", after)
	}
}

func TestCompactor_BelowMinOrphanCountDoesNotRebuild(t *testing.T) {
	st, err := Open(":memory:", DefaultVectorStoreConfig(4))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	vectorsFor(t, st, 4, "a.txt")
	if err := st.RemoveDocument(context.Background(), "a.txt"); err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}

	c := NewCompactor(st, CompactionConfig{
		Enabled:         true,
		IdleTimeout:     10 * time.Millisecond,
		Cooldown:        time.Hour,
		OrphanThreshold: 0.1,
		MinOrphanCount:  1000,
	})
	c.Start(context.Background())
	defer c.Stop()

	c.OnSearchComplete()
	time.Sleep(100 * time.Millisecond)

	if got := st.VectorStats().Orphans; got == 0 {
		t.Fatalf("expected the orphan to survive below MinOrphanCount, got %d", got)
	}
}

func TestCompactor_DisabledNeverSchedules(t *testing.T) {
	st, err := Open(":memory:", DefaultVectorStoreConfig(4))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	c := NewCompactor(st, CompactionConfig{Enabled: false})
	c.Start(context.Background())
	defer c.Stop()

	c.OnSearchComplete()
	if c.idleTimer != nil {
		t.Fatal("expected no idle timer to be armed when compaction is disabled")
	}
}
