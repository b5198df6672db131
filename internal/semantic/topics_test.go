package semantic

import "testing"

func TestTopicAssigner_SimilarEmbeddingsShareCluster(t *testing.T) {
	a := NewTopicAssigner()

	v1 := []float32{1, 0, 0, 0}
	v2 := []float32{0.99, 0.01, 0, 0}

	t1 := a.Assign("database replication engine", v1)
	t2 := a.Assign("database replication system", v2)

	if len(t1) != 1 || len(t2) != 1 {
		t.Fatalf("expected single-label topics, got %v and %v", t1, t2)
	}
	if t1[0] != t2[0] {
		t.Fatalf("expected similar embeddings to join the same cluster, got %q vs %q", t1[0], t2[0])
	}
	if len(a.clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(a.clusters))
	}
}

func TestTopicAssigner_DissimilarEmbeddingsSplit(t *testing.T) {
	a := NewTopicAssigner()

	a.Assign("database replication engine", []float32{1, 0, 0, 0})
	a.Assign("payroll tax withholding form", []float32{0, 1, 0, 0})

	if len(a.clusters) != 2 {
		t.Fatalf("expected two clusters, got %d", len(a.clusters))
	}
}

func TestTopicAssigner_EmptyEmbeddingYieldsNoTopic(t *testing.T) {
	a := NewTopicAssigner()
	if got := a.Assign("some text", nil); got != nil {
		t.Fatalf("expected nil topics for empty embedding, got %v", got)
	}
}

func TestCosineSimilarity_MismatchedLengths(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}); got != -1 {
		t.Fatalf("expected -1 for mismatched lengths, got %v", got)
	}
}

func TestCosineSimilarity_Identical(t *testing.T) {
	v := []float32{1, 2, 3}
	sim := cosineSimilarity(v, v)
	if sim < 0.999 || sim > 1.001 {
		t.Fatalf("expected ~1 for identical vectors, got %v", sim)
	}
}
