package semantic

import (
	"math"
	"sort"
	"sync"

	"github.com/viterin/vek"
)

// defaultTopicSimilarityThreshold is the cosine-similarity bar a
// chunk's embedding must clear against an existing cluster's centroid
// to join it rather than start a new topic.
const defaultTopicSimilarityThreshold = 0.82

// topicCluster is one online-clustered topic: a running centroid plus
// the content-word frequencies of every chunk assigned to it, used to
// derive a human-readable label.
type topicCluster struct {
	centroid []float32
	count    int
	termFreq map[string]int
}

// TopicAssigner groups chunks into topics by nearest-centroid
// clustering over their embeddings (spec.md §4.6: "clustered labels
// derived from chunk text and its embedding"). The orchestrator keeps
// one per registered folder (through that folder's Enricher) for as
// long as the folder is registered, so labels stay stable across
// indexing cycles; clusters are never pruned, so their number grows
// with the distinct topics the folder's chunks produce.
type TopicAssigner struct {
	mu        sync.Mutex
	threshold float32
	clusters  []*topicCluster
}

// NewTopicAssigner constructs an empty assigner.
func NewTopicAssigner() *TopicAssigner {
	return &TopicAssigner{threshold: defaultTopicSimilarityThreshold}
}

// Assign returns a single-element topic label for text's embedding,
// joining the nearest existing cluster above the similarity threshold
// or starting a new one. A chunk with no embedding (e.g. an empty
// chunk with nothing to embed) gets no topic.
func (a *TopicAssigner) Assign(text string, embedding []float32) []string {
	if len(embedding) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	best := -1
	bestSim := float32(-1)
	for i, c := range a.clusters {
		if sim := cosineSimilarity(embedding, c.centroid); sim > bestSim {
			bestSim = sim
			best = i
		}
	}

	words := contentWords(text)

	if best == -1 || bestSim < a.threshold {
		c := &topicCluster{
			centroid: append([]float32(nil), embedding...),
			count:    1,
			termFreq: make(map[string]int),
		}
		for _, w := range words {
			c.termFreq[w]++
		}
		a.clusters = append(a.clusters, c)
		return []string{topicLabel(c)}
	}

	c := a.clusters[best]
	updateCentroidInPlace(c.centroid, embedding, c.count)
	c.count++
	for _, w := range words {
		c.termFreq[w]++
	}
	return []string{topicLabel(c)}
}

// updateCentroidInPlace folds v into centroid as an incremental mean
// over priorCount+1 observations.
func updateCentroidInPlace(centroid, v []float32, priorCount int) {
	n := float32(priorCount + 1)
	for i := range centroid {
		centroid[i] = (centroid[i]*float32(priorCount) + v[i]) / n
	}
}

// cosineSimilarity computes cosine similarity over two equal-length
// vectors via vek's SIMD-accelerated dot product.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	dot := vek.Dot(a, b)
	normA := math.Sqrt(float64(vek.Dot(a, a)))
	normB := math.Sqrt(float64(vek.Dot(b, b)))
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(float64(dot) / (normA * normB))
}

// topicLabel derives a human-readable label for a cluster from its
// most frequent content word.
func topicLabel(c *topicCluster) string {
	type kv struct {
		term  string
		count int
	}
	kvs := make([]kv, 0, len(c.termFreq))
	for t, n := range c.termFreq {
		kvs = append(kvs, kv{t, n})
	}
	sort.Slice(kvs, func(i, j int) bool {
		if kvs[i].count != kvs[j].count {
			return kvs[i].count > kvs[j].count
		}
		return kvs[i].term < kvs[j].term
	})
	if len(kvs) == 0 {
		return "topic"
	}
	return kvs[0].term
}
