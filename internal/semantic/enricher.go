package semantic

import (
	"context"

	"github.com/foldermcp/folderd/internal/embed"
)

// Result is the semantic metadata attached to one chunk before
// persistence (spec.md §4.6).
type Result struct {
	KeyPhrases  []string
	Topics      []string
	Readability float64
}

// Extractor is the subset of the embedding coordinator the enricher
// depends on, expressed as an interface per spec.md §9's
// no-service-container rule: the enricher is constructed with an
// explicit dependency, never a global lookup, and tests supply a fake
// instead of spawning a real worker subprocess.
type Extractor interface {
	Capabilities(modelID string) (embed.ModelCapabilities, error)
	ExtractSemantics(ctx context.Context, modelID, text string, reuseEmbedding []float32) (*embed.ExtractSemanticsResult, error)
}

// Enricher produces a Result for a chunk's text, choosing between the
// embedding worker's native extraction and the local n-gram/cosine
// fallback based on the model's declared capabilities. The key-phrase
// list can still be empty: the fallback yields none for text with fewer
// than two content words, and the worker's list is used as returned.
type Enricher struct {
	extractor Extractor
	topics    *TopicAssigner
}

// NewEnricher constructs an Enricher backed by extractor, with its own
// TopicAssigner; topic labels are coherent across every chunk that one
// Enricher enriches.
func NewEnricher(extractor Extractor) *Enricher {
	return &Enricher{extractor: extractor, topics: NewTopicAssigner()}
}

// Enrich computes key phrases, topics, and readability for text.
// embedding is the chunk's already-computed vector; when the worker
// path is used it is forwarded as reuseEmbedding so the worker never
// recomputes it (spec.md §4.5).
func (e *Enricher) Enrich(ctx context.Context, modelID, text string, embedding []float32) (Result, error) {
	readability := ColemanLiau(text)

	if caps, err := e.extractor.Capabilities(modelID); err == nil && caps.SemanticExtraction {
		extracted, err := e.extractor.ExtractSemantics(ctx, modelID, text, embedding)
		if err == nil {
			return Result{
				KeyPhrases:  extracted.KeyPhrases,
				Topics:      extracted.Topics,
				Readability: readability,
			}, nil
		}
		// Worker-side extraction failed for this one chunk; degrade
		// to the local fallback rather than fail the whole task over
		// an enrichment-only error.
	}

	return Result{
		KeyPhrases:  ExtractKeyPhrasesFallback(text),
		Topics:      e.topics.Assign(text, embedding),
		Readability: readability,
	}, nil
}
