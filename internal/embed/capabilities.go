package embed

import (
	"os"

	"gopkg.in/yaml.v3"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

// RequestClass distinguishes batched indexing requests from
// latency-sensitive interactive (search-time) ones.
type RequestClass string

const (
	ClassIndexing   RequestClass = "indexing"
	ClassInteractive RequestClass = "interactive"
)

const (
	passagePrefix = "passage: "
	queryPrefix   = "query: "
)

// ModelCapabilities is the declarative, single-source-of-truth
// description of what a model produces and requires. Unknown YAML
// keys are ignored by the decoder; MissingRequiredFields reports
// whether the model should be rejected.
type ModelCapabilities struct {
	ModelID                 string `yaml:"modelId"`
	Dense                   bool   `yaml:"dense"`
	Sparse                  bool   `yaml:"sparse"`
	Colbert                 bool   `yaml:"colbert"`
	RequiresPassagePrefix   bool   `yaml:"requiresPassagePrefix"`
	RequiresL2Normalization bool   `yaml:"requiresL2Normalization"`
	Dimension               int    `yaml:"dimension"`

	// SemanticExtraction declares whether this model's worker can
	// produce high-quality key phrases and topics via
	// extract_semantics. Models that don't declare it fall back to
	// the local n-gram + cosine extractor (internal/semantic) rather
	// than returning an empty key-phrase list (spec.md §9 OQ1).
	SemanticExtraction bool `yaml:"semanticExtraction"`
}

// MissingRequiredFields reports the fields a model capability entry
// must carry to be usable: a model ID, a positive dimension, and at
// least one declared output kind.
func (c ModelCapabilities) MissingRequiredFields() bool {
	return c.ModelID == "" || c.Dimension <= 0 || !(c.Dense || c.Sparse || c.Colbert)
}

// CapabilityTable is the loaded set of known model capabilities,
// keyed by model ID.
type CapabilityTable struct {
	byModel map[string]ModelCapabilities
}

// LoadCapabilityTable reads a YAML document listing model capability
// entries. A model with missing required fields is rejected (not
// added to the table) rather than failing the whole load, so one bad
// entry doesn't take down every configured model.
func LoadCapabilityTable(path string) (*CapabilityTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, folderrerrors.IOErr("read model capability registry", err)
	}

	var entries []ModelCapabilities
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, folderrerrors.ConfigError("parse model capability registry", err)
	}

	t := &CapabilityTable{byModel: make(map[string]ModelCapabilities, len(entries))}
	for _, e := range entries {
		if e.MissingRequiredFields() {
			continue
		}
		t.byModel[e.ModelID] = e
	}
	return t, nil
}

// Lookup returns the capabilities for modelID, or an
// unknown-capability error if the model was never registered.
func (t *CapabilityTable) Lookup(modelID string) (ModelCapabilities, error) {
	caps, ok := t.byModel[modelID]
	if !ok {
		return ModelCapabilities{}, folderrerrors.UnknownCapabilityError("model not in capability registry: "+modelID, nil)
	}
	return caps, nil
}

// prepareText applies a model's input transformation ahead of
// submission to the worker: search queries and indexed passages carry
// different literal prefixes when the model requires one, so the two
// sides stay consistent with each other.
func prepareText(text string, class RequestClass, caps ModelCapabilities) string {
	if !caps.RequiresPassagePrefix {
		return text
	}
	if class == ClassInteractive {
		return queryPrefix + text
	}
	return passagePrefix + text
}

// postprocessVector applies a model's output transformation: L2
// normalization when the model declares it's required, otherwise the
// vector is returned unchanged.
func postprocessVector(v []float32, caps ModelCapabilities) []float32 {
	if !caps.RequiresL2Normalization {
		return v
	}
	return normalizeVector(v)
}
