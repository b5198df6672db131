package embed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCapabilityYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "capabilities.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write capability yaml: %v", err)
	}
	return path
}

func TestLoadCapabilityTable_ValidEntries(t *testing.T) {
	path := writeCapabilityYAML(t, t.TempDir(), `
- modelId: model-a
  dense: true
  dimension: 384
  requiresPassagePrefix: true
  requiresL2Normalization: true
  semanticExtraction: true
`)

	table, err := LoadCapabilityTable(path)
	if err != nil {
		t.Fatalf("LoadCapabilityTable: %v", err)
	}

	caps, err := table.Lookup("model-a")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !caps.Dense || caps.Dimension != 384 || !caps.SemanticExtraction {
		t.Fatalf("unexpected capabilities: %+v", caps)
	}
}

func TestLoadCapabilityTable_SkipsIncompleteEntries(t *testing.T) {
	path := writeCapabilityYAML(t, t.TempDir(), `
- modelId: model-missing-dims
  dense: true
- modelId: model-ok
  dense: true
  dimension: 768
`)

	table, err := LoadCapabilityTable(path)
	if err != nil {
		t.Fatalf("LoadCapabilityTable: %v", err)
	}

	if _, err := table.Lookup("model-missing-dims"); err == nil {
		t.Fatal("expected an incomplete entry to be rejected")
	}
	if _, err := table.Lookup("model-ok"); err != nil {
		t.Fatalf("expected model-ok to load, got error: %v", err)
	}
}

func TestLoadCapabilityTable_MissingFile(t *testing.T) {
	if _, err := LoadCapabilityTable(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing capability file")
	}
}

func TestCapabilityTable_LookupUnknownModel(t *testing.T) {
	table, err := LoadCapabilityTable(writeCapabilityYAML(t, t.TempDir(), `[]`))
	if err != nil {
		t.Fatalf("LoadCapabilityTable: %v", err)
	}
	if _, err := table.Lookup("ghost"); err == nil {
		t.Fatal("expected unknown-capability error")
	}
}

func TestModelCapabilities_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		caps ModelCapabilities
		want bool
	}{
		{"complete", ModelCapabilities{ModelID: "m", Dimension: 1, Dense: true}, false},
		{"no id", ModelCapabilities{Dimension: 1, Dense: true}, true},
		{"zero dimension", ModelCapabilities{ModelID: "m", Dense: true}, true},
		{"no output kind", ModelCapabilities{ModelID: "m", Dimension: 1}, true},
	}
	for _, c := range cases {
		if got := c.caps.MissingRequiredFields(); got != c.want {
			t.Errorf("%s: MissingRequiredFields() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestPrepareText_AppliesPrefixByClass(t *testing.T) {
	caps := ModelCapabilities{RequiresPassagePrefix: true}

	if got := prepareText("hello", ClassIndexing, caps); got != "passage: hello" {
		t.Errorf("indexing prefix: got %q", got)
	}
	if got := prepareText("hello", ClassInteractive, caps); got != "query: hello" {
		t.Errorf("interactive prefix: got %q", got)
	}
}

func TestPrepareText_NoPrefixWhenNotRequired(t *testing.T) {
	caps := ModelCapabilities{RequiresPassagePrefix: false}
	if got := prepareText("hello", ClassIndexing, caps); got != "hello" {
		t.Errorf("expected no prefix, got %q", got)
	}
}

func TestPostprocessVector_NormalizesWhenRequired(t *testing.T) {
	caps := ModelCapabilities{RequiresL2Normalization: true}
	got := postprocessVector([]float32{3, 4}, caps)
	if len(got) != 2 {
		t.Fatalf("expected 2 components, got %d", len(got))
	}
	mag := got[0]*got[0] + got[1]*got[1]
	if mag < 0.99 || mag > 1.01 {
		t.Errorf("expected unit vector, magnitude^2 = %v", mag)
	}
}

func TestPostprocessVector_UnchangedWhenNotRequired(t *testing.T) {
	caps := ModelCapabilities{RequiresL2Normalization: false}
	v := []float32{3, 4}
	got := postprocessVector(v, caps)
	if got[0] != 3 || got[1] != 4 {
		t.Errorf("expected unchanged vector, got %v", got)
	}
}
