package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path     string
		expected DocumentFormat
	}{
		{"report.pdf", FormatPDF},
		{"Notes.MD", FormatMarkdown},
		{"archive/minutes.docx", FormatDOCX},
		{"data/Q3.xlsx", FormatXLSX},
		{"deck.pptx", FormatPPTX},
		{"readme.txt", FormatText},
		{"image.png", FormatUnknown},
		{"noext", FormatUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectFormat(tt.path), tt.path)
	}
}

func TestFingerprintUnchanged(t *testing.T) {
	a := Fingerprint{Size: 10, ContentHash: "abc"}
	b := Fingerprint{Size: 10, ContentHash: "abc"}
	c := Fingerprint{Size: 10, ContentHash: "def"}
	assert.True(t, a.Unchanged(b))
	assert.False(t, a.Unchanged(c))
}

func TestDiffClassifiesAddedModifiedRemovedUnchanged(t *testing.T) {
	previous := map[string]Fingerprint{
		"a.txt": {Path: "a.txt", Size: 1, ContentHash: "h1"},
		"b.txt": {Path: "b.txt", Size: 2, ContentHash: "h2"},
		"c.txt": {Path: "c.txt", Size: 3, ContentHash: "h3"},
	}
	current := map[string]Fingerprint{
		"a.txt": {Path: "a.txt", Size: 1, ContentHash: "h1"},  // unchanged
		"b.txt": {Path: "b.txt", Size: 99, ContentHash: "h9"}, // modified
		"d.txt": {Path: "d.txt", Size: 4, ContentHash: "h4"},  // added
		// c.txt removed
	}

	changes := Diff(previous, current)

	byPath := make(map[string]Change, len(changes))
	for _, c := range changes {
		byPath[c.Path] = c
	}

	assert.Equal(t, ChangeUnchanged, byPath["a.txt"].Kind)
	assert.Equal(t, ChangeModified, byPath["b.txt"].Kind)
	assert.Equal(t, ChangeRemoved, byPath["c.txt"].Kind)
	assert.Equal(t, ChangeAdded, byPath["d.txt"].Kind)
	assert.Len(t, changes, 4)
}

func TestDiffIsLexicographicallyOrdered(t *testing.T) {
	current := map[string]Fingerprint{
		"z.txt": {Path: "z.txt"},
		"a.txt": {Path: "a.txt"},
		"m.txt": {Path: "m.txt"},
	}
	changes := Diff(nil, current)
	assert.Len(t, changes, 3)
	assert.Equal(t, "a.txt", changes[0].Path)
	assert.Equal(t, "m.txt", changes[1].Path)
	assert.Equal(t, "z.txt", changes[2].Path)
}

func TestSupportedExtensionsIsSorted(t *testing.T) {
	exts := SupportedExtensions()
	for i := 1; i < len(exts); i++ {
		assert.LessOrEqual(t, exts[i-1], exts[i])
	}
}
