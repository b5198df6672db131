package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// estimateTokens approximates a token count from rune length. This is
// the same approximation used to decide whether a chunk fits the
// configured budget and to decide where to split it; using one function
// for both keeps threshold and extraction in lock-step (C2).
func estimateTokens(s string) int {
	n := len([]rune(s))
	return (n + TokensPerChar - 1) / TokensPerChar
}

// generateChunkID derives a chunk ID from the file path and a
// coordinate key unique to the chunk's position in the file. The ID is
// positional, not content-derived: an edit that shifts a chunk's
// coordinates changes its ID even when its content is untouched.
func generateChunkID(path, coordsKey string) string {
	h := sha256.Sum256([]byte(path + "\x00" + coordsKey))
	return hex.EncodeToString(h[:])[:16]
}

// coordsKey renders coords into a stable string suitable for chunk ID
// derivation. It is a plain field dump, not JSON, to avoid taking on
// encoding/json's field-ordering and escaping behavior as a dependency
// of chunk identity.
func coordsKey(c ExtractionCoords) string {
	return fmt.Sprintf("v%d:%s:o%d-%d:p%d:%g,%g,%gx%g:pg%d-%d:r%d-%d:sh%s:sl%d-%d",
		c.Version, c.Format,
		c.StartOffset, c.EndOffset,
		c.Page, c.X, c.Y, c.Width, c.Height,
		c.StartParagraph, c.EndParagraph,
		c.StartRow, c.EndRow,
		c.Sheet,
		c.StartSlide, c.EndSlide,
	)
}
