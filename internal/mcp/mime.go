package mcp

import (
	"path/filepath"
	"strings"
)

// mimeTypes maps the file extensions folderd's chunkers understand to
// MIME types, used when returning a document chunk as a resource.
var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".md":   "text/markdown",
	".mdx":  "text/markdown",
	".txt":  "text/plain",
}

// MimeTypeForPath returns the MIME type for a file path based on its
// extension. Returns "text/plain" for unknown types.
func MimeTypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if mime, ok := mimeTypes[ext]; ok {
			return mime
		}
	}
	return "text/plain"
}
