package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MaxResourceSize is the maximum size of a document's joined chunk text
// served through a resource read (1MB).
const MaxResourceSize = 1024 * 1024

// RegisterFolderResources loads a registered folder's indexed documents
// and exposes each one as an MCP resource. Call this once per folder
// after RegisterFolder, before serving.
func (s *Server) RegisterFolderResources(ctx context.Context, folderID string) error {
	docs, err := s.backend.ListDocuments(ctx, folderID)
	if err != nil {
		return fmt.Errorf("failed to list documents for folder %s: %w", folderID, err)
	}

	for _, d := range docs {
		s.registerDocumentResource(folderID, d.RelativePath, d.ChunkCount)
	}

	s.logger.Info("registered resources", "folder_id", folderID, "count", len(docs))
	return nil
}

// registerDocumentResource registers a single document as an MCP resource.
func (s *Server) registerDocumentResource(folderID, relativePath string, chunkCount int) {
	uri := documentURI(folderID, relativePath)
	info := ResourceInfo{URI: uri, Name: filepath.Base(relativePath), MIMEType: MimeTypeForPath(relativePath)}

	s.mcp.AddResource(
		&mcp.Resource{
			Name:        info.Name,
			URI:         uri,
			Description: fmt.Sprintf("%s (%d chunks)", relativePath, chunkCount),
			MIMEType:    info.MIMEType,
		},
		s.makeDocumentHandler(folderID, relativePath),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.resources[uri]; !exists {
		s.resourceOrder = append(s.resourceOrder, uri)
	}
	s.resources[uri] = resourceEntry{
		info: info,
		read: func(ctx context.Context) (*ResourceContent, error) {
			result, err := s.handleReadDocumentResource(ctx, folderID, relativePath)
			if err != nil {
				return nil, err
			}
			if len(result.Contents) == 0 {
				return &ResourceContent{URI: uri, MIMEType: info.MIMEType}, nil
			}
			return &ResourceContent{URI: uri, MIMEType: result.Contents[0].MIMEType, Content: result.Contents[0].Text}, nil
		},
	}
}

// ListResources returns every registered resource. cursor is accepted
// for API symmetry with the MCP transport but pagination is not yet
// needed at folderd's resource counts.
func (s *Server) ListResources(ctx context.Context, cursor string) ([]ResourceInfo, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ResourceInfo, 0, len(s.resourceOrder))
	for _, uri := range s.resourceOrder {
		infos = append(infos, s.resources[uri].info)
	}
	return infos, "", nil
}

// ReadResource reads a resource's content by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	s.mu.RLock()
	entry, ok := s.resources[uri]
	s.mu.RUnlock()
	if !ok {
		return nil, NewResourceNotFoundError(uri)
	}
	return entry.read(ctx)
}

// documentURI builds the folder-scoped resource URI for a document.
func documentURI(folderID, relativePath string) string {
	return fmt.Sprintf("folderd://%s/%s", folderID, relativePath)
}

// makeDocumentHandler creates a read handler for a specific document,
// reassembling its chunks back into the document's full indexed text.
func (s *Server) makeDocumentHandler(folderID, relativePath string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.handleReadDocumentResource(ctx, folderID, relativePath)
	}
}

// handleReadDocumentResource reassembles a document's chunks, in
// ordinal order, into the content served for its resource URI.
func (s *Server) handleReadDocumentResource(ctx context.Context, folderID, relativePath string) (*mcp.ReadResourceResult, error) {
	if !isValidRelativePath(relativePath) {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid path: %s", relativePath))
	}

	doc, err := s.backend.GetDocument(ctx, folderID, relativePath)
	if err != nil {
		return nil, MapError(err)
	}

	chunks, err := s.backend.GetChunks(ctx, folderID, doc.ID)
	if err != nil {
		return nil, MapError(err)
	}

	var sb strings.Builder
	for _, c := range chunks {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(c.Text)
	}

	if sb.Len() > MaxResourceSize {
		return nil, &MCPError{
			Code:    ErrCodeFileTooLarge,
			Message: fmt.Sprintf("document too large to serve as a resource: %d bytes (max %d)", sb.Len(), MaxResourceSize),
		}
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      documentURI(folderID, relativePath),
				MIMEType: MimeTypeForPath(relativePath),
				Text:     sb.String(),
			},
		},
	}, nil
}

// isValidRelativePath rejects absolute paths and path traversal, since
// document paths come from the MCP client and back a resource lookup.
func isValidRelativePath(path string) bool {
	if path == "" {
		return false
	}
	if filepath.IsAbs(path) {
		return false
	}
	if len(path) >= 2 && path[1] == ':' {
		return false
	}

	cleaned := filepath.Clean(path)
	if strings.HasPrefix(cleaned, "..") {
		return false
	}
	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return false
		}
	}
	return true
}
