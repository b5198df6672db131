package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/foldermcp/folderd/internal/chunk"
	"github.com/foldermcp/folderd/internal/config"
	folderrerrors "github.com/foldermcp/folderd/internal/errors"
	"github.com/foldermcp/folderd/internal/orchestrator"
	"github.com/foldermcp/folderd/internal/store"
	"github.com/foldermcp/folderd/pkg/version"
)

// Backend is the subset of *orchestrator.Manager the MCP server
// depends on, narrowed to an interface so tests supply a fake rather
// than standing up a full Manager with a live embedding worker.
type Backend interface {
	Search(ctx context.Context, folderID, query string, limit int) ([]store.SearchResult, error)
	ListDocuments(ctx context.Context, folderID string) ([]*store.Document, error)
	GetDocument(ctx context.Context, folderID, relativePath string) (*store.Document, error)
	GetChunks(ctx context.Context, folderID, documentID string) ([]*store.ChunkRecord, error)
	FolderRoot(folderID string) (string, error)
	FolderStatus(ctx context.Context, folderID string) (orchestrator.FolderStatus, error)
	ListFolders(ctx context.Context) ([]orchestrator.FolderStatus, error)
}

// Server is the MCP server folderd exposes over every registered
// folder's indexed documents.
type Server struct {
	mcp     *mcp.Server
	backend Backend
	config  *config.Config
	logger  *slog.Logger

	mu sync.RWMutex

	tools     map[string]toolEntry
	toolOrder []string

	resources     map[string]resourceEntry
	resourceOrder []string
}

// ToolInfo describes one registered tool, independent of the MCP
// transport, so the daemon and tests can enumerate tools without a
// live client connection.
type ToolInfo struct {
	Name        string
	Description string
}

// toolEntry pairs a tool's public info with a dispatch closure that
// decodes untyped arguments into the handler's input type.
type toolEntry struct {
	info     ToolInfo
	dispatch func(ctx context.Context, args map[string]any) (any, error)
}

// ResourceInfo contains information about a resource.
type ResourceInfo struct {
	URI      string
	Name     string
	MIMEType string
}

// ResourceContent contains the content of a resource.
type ResourceContent struct {
	URI      string
	Content  string
	MIMEType string
}

// resourceEntry pairs a resource's public info with a read closure.
type resourceEntry struct {
	info ResourceInfo
	read func(ctx context.Context) (*ResourceContent, error)
}

// NewServer creates a new MCP server over backend, which must resolve
// folder IDs to a registered folder's documents and search index.
func NewServer(backend Backend, cfg *config.Config) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		backend:   backend,
		config:    cfg,
		logger:    slog.Default(),
		tools:     make(map[string]toolEntry),
		resources: make(map[string]resourceEntry),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "folderd",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "folderd", version.Version
}

// Capabilities returns whether tools and resources are enabled.
func (s *Server) Capabilities() (hasTools, hasResources bool) {
	return true, true
}

// addTool registers a tool with the MCP transport and with the
// server's own dispatch table, which ListTools/CallTool use so the
// daemon and tests can drive tools without a live MCP client.
func addTool[In, Out any](s *Server, name, description string, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: name, Description: description}, handler)

	s.toolOrder = append(s.toolOrder, name)
	s.tools[name] = toolEntry{
		info: ToolInfo{Name: name, Description: description},
		dispatch: func(ctx context.Context, args map[string]any) (any, error) {
			var in In
			if len(args) > 0 {
				raw, err := json.Marshal(args)
				if err != nil {
					return nil, NewInvalidParamsError(err.Error())
				}
				if err := json.Unmarshal(raw, &in); err != nil {
					return nil, NewInvalidParamsError(err.Error())
				}
			}
			_, out, err := handler(ctx, nil, in)
			if err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// registerTools registers every document tool with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("registering MCP tools")

	addTool(s, "search", "Semantic search over a registered folder's indexed documents. Returns the most relevant chunks ranked by similarity.", s.mcpSearchHandler)
	addTool(s, "list_documents", "List every document indexed in a registered folder.", s.mcpListDocumentsHandler)
	addTool(s, "get_document_outline", "Return a lightweight chunk-by-chunk outline of one document, with short previews instead of full text.", s.mcpDocumentOutlineHandler)
	addTool(s, "get_pages", "Return the full chunk text of a range of pages from a PDF document.", s.mcpGetPagesHandler)
	addTool(s, "get_slides", "Return the full chunk text of a range of slides from a PPTX document.", s.mcpGetSlidesHandler)
	addTool(s, "get_sheet_data", "Return the full chunk text of one or all sheets from an XLSX document.", s.mcpGetSheetDataHandler)
	addTool(s, "folder_status", "Report a registered folder's indexing state: document count, pending tasks, and last error.", s.mcpFolderStatusHandler)
	addTool(s, "list_folders", "List every folder currently registered with the daemon and its indexing state.", s.mcpListFoldersHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", len(s.toolOrder)))
}

// ListTools returns every registered tool's name and description.
func (s *Server) ListTools() []ToolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ToolInfo, 0, len(s.toolOrder))
	for _, name := range s.toolOrder {
		infos = append(infos, s.tools[name].info)
	}
	return infos
}

// CallTool invokes a registered tool by name, decoding args into the
// tool's input type. Used by the daemon's RPC layer and by tests that
// exercise tool behavior without a live MCP client.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	s.mu.RLock()
	entry, ok := s.tools[name]
	s.mu.RUnlock()
	if !ok {
		return nil, NewMethodNotFoundError(name)
	}
	return entry.dispatch(ctx, args)
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}
	if input.FolderID == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("folder_id parameter is required")
	}

	limit := clampLimit(input.Limit, 10, 1, 50)

	requestID := generateRequestID()
	start := time.Now()
	s.logger.Info("search started", slog.String("request_id", requestID), slog.String("folder_id", input.FolderID), slog.String("query", input.Query))

	results, err := s.backend.Search(ctx, input.FolderID, input.Query, limit)
	if err != nil {
		s.logger.Error("search failed", slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	s.logger.Info("search completed", slog.String("request_id", requestID), slog.Duration("duration", time.Since(start)), slog.Int("result_count", len(results)))

	output := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, toSearchResultOutput(r))
	}
	return nil, output, nil
}

func (s *Server) mcpListDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, input ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if input.FolderID == "" {
		return nil, ListDocumentsOutput{}, NewInvalidParamsError("folder_id parameter is required")
	}

	docs, err := s.backend.ListDocuments(ctx, input.FolderID)
	if err != nil {
		return nil, ListDocumentsOutput{}, MapError(err)
	}

	output := ListDocumentsOutput{Documents: make([]DocumentSummary, 0, len(docs))}
	for _, d := range docs {
		output.Documents = append(output.Documents, DocumentSummary{
			Path:       d.RelativePath,
			Format:     formatForPath(d.RelativePath),
			ChunkCount: d.ChunkCount,
			IndexedAt:  d.IndexedAt.Format(time.RFC3339),
		})
	}

	return nil, output, nil
}

func (s *Server) mcpDocumentOutlineHandler(ctx context.Context, _ *mcp.CallToolRequest, input DocumentOutlineInput) (*mcp.CallToolResult, DocumentOutlineOutput, error) {
	if input.FolderID == "" || input.DocumentPath == "" {
		return nil, DocumentOutlineOutput{}, NewInvalidParamsError("folder_id and document_path parameters are required")
	}

	doc, err := s.backend.GetDocument(ctx, input.FolderID, input.DocumentPath)
	if err != nil {
		return nil, DocumentOutlineOutput{}, MapError(err)
	}

	chunks, err := s.backend.GetChunks(ctx, input.FolderID, doc.ID)
	if err != nil {
		return nil, DocumentOutlineOutput{}, MapError(err)
	}

	format := formatForPath(input.DocumentPath)
	output := DocumentOutlineOutput{Path: input.DocumentPath, Format: format, Entries: make([]OutlineEntry, 0, len(chunks))}
	for _, c := range chunks {
		entry := OutlineEntry{Ordinal: c.Ordinal, Preview: previewText(c.Text, 120)}
		coords, err := decodeCoords(c.ExtractionCoords)
		if err != nil {
			return nil, DocumentOutlineOutput{}, MapError(err)
		}
		entry.Page = coords.Page
		entry.Slide = coords.StartSlide
		entry.Sheet = coords.Sheet
		output.Entries = append(output.Entries, entry)
	}

	return nil, output, nil
}

func (s *Server) mcpGetPagesHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetPagesInput) (*mcp.CallToolResult, GetPagesOutput, error) {
	if input.FolderID == "" || input.DocumentPath == "" {
		return nil, GetPagesOutput{}, NewInvalidParamsError("folder_id and document_path parameters are required")
	}
	start := input.StartPage
	if start <= 0 {
		start = 1
	}
	end := input.EndPage
	if end < start {
		end = start
	}

	chunks, err := s.chunksFor(ctx, input.FolderID, input.DocumentPath)
	if err != nil {
		return nil, GetPagesOutput{}, err
	}

	output := GetPagesOutput{Path: input.DocumentPath}
	for _, c := range chunks {
		coords, err := decodeCoords(c.ExtractionCoords)
		if err != nil {
			return nil, GetPagesOutput{}, MapError(err)
		}
		if coords.Page < start || coords.Page > end {
			continue
		}
		output.Pages = append(output.Pages, PageChunk{Page: coords.Page, Text: c.Text})
	}

	return nil, output, nil
}

func (s *Server) mcpGetSlidesHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetSlidesInput) (*mcp.CallToolResult, GetSlidesOutput, error) {
	if input.FolderID == "" || input.DocumentPath == "" {
		return nil, GetSlidesOutput{}, NewInvalidParamsError("folder_id and document_path parameters are required")
	}
	start := input.StartSlide
	if start <= 0 {
		start = 1
	}
	end := input.EndSlide
	if end < start {
		end = start
	}

	chunks, err := s.chunksFor(ctx, input.FolderID, input.DocumentPath)
	if err != nil {
		return nil, GetSlidesOutput{}, err
	}

	output := GetSlidesOutput{Path: input.DocumentPath}
	for _, c := range chunks {
		coords, err := decodeCoords(c.ExtractionCoords)
		if err != nil {
			return nil, GetSlidesOutput{}, MapError(err)
		}
		if coords.EndSlide < start || coords.StartSlide > end {
			continue
		}
		output.Slides = append(output.Slides, SlideChunk{StartSlide: coords.StartSlide, EndSlide: coords.EndSlide, Text: c.Text})
	}

	return nil, output, nil
}

func (s *Server) mcpGetSheetDataHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetSheetDataInput) (*mcp.CallToolResult, GetSheetDataOutput, error) {
	if input.FolderID == "" || input.DocumentPath == "" {
		return nil, GetSheetDataOutput{}, NewInvalidParamsError("folder_id and document_path parameters are required")
	}

	chunks, err := s.chunksFor(ctx, input.FolderID, input.DocumentPath)
	if err != nil {
		return nil, GetSheetDataOutput{}, err
	}

	output := GetSheetDataOutput{Path: input.DocumentPath}
	for _, c := range chunks {
		coords, err := decodeCoords(c.ExtractionCoords)
		if err != nil {
			return nil, GetSheetDataOutput{}, MapError(err)
		}
		if input.Sheet != "" && coords.Sheet != input.Sheet {
			continue
		}
		output.Rows = append(output.Rows, SheetRowChunk{Sheet: coords.Sheet, StartRow: coords.StartRow, EndRow: coords.EndRow, Text: c.Text})
	}

	return nil, output, nil
}

func (s *Server) mcpFolderStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, input FolderStatusInput) (*mcp.CallToolResult, FolderStatusOutput, error) {
	if input.FolderID == "" {
		return nil, FolderStatusOutput{}, NewInvalidParamsError("folder_id parameter is required")
	}

	status, err := s.backend.FolderStatus(ctx, input.FolderID)
	if err != nil {
		return nil, FolderStatusOutput{}, MapError(err)
	}

	return nil, toFolderStatusOutput(status), nil
}

func (s *Server) mcpListFoldersHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListFoldersInput) (*mcp.CallToolResult, ListFoldersOutput, error) {
	statuses, err := s.backend.ListFolders(ctx)
	if err != nil {
		return nil, ListFoldersOutput{}, MapError(err)
	}

	output := ListFoldersOutput{Folders: make([]FolderStatusOutput, 0, len(statuses))}
	for _, st := range statuses {
		output.Folders = append(output.Folders, toFolderStatusOutput(st))
	}
	return nil, output, nil
}

// chunksFor resolves documentPath to its chunk set, wrapping backend
// errors as MCPErrors so every handler reports failures uniformly.
func (s *Server) chunksFor(ctx context.Context, folderID, documentPath string) ([]*store.ChunkRecord, error) {
	doc, err := s.backend.GetDocument(ctx, folderID, documentPath)
	if err != nil {
		return nil, MapError(err)
	}
	chunks, err := s.backend.GetChunks(ctx, folderID, doc.ID)
	if err != nil {
		return nil, MapError(err)
	}
	return chunks, nil
}

func toFolderStatusOutput(st orchestrator.FolderStatus) FolderStatusOutput {
	return FolderStatusOutput{
		FolderID:       st.FolderID,
		RootPath:       st.RootPath,
		State:          st.State,
		DocumentsTotal: st.DocumentsTotal,
		PendingTasks:   st.PendingTasks,
		LastError:      st.LastError,
	}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// decodeCoords unmarshals a chunk's persisted extraction coordinates
// and verifies they carry the schema version this binary understands.
// Every chunker in internal/chunk stamps Version: CoordsVersion when it
// writes a chunk, so a missing or mismatched version here means the
// row predates the coords schema or was corrupted, not that the chunk
// legitimately has no coordinates; both are treated as a hard read
// error rather than silently decoded or skipped.
func decodeCoords(raw json.RawMessage) (chunk.ExtractionCoords, error) {
	var coords chunk.ExtractionCoords
	if len(raw) == 0 {
		return coords, folderrerrors.SchemaVersionError("chunk is missing extraction coordinates", nil)
	}
	if err := json.Unmarshal(raw, &coords); err != nil {
		return coords, folderrerrors.SchemaVersionError("extraction coordinates are malformed", err)
	}
	if coords.Version != chunk.CoordsVersion {
		return coords, folderrerrors.SchemaVersionError(
			fmt.Sprintf("extraction coordinates schema version %d does not match expected %d", coords.Version, chunk.CoordsVersion), nil)
	}
	return coords, nil
}
