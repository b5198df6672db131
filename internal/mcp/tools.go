package mcp

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	FolderID string `json:"folder_id" jsonschema:"the registered folder to search"`
	Query    string `json:"query" jsonschema:"the search query to execute"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"list of matching chunks, ranked by similarity"`
}

// SearchResultOutput defines a single search result.
type SearchResultOutput struct {
	DocumentPath string  `json:"document_path" jsonschema:"document path relative to the folder root"`
	ChunkID      string  `json:"chunk_id" jsonschema:"positional ID of the matched chunk, derived from its document path and extraction coordinates"`
	Ordinal      int     `json:"ordinal" jsonschema:"position of this chunk within its document"`
	Score        float64 `json:"score" jsonschema:"similarity score, higher is closer"`
	Text         string  `json:"text" jsonschema:"the matched chunk text"`
}

// ListDocumentsInput defines the input schema for the list_documents tool.
type ListDocumentsInput struct {
	FolderID string `json:"folder_id" jsonschema:"the registered folder to list"`
}

// ListDocumentsOutput defines the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentSummary `json:"documents"`
}

// DocumentSummary describes one indexed document.
type DocumentSummary struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	ChunkCount int    `json:"chunk_count"`
	IndexedAt  string `json:"indexed_at"`
}

// DocumentOutlineInput defines the input schema for get_document_outline.
type DocumentOutlineInput struct {
	FolderID     string `json:"folder_id" jsonschema:"the registered folder containing the document"`
	DocumentPath string `json:"document_path" jsonschema:"document path relative to the folder root"`
}

// DocumentOutlineOutput defines the output schema for get_document_outline.
type DocumentOutlineOutput struct {
	Path    string         `json:"path"`
	Format  string         `json:"format"`
	Entries []OutlineEntry `json:"entries"`
}

// OutlineEntry summarizes one chunk's position and a text preview,
// without returning the full chunk body.
type OutlineEntry struct {
	Ordinal int    `json:"ordinal"`
	Preview string `json:"preview"`
	Page    int    `json:"page,omitempty"`
	Slide   int    `json:"slide,omitempty"`
	Sheet   string `json:"sheet,omitempty"`
}

// GetPagesInput defines the input schema for the get_pages tool (PDF).
type GetPagesInput struct {
	FolderID     string `json:"folder_id" jsonschema:"the registered folder containing the document"`
	DocumentPath string `json:"document_path" jsonschema:"path to a PDF document relative to the folder root"`
	StartPage    int    `json:"start_page,omitempty" jsonschema:"first page to return, 1-indexed, default 1"`
	EndPage      int    `json:"end_page,omitempty" jsonschema:"last page to return, inclusive, default start_page"`
}

// GetPagesOutput defines the output schema for the get_pages tool.
type GetPagesOutput struct {
	Path  string      `json:"path"`
	Pages []PageChunk `json:"pages"`
}

// PageChunk is one chunk's text tagged with its source page.
type PageChunk struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// GetSlidesInput defines the input schema for the get_slides tool (PPTX).
type GetSlidesInput struct {
	FolderID     string `json:"folder_id" jsonschema:"the registered folder containing the document"`
	DocumentPath string `json:"document_path" jsonschema:"path to a PPTX document relative to the folder root"`
	StartSlide   int    `json:"start_slide,omitempty" jsonschema:"first slide to return, 1-indexed, default 1"`
	EndSlide     int    `json:"end_slide,omitempty" jsonschema:"last slide to return, inclusive, default start_slide"`
}

// GetSlidesOutput defines the output schema for the get_slides tool.
type GetSlidesOutput struct {
	Path   string       `json:"path"`
	Slides []SlideChunk `json:"slides"`
}

// SlideChunk is one chunk's text tagged with its source slide range.
type SlideChunk struct {
	StartSlide int    `json:"start_slide"`
	EndSlide   int    `json:"end_slide"`
	Text       string `json:"text"`
}

// GetSheetDataInput defines the input schema for the get_sheet_data tool (XLSX).
type GetSheetDataInput struct {
	FolderID     string `json:"folder_id" jsonschema:"the registered folder containing the document"`
	DocumentPath string `json:"document_path" jsonschema:"path to an XLSX document relative to the folder root"`
	Sheet        string `json:"sheet,omitempty" jsonschema:"sheet name to filter to; all sheets if omitted"`
}

// GetSheetDataOutput defines the output schema for the get_sheet_data tool.
type GetSheetDataOutput struct {
	Path string          `json:"path"`
	Rows []SheetRowChunk `json:"rows"`
}

// SheetRowChunk is one chunk's text tagged with its source sheet and row range.
type SheetRowChunk struct {
	Sheet    string `json:"sheet"`
	StartRow int    `json:"start_row"`
	EndRow   int    `json:"end_row"`
	Text     string `json:"text"`
}

// FolderStatusInput defines the input schema for the folder_status tool.
type FolderStatusInput struct {
	FolderID string `json:"folder_id" jsonschema:"the registered folder to report on"`
}

// FolderStatusOutput defines the output schema for the folder_status tool.
type FolderStatusOutput struct {
	FolderID       string `json:"folder_id"`
	RootPath       string `json:"root_path"`
	State          string `json:"state,omitempty"`
	DocumentsTotal int    `json:"documents_total"`
	PendingTasks   int    `json:"pending_tasks,omitempty"`
	LastError      string `json:"last_error,omitempty"`
}

// ListFoldersInput defines the input schema for the list_folders tool (no parameters).
type ListFoldersInput struct{}

// ListFoldersOutput defines the output schema for the list_folders tool.
type ListFoldersOutput struct {
	Folders []FolderStatusOutput `json:"folders"`
}
