package embed

import "encoding/json"

// Wire protocol: line-delimited JSON-RPC over the worker process's
// stdin/stdout. Every line on stdout must be a well-formed message;
// anything else invalidates the stream. stderr is log-only.

// Method names the worker understands.
const (
	MethodLoadModel        = "load_model"
	MethodUnloadModel      = "unload_model"
	MethodEmbed            = "embed"
	MethodExtractSemantics = "extract_semantics"
)

// Request is a single JSON-RPC request line written to the worker's stdin.
type Request struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is a single JSON-RPC response line read from the worker's stdout.
type Response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is the error shape of a failed worker request.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// LoadModelParams requests the worker load a model into memory.
type LoadModelParams struct {
	ModelID string `json:"modelId"`
}

// EmbedParams requests embeddings for a batch of texts.
type EmbedParams struct {
	Texts []string `json:"texts"`
	Class string   `json:"class"`
}

// EmbedResult carries one vector per input text, in order.
type EmbedResult struct {
	Vectors [][]float32 `json:"vectors"`
}

// ExtractSemanticsParams requests key phrases, topics, and readability
// for a single text. ReuseEmbedding, when set, tells the worker not to
// recompute the document embedding.
type ExtractSemanticsParams struct {
	Text           string    `json:"text"`
	ReuseEmbedding []float32 `json:"reuseEmbedding,omitempty"`
}

// ExtractSemanticsResult is the worker's semantic enrichment output.
type ExtractSemanticsResult struct {
	KeyPhrases  []string `json:"keyPhrases"`
	Topics      []string `json:"topics"`
	Readability float64  `json:"readability"`
}
