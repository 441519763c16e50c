package llm

// Message represents a single message in a chat conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the provider for a specific output shape
type ResponseFormat struct {
	Type string `json:"type"` // e.g. "json_object"
}

// ChatRequest is the request payload for the chat completions endpoint
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Choice is a single completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token accounting for a completion
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// APIError is the provider-reported error body
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// ChatResponse is the response payload of the chat completions endpoint
type ChatResponse struct {
	ID      string    `json:"id"`
	Object  string    `json:"object"`
	Created int64     `json:"created"`
	Model   string    `json:"model"`
	Choices []Choice  `json:"choices"`
	Usage   Usage     `json:"usage"`
	Error   *APIError `json:"error,omitempty"`
}

// EmbeddingRequest is the request payload for the embeddings endpoint
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData is one vector of an embeddings response
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingResponse is the response payload of the embeddings endpoint
type EmbeddingResponse struct {
	Data  []EmbeddingData `json:"data"`
	Error *APIError       `json:"error,omitempty"`
}

// InvokeOptions configures a single gateway invocation
type InvokeOptions struct {
	// Model overrides the configured default model. Required when the
	// client has no default.
	Model string

	// Temperature in [0, 2]. Zero or negative falls back to the
	// configured default.
	Temperature float64

	// Structured requests a JSON object response from the provider.
	Structured bool
}
