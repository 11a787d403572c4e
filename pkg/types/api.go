package types

// ChatRequest is the payload for POST /chat.
type ChatRequest struct {
	// Conversation history; a system turn, if present, must be first.
	Messages []PromptTurn `json:"messages"`
	// Maximum number of new tokens; 0 uses the configured default.
	// example: 256
	MaxTokens int `json:"max_tokens,omitempty" example:"256"`
	// Sampling temperature; 0 uses the configured default.
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
}

// ChatFragment is one streamed NDJSON line of POST /chat.
type ChatFragment struct {
	// Incremental text since the previous fragment.
	Delta string `json:"delta"`
	// True while the model is inside a reasoning block.
	Thinking bool `json:"thinking,omitempty"`
}

// ToolResult reports one executed tool directive.
type ToolResult struct {
	// Caller-supplied call id.
	// example: 1
	ID string `json:"id" example:"1"`
	// Tool name.
	// example: list_files
	Name string `json:"name" example:"list_files"`
	// Tool output, or the rendered error message.
	Output string `json:"output"`
	// Error message when the tool failed.
	Error string `json:"error,omitempty"`
}

// ChatFinal is the last NDJSON line of POST /chat.
type ChatFinal struct {
	Done bool `json:"done"`
	// Displayable message with tool results substituted.
	Content string `json:"content"`
	// Raw model output.
	Raw string `json:"raw"`
	// True when generation was stopped by the caller.
	Cancelled bool `json:"cancelled"`
	// Generated token count.
	// example: 42
	Tokens int `json:"tokens" example:"42"`
	// Executed tool directives in extraction order.
	Tools []ToolResult `json:"tools,omitempty"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of catalog models.
	Models []Model `json:"models"`
}

// ModelRequest names a model for POST /switch and POST /download.
type ModelRequest struct {
	// example: qwen2.5-1.5b-instruct
	Model string `json:"model" example:"qwen2.5-1.5b-instruct"`
}

// GuardrailRequest is the payload for PUT /settings/guardrail.
type GuardrailRequest struct {
	// One of off, relaxed, balanced, strict, custom.
	// example: balanced
	Level string `json:"level" example:"balanced"`
	// Percentage used when level is custom.
	// example: 70
	CustomPercent int `json:"custom_percent,omitempty" example:"70"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// GuardrailResponse echoes the stored guardrail policy.
type GuardrailResponse struct {
	// example: custom
	Level string `json:"level" example:"custom"`
	// example: 70
	CustomPercent int `json:"custom_percent" example:"70"`
	// Share of total memory a load may take.
	// example: 70
	Percentage int `json:"percentage" example:"70"`
}

// CancelResponse reports whether POST /cancel interrupted a transition.
type CancelResponse struct {
	Canceled bool `json:"canceled"`
}
