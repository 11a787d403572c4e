package types

// Role identifies the author of a prompt turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool marks a turn carrying tool output spliced back into the conversation.
	RoleTool Role = "tool"
)

// PromptTurn is one message in the conversation history.
type PromptTurn struct {
	// Author of the turn.
	// example: user
	Role Role `json:"role" example:"user"`
	// Text content of the turn.
	// example: What files are in /tmp?
	Content string `json:"content" example:"What files are in /tmp?"`
}

// Model is the public view of a catalog descriptor.
type Model struct {
	// Stable identifier for the model.
	// example: qwen2.5-1.5b-instruct
	Name string `json:"name" example:"qwen2.5-1.5b-instruct"`
	// Human-friendly name.
	// example: Qwen 2.5 1.5B Instruct
	DisplayName string `json:"display_name" example:"Qwen 2.5 1.5B Instruct"`
	// Publisher of the weights.
	// example: Qwen
	Provider string `json:"provider" example:"Qwen"`
	// Capability category (core, reasoning, vision, audio, embedding).
	// example: core
	Category string `json:"category" example:"core"`
	// Download size in bytes.
	// example: 986000000
	SizeBytes int64 `json:"size_bytes" example:"986000000"`
	// Whether all model files are present locally.
	Installed bool `json:"installed"`
}

// Status is the single status value published to UI collaborators.
type Status struct {
	// Orchestrator phase: idle, downloading, loading, thinking, generating, cancelled.
	// example: generating
	Phase string `json:"phase" example:"generating"`
	// Lifecycle phase of the active model: idle, downloading, loading, loaded, failed.
	// example: loaded
	LoadPhase string `json:"load_phase" example:"loaded"`
	// Model the lifecycle state refers to, if any.
	// example: qwen2.5-1.5b-instruct
	Model string `json:"model,omitempty" example:"qwen2.5-1.5b-instruct"`
	// True while a generation call is running.
	Generating bool `json:"generating"`
	// Text produced so far by the current or last generation.
	LastOutput string `json:"last_output,omitempty"`
	// Download progress in [0,1] for the active download.
	// example: 0.42
	Progress float64 `json:"progress" example:"0.42"`
	// Identifier of the active download; changes when a new download starts.
	DownloadID string `json:"download_id,omitempty"`
	// Failure reason when load_phase is failed.
	Error string `json:"error,omitempty"`
}
