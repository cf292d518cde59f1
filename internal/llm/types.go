package llm

import (
	"context"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Provider is a chat model backend. Classifier, router and specialists all
// share one Provider, usually wrapped in rate limiting, retries and a Meter.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages that requested tool execution.
	ToolCalls []ToolCall
	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string
	// Name is the tool name for RoleTool messages.
	Name string
}

// ToolDefinition describes a function the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// ToolCall is a single function invocation requested by the model.
// Arguments holds the raw JSON object produced by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ResponseSchema constrains the completion to a JSON document.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      jsonschema.Definition
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
	Tools       []ToolDefinition
	// Schema requests structured output. Providers without native support
	// fall back to JSON mode with the schema described in the prompt.
	Schema *ResponseSchema
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
