package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validator is implemented by structured outputs that check their own invariants.
type Validator interface {
	Validate() error
}

// SchemaError reports model output that could not be decoded into the
// requested shape or that failed validation. It is never retried.
type SchemaError struct {
	Schema string
	Raw    string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: model output does not match schema: %v", e.Schema, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsSchemaError reports whether err wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// InferRequest is a single structured-output call.
type InferRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	Schema      ResponseSchema
}

// Infer asks the provider for a JSON object matching req.Schema and decodes
// it into T. Required schema fields must be present in the reply. When T
// implements Validator, the decoded value is validated as well.
func Infer[T any](ctx context.Context, provider Provider, req InferRequest) (T, error) {
	var zero T

	messages := make([]Message, 0, 2)
	if req.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.System})
	}
	messages = append(messages, Message{Role: RoleUser, Content: req.User})

	schema := req.Schema
	resp, err := provider.Complete(ctx, CompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		JSONMode:    true,
		Schema:      &schema,
	})
	if err != nil {
		return zero, fmt.Errorf("%s completion: %w", schema.Name, err)
	}

	raw := extractJSONObject(resp.Content)
	if raw == "" {
		return zero, &SchemaError{Schema: schema.Name, Raw: resp.Content, Err: errors.New("no JSON object in response")}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return zero, &SchemaError{Schema: schema.Name, Raw: resp.Content, Err: err}
	}
	for _, name := range schema.Schema.Required {
		if v, ok := fields[name]; !ok || string(v) == "null" {
			return zero, &SchemaError{Schema: schema.Name, Raw: resp.Content, Err: fmt.Errorf("missing required field %q", name)}
		}
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return zero, &SchemaError{Schema: schema.Name, Raw: resp.Content, Err: err}
	}
	if v, ok := any(&out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return zero, &SchemaError{Schema: schema.Name, Raw: resp.Content, Err: err}
		}
	} else if v, ok := any(out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return zero, &SchemaError{Schema: schema.Name, Raw: resp.Content, Err: err}
		}
	}

	return out, nil
}

// extractJSONObject returns the text between the first '{' and the last '}'.
// Models sometimes wrap JSON in prose or code fences.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
