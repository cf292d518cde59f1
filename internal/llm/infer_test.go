package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
)

type verdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (v verdict) Validate() error {
	if v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", v.Confidence)
	}
	return nil
}

var verdictSchema = ResponseSchema{
	Name: "verdict",
	Schema: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"label":      {Type: jsonschema.String},
			"confidence": {Type: jsonschema.Number},
		},
		Required: []string{"label", "confidence"},
	},
}

func inferWith(t *testing.T, content string) (verdict, *MockProvider, error) {
	t.Helper()
	mock := NewMockProvider("test")
	mock.Response = &CompletionResponse{Content: content}
	v, err := Infer[verdict](context.Background(), mock, InferRequest{
		System: "classify",
		User:   "ticket",
		Schema: verdictSchema,
	})
	return v, mock, err
}

func TestInferDecodesAndSendsSchema(t *testing.T) {
	v, mock, err := inferWith(t, `{"label":"refund","confidence":0.9}`)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if v.Label != "refund" || v.Confidence != 0.9 {
		t.Errorf("unexpected value: %+v", v)
	}

	req := mock.Calls[0]
	if req.Schema == nil || req.Schema.Name != "verdict" {
		t.Fatalf("expected schema to be sent, got %+v", req.Schema)
	}
	if !req.JSONMode {
		t.Error("expected JSON mode")
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem || req.Messages[1].Content != "ticket" {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
}

func TestInferExtractsFromFencedReply(t *testing.T) {
	v, _, err := inferWith(t, "Here you go:\n```json\n{\"label\":\"billing\",\"confidence\":0.5}\n```")
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if v.Label != "billing" {
		t.Errorf("expected billing, got %q", v.Label)
	}
}

func TestInferSchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no json", "I cannot help with that."},
		{"malformed", `{"label": "refund", "confidence": }`},
		{"missing field", `{"label":"refund"}`},
		{"null field", `{"label":"refund","confidence":null}`},
		{"wrong type", `{"label":7,"confidence":0.2}`},
		{"validation", `{"label":"refund","confidence":1.7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := inferWith(t, tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SchemaError, got %T: %v", err, err)
			}
			if se.Raw != tt.content {
				t.Errorf("expected raw content to be kept, got %q", se.Raw)
			}
		})
	}
}

func TestInferProviderErrorIsNotSchemaError(t *testing.T) {
	mock := NewMockProvider("test")
	mock.Err = errors.New("connection refused")

	_, err := Infer[verdict](context.Background(), mock, InferRequest{User: "x", Schema: verdictSchema})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsSchemaError(err) {
		t.Error("transport failure must not be reported as a schema error")
	}
}
