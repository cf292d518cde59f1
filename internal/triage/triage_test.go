package triage

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ziadkadry99/udahub/internal/llm"
	"github.com/ziadkadry99/udahub/internal/llm/llmtest"
)

func TestNewTicketClassificationConfidenceBounds(t *testing.T) {
	tests := []struct {
		confidence float64
		wantErr    bool
	}{
		{0, false},
		{0.55, false},
		{1, false},
		{-0.01, true},
		{1.01, true},
		{math.NaN(), true},
	}
	for _, tt := range tests {
		_, err := NewTicketClassification(IntentBilling, UrgencyLow, tt.confidence, "")
		if (err != nil) != tt.wantErr {
			t.Errorf("confidence %v: err = %v, wantErr %v", tt.confidence, err, tt.wantErr)
		}
		_, err = NewRoutingDecision(RouteBilling, tt.confidence, "", false)
		if (err != nil) != tt.wantErr {
			t.Errorf("routing confidence %v: err = %v, wantErr %v", tt.confidence, err, tt.wantErr)
		}
	}
}

func TestInvalidEnumsRejected(t *testing.T) {
	for _, intent := range []Intent{"", "Refund", "shipping", "refund "} {
		if _, err := NewTicketClassification(intent, UrgencyLow, 0.9, ""); err == nil {
			t.Errorf("expected intent %q to be rejected", intent)
		}
	}
	if _, err := NewTicketClassification(IntentOther, "urgent", 0.9, ""); err == nil {
		t.Error("expected urgency \"urgent\" to be rejected")
	}
	for _, route := range []Route{"", "billing", "sales_agent"} {
		if _, err := NewRoutingDecision(route, 0.9, "", false); err == nil {
			t.Errorf("expected route %q to be rejected", route)
		}
	}
	for _, intent := range Intents {
		if _, err := NewTicketClassification(intent, UrgencyHigh, 0.5, "ok"); err != nil {
			t.Errorf("intent %q rejected: %v", intent, err)
		}
	}
}

func TestNeedsMoreInfoDefaultsFalse(t *testing.T) {
	var d RoutingDecision
	if err := json.Unmarshal([]byte(`{"route":"tech_agent","confidence":0.8,"rationale":"bug"}`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.NeedsMoreInfo {
		t.Error("expected needs_more_info to default to false")
	}
}

func TestClassify(t *testing.T) {
	provider := llmtest.New(llmtest.Text(`{"intent":"refund","urgency":"medium","confidence":0.92,"rationale":"double charge"}`))
	c := NewClassifier(provider, "test-model", 0)

	got, err := c.Classify(context.Background(), "I've been charged twice and I want a refund.", map[string]any{"channel": "email"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got.Intent != IntentRefund || got.Urgency != UrgencyMedium || got.Confidence != 0.92 {
		t.Errorf("unexpected classification %+v", got)
	}

	req := provider.Calls()[0]
	if req.Model != "test-model" || req.Schema == nil || req.Schema.Name != ClassificationSchema.Name {
		t.Errorf("unexpected request %+v", req)
	}
	user := req.Messages[len(req.Messages)-1].Content
	if !strings.Contains(user, "charged twice") || !strings.Contains(user, "- channel: email") {
		t.Errorf("prompt missing ticket or metadata:\n%s", user)
	}
}

func TestClassifyFailures(t *testing.T) {
	tests := []struct {
		name       string
		step       llmtest.Step
		wantSchema bool
	}{
		{"bad intent", llmtest.Text(`{"intent":"shipping","urgency":"low","confidence":0.9,"rationale":"x"}`), true},
		{"confidence out of range", llmtest.Text(`{"intent":"billing","urgency":"low","confidence":1.5,"rationale":"x"}`), true},
		{"missing field", llmtest.Text(`{"intent":"billing","urgency":"low","rationale":"x"}`), true},
		{"not json", llmtest.Text(`I think this is about billing.`), true},
		{"provider error", llmtest.Fail(errors.New("connection reset")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(llmtest.New(tt.step), "", 0)
			_, err := c.Classify(context.Background(), "ticket", nil)
			if !errors.Is(err, ErrClassificationFailed) {
				t.Fatalf("expected ErrClassificationFailed, got %v", err)
			}
			if llm.IsSchemaError(err) != tt.wantSchema {
				t.Errorf("IsSchemaError = %v, want %v", llm.IsSchemaError(err), tt.wantSchema)
			}
		})
	}
}

func TestRouteLowConfidenceEscalates(t *testing.T) {
	provider := llmtest.New(llmtest.Text(`{"route":"billing_agent","confidence":0.9,"rationale":"refund request"}`))
	r := NewRouter(provider, "", 0, 0)

	cls, err := NewTicketClassification(IntentRefund, UrgencyLow, 0.4, "unsure")
	if err != nil {
		t.Fatalf("NewTicketClassification: %v", err)
	}
	d, err := r.Route(context.Background(), "refund please", cls)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if d.Route != RouteEscalation {
		t.Errorf("expected escalation_agent, got %s", d.Route)
	}
	if !d.Overridden || d.ModelRoute != RouteBilling {
		t.Errorf("expected override of billing_agent, got %+v", d)
	}
	if s := d.Summary(); s["overridden"] != true || s["model_route"] != "billing_agent" {
		t.Errorf("expected override in summary, got %v", s)
	}
}

func TestRouteKeepsModelChoiceAboveThreshold(t *testing.T) {
	provider := llmtest.New(llmtest.Text(`{"route":"billing_agent","confidence":0.8,"rationale":"refund","needs_more_info":true,"overridden":true}`))
	r := NewRouter(provider, "", 0, 0.55)

	cls, _ := NewTicketClassification(IntentRefund, UrgencyMedium, 0.55, "clear")
	d, err := r.Route(context.Background(), "refund please", cls)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if d.Route != RouteBilling || d.Overridden || !d.NeedsMoreInfo {
		t.Errorf("unexpected decision %+v", d)
	}

	system := provider.Calls()[0].Messages[0].Content
	if !strings.Contains(system, "< 0.55") {
		t.Errorf("expected threshold in system prompt:\n%s", system)
	}
}

func TestRouteEscalationNotMarkedOverridden(t *testing.T) {
	r := NewRouter(llmtest.New(llmtest.Text(`{"route":"escalation_agent","confidence":0.3,"rationale":"unclear"}`)), "", 0, 0)
	cls, _ := NewTicketClassification(IntentOther, UrgencyHigh, 0.2, "unclear")
	d, err := r.Route(context.Background(), "???", cls)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if d.Route != RouteEscalation || d.Overridden {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestRouteFailures(t *testing.T) {
	cls, _ := NewTicketClassification(IntentBilling, UrgencyLow, 0.9, "")
	for _, step := range []llmtest.Step{
		llmtest.Text(`{"route":"sales_agent","confidence":0.9,"rationale":"x"}`),
		llmtest.Fail(errors.New("timeout")),
	} {
		r := NewRouter(llmtest.New(step), "", 0, 0)
		if _, err := r.Route(context.Background(), "t", cls); !errors.Is(err, ErrRoutingFailed) {
			t.Errorf("expected ErrRoutingFailed, got %v", err)
		}
	}
}

func TestNewRouterThresholdDefault(t *testing.T) {
	for _, th := range []float64{0, -1, 2} {
		if got := NewRouter(nil, "", 0, th).Threshold(); got != DefaultEscalationThreshold {
			t.Errorf("threshold %v: got %v", th, got)
		}
	}
	if got := NewRouter(nil, "", 0, 0.7).Threshold(); got != 0.7 {
		t.Errorf("expected 0.7, got %v", got)
	}
}

func TestFormatMetadata(t *testing.T) {
	if got := FormatMetadata(nil); got != "(none)" {
		t.Errorf("empty metadata: got %q", got)
	}
	got := FormatMetadata(map[string]any{"b": 2, "a": "x"})
	if got != "- a: x\n- b: 2" {
		t.Errorf("got %q", got)
	}
}
