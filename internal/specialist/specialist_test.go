package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ziadkadry99/udahub/internal/gateway"
	"github.com/ziadkadry99/udahub/internal/knowledge"
	"github.com/ziadkadry99/udahub/internal/llm"
	"github.com/ziadkadry99/udahub/internal/llm/llmtest"
	"github.com/ziadkadry99/udahub/internal/seed"
	"github.com/ziadkadry99/udahub/internal/triage"
)

func setupToolbox(t *testing.T) *Toolbox {
	t.Helper()
	path := filepath.Join(t.TempDir(), "udahub.db")
	if err := seed.CreateStore(path, false); err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	articles := make([]knowledge.Article, 0, len(seed.Articles))
	for i, a := range seed.Articles {
		articles = append(articles, knowledge.Article{
			ID:      fmt.Sprintf("seed:%d", i),
			Title:   a["title"].(string),
			Content: a["content"].(string),
		})
	}
	retriever, err := knowledge.NewLexicalRetriever(articles)
	if err != nil {
		t.Fatalf("NewLexicalRetriever: %v", err)
	}
	t.Cleanup(func() { retriever.Close() })

	g, err := gateway.New(path, retriever, nil)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	t.Cleanup(g.Close)
	return NewToolbox(g)
}

func TestLookupTable(t *testing.T) {
	want := map[triage.Route][]string{
		triage.RouteBilling:     {ToolAccountLookup, ToolSubscriptionStatus, ToolRetrieveKnowledge},
		triage.RouteAccount:     {ToolAccountLookup, ToolSubscriptionStatus, ToolRetrieveKnowledge},
		triage.RouteTech:        {ToolRetrieveKnowledge},
		triage.RouteReservation: {ToolAccountLookup, ToolReservationLookup, ToolRetrieveKnowledge},
		triage.RouteEscalation:  {ToolRetrieveKnowledge},
	}
	for route, tools := range want {
		h, fallback := Lookup(route)
		if fallback || h.Route != route {
			t.Errorf("%s: got route %s fallback %v", route, h.Route, fallback)
		}
		if !reflect.DeepEqual(h.Tools, tools) {
			t.Errorf("%s: tools %v, want %v", route, h.Tools, tools)
		}
	}

	h, fallback := Lookup("sales_agent")
	if !fallback || h.Route != triage.RouteEscalation {
		t.Errorf("expected escalation fallback, got %s %v", h.Route, fallback)
	}
}

func TestToolboxExecute(t *testing.T) {
	tb := setupToolbox(t)
	ctx := context.Background()
	all := []string{ToolAccountLookup, ToolSubscriptionStatus, ToolReservationLookup, ToolRetrieveKnowledge}

	out, ok := tb.Execute(ctx, all, ToolAccountLookup, `{"email":"ana.souza@example.com"}`)
	if !ok || !strings.Contains(out, `"user_id":"u_1001"`) {
		t.Errorf("account_lookup: ok=%v out=%s", ok, out)
	}

	out, ok = tb.Execute(ctx, all, ToolReservationLookup, `{"user_id":"u_1001","limit":2}`)
	var res gateway.ReservationResult
	if err := json.Unmarshal([]byte(out), &res); err != nil || !ok {
		t.Fatalf("reservation_lookup: ok=%v err=%v out=%s", ok, err, out)
	}
	if len(res.Reservations) != 2 {
		t.Errorf("expected 2 reservations, got %d", len(res.Reservations))
	}

	out, ok = tb.Execute(ctx, all, ToolRetrieveKnowledge, `{"query":"charged twice"}`)
	if !ok || !strings.Contains(out, "Duplicate charges") {
		t.Errorf("retrieve_knowledge: ok=%v out=%s", ok, out)
	}

	out, ok = tb.Execute(ctx, all, ToolSubscriptionStatus, `{}`)
	if ok || !strings.Contains(out, gateway.ErrMissingIdentifier) {
		t.Errorf("subscription_status: ok=%v out=%s", ok, out)
	}
}

func TestToolboxExecuteFailures(t *testing.T) {
	tb := setupToolbox(t)
	ctx := context.Background()

	out, ok := tb.Execute(ctx, []string{ToolRetrieveKnowledge}, ToolAccountLookup, `{"email":"a@b.c"}`)
	if ok || !strings.Contains(out, errUnknownTool) {
		t.Errorf("out-of-scope tool: ok=%v out=%s", ok, out)
	}

	out, ok = tb.Execute(ctx, []string{"drop_tables"}, "drop_tables", `{}`)
	if ok || !strings.Contains(out, errUnknownTool) {
		t.Errorf("unregistered tool: ok=%v out=%s", ok, out)
	}

	out, ok = tb.Execute(ctx, []string{ToolReservationLookup}, ToolReservationLookup, `{"user_id": 42}`)
	if ok || !strings.Contains(out, errInvalidArguments) {
		t.Errorf("bad arguments: ok=%v out=%s", ok, out)
	}
}

func TestDispatchToolLoop(t *testing.T) {
	provider := llmtest.New(
		llmtest.ToolCalls(llmtest.Call("c1", ToolAccountLookup, `{"email":"ana.souza@example.com"}`)),
		llmtest.ToolCalls(
			llmtest.Call("c2", ToolSubscriptionStatus, `{"user_id":"u_1001"}`),
			llmtest.Call("c3", ToolRetrieveKnowledge, `{"query":"duplicate charge refund"}`),
		),
		llmtest.Text("The second charge is a pending authorization.\n\nAction summary: none needed."),
	)
	d := NewDispatcher(provider, "m", 0, 0, setupToolbox(t))

	out, err := d.Dispatch(context.Background(), triage.RouteBilling, "I've been charged twice.", map[string]any{"email": "ana.souza@example.com"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Route != triage.RouteBilling || out.Fallback || out.Defaulted {
		t.Errorf("unexpected outcome %+v", out)
	}
	if !strings.HasPrefix(out.FinalResponse, "The second charge") {
		t.Errorf("unexpected response %q", out.FinalResponse)
	}
	if out.Turns != 3 || len(out.ToolCalls) != 3 {
		t.Errorf("expected 3 turns and 3 tool calls, got %d and %d", out.Turns, len(out.ToolCalls))
	}

	calls := provider.Calls()
	if len(calls[0].Tools) != 3 {
		t.Errorf("expected 3 tools offered, got %d", len(calls[0].Tools))
	}
	if !strings.Contains(calls[0].Messages[1].Content, "- email: ana.souza@example.com") {
		t.Errorf("expected metadata in user message: %q", calls[0].Messages[1].Content)
	}

	// Third request: system, user, assistant, tool, assistant, tool, tool.
	third := calls[2].Messages
	if len(third) != 7 {
		t.Fatalf("expected 7 messages, got %d", len(third))
	}
	if third[3].Role != llm.RoleTool || third[3].ToolCallID != "c1" || !strings.Contains(third[3].Content, "u_1001") {
		t.Errorf("unexpected tool message %+v", third[3])
	}
	if third[6].ToolCallID != "c3" || third[6].Name != ToolRetrieveKnowledge {
		t.Errorf("unexpected tool message %+v", third[6])
	}
}

func TestDispatchUnknownToolIsNotFatal(t *testing.T) {
	provider := llmtest.New(
		llmtest.ToolCalls(llmtest.Call("c1", ToolReservationLookup, `{"user_id":"u_1001"}`)),
		llmtest.Text("Please share the device model."),
	)
	d := NewDispatcher(provider, "", 0, 0, setupToolbox(t))

	out, err := d.Dispatch(context.Background(), triage.RouteTech, "The app crashes.", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.FinalResponse != "Please share the device model." {
		t.Errorf("unexpected response %q", out.FinalResponse)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].OK {
		t.Errorf("expected one failed tool call, got %+v", out.ToolCalls)
	}
	toolMsg := provider.Calls()[1].Messages[3]
	if !strings.Contains(toolMsg.Content, errUnknownTool) {
		t.Errorf("expected unknown_tool fed back, got %q", toolMsg.Content)
	}
}

func TestDispatchMaxTurns(t *testing.T) {
	var steps []llmtest.Step
	for i := 0; i < 5; i++ {
		steps = append(steps, llmtest.ToolCalls(llmtest.Call("c", ToolRetrieveKnowledge, `{"query":"qr"}`)))
	}
	provider := llmtest.New(steps...)
	d := NewDispatcher(provider, "", 0, 3, setupToolbox(t))

	out, err := d.Dispatch(context.Background(), triage.RouteTech, "QR code fails", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Turns != 3 || provider.Remaining() != 2 {
		t.Errorf("expected 3 turns, got %d (remaining %d)", out.Turns, provider.Remaining())
	}
	if out.FinalResponse != DefaultResponse || !out.Defaulted {
		t.Errorf("expected default response, got %q", out.FinalResponse)
	}
}

func TestDispatchProviderErrorIsNotFatal(t *testing.T) {
	provider := llmtest.New(llmtest.Fail(errors.New("503 service unavailable")))
	d := NewDispatcher(provider, "", 0, 0, setupToolbox(t))

	out, err := d.Dispatch(context.Background(), triage.RouteAccount, "I can't log in", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.FinalResponse != DefaultResponse || !out.Defaulted {
		t.Errorf("expected default response, got %+v", out)
	}
}

func TestDispatchContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	d := NewDispatcher(llmtest.Blocking{}, "", 0, 0, setupToolbox(t))
	_, err := d.Dispatch(ctx, triage.RouteTech, "slow", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatchFallbackEscalationWithHandoff(t *testing.T) {
	reply := "I'm escalating your case to a human agent.\n\n```json\n" +
		`{"summary":"Double charge","what_we_know":["user u_1001","premium plan"],"what_we_tried":"checked subscription","missing_info":"charge date","suggested_next_action":"billing review"}` +
		"\n```"
	d := NewDispatcher(llmtest.New(llmtest.Text(reply)), "", 0, 0, setupToolbox(t))

	out, err := d.Dispatch(context.Background(), triage.Route("sales_agent"), "help", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Route != triage.RouteEscalation || !out.Fallback || out.RequestedRoute != "sales_agent" {
		t.Errorf("unexpected fallback outcome %+v", out)
	}
	if s := out.Summary(); s["fallback"] != true || s["requested_route"] != "sales_agent" {
		t.Errorf("expected fallback in summary, got %v", s)
	}
	if out.Handoff == nil {
		t.Fatal("expected handoff")
	}
	if out.Handoff.WhatWeKnow != "user u_1001; premium plan" || out.Handoff.SuggestedNextAction != "billing review" {
		t.Errorf("unexpected handoff %+v", out.Handoff)
	}
	if out.FinalResponse != "I'm escalating your case to a human agent." {
		t.Errorf("expected JSON block stripped, got %q", out.FinalResponse)
	}
}

func TestDispatchEscalationStripsInlineHandoff(t *testing.T) {
	reply := `I'm escalating your case to a human agent. {"summary":"Blocked account","suggested_next_action":"trust review"}`
	d := NewDispatcher(llmtest.New(llmtest.Text(reply)), "", 0, 0, setupToolbox(t))

	out, err := d.Dispatch(context.Background(), triage.RouteEscalation, "my account is blocked", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Handoff == nil || out.Handoff.Summary != "Blocked account" {
		t.Fatalf("expected inline handoff, got %+v", out.Handoff)
	}
	if out.FinalResponse != "I'm escalating your case to a human agent." {
		t.Errorf("expected inline JSON stripped, got %q", out.FinalResponse)
	}
}

func TestParseHandoff(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  *Handoff
	}{
		{"none", "I'm escalating your case.", nil},
		{"unrelated json", `Here: {"foo":"bar"}`, nil},
		{"inline", `I'm escalating. {"summary":"s","missing_info":"m"}`, &Handoff{Summary: "s", MissingInfo: "m"}},
		{"nested payload", "```\n{\"escalation_payload\":{\"summary\":\"s\"}}\n```", &Handoff{Summary: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseHandoff(tt.reply)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"plain", "I'm escalating your case.", "I'm escalating your case."},
		{"fenced", "I'm escalating.\n```json\n{\"summary\":\"s\"}\n```", "I'm escalating."},
		{"inline", `I'm escalating your case. {"summary":"s","missing_info":"m"}`, "I'm escalating your case."},
		{"leading payload", `{"escalation_payload":{"summary":"s"}} A human agent will follow up.`, "A human agent will follow up."},
		{"unrelated braces kept", `Use the code {ABC} at checkout.`, `Use the code {ABC} at checkout.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.reply); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
