package specialist

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ziadkadry99/udahub/internal/llm"
	"github.com/ziadkadry99/udahub/internal/triage"
)

// DefaultMaxTurns bounds the model calls of one specialist run.
const DefaultMaxTurns = 6

// DefaultResponse is used when a specialist produces no reply.
const DefaultResponse = "We could not generate an automatic response. Your case will be escalated."

// ToolInvocation records one executed tool call.
type ToolInvocation struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	OK        bool   `json:"ok"`
}

// Outcome is the result of one specialist run.
type Outcome struct {
	Route          triage.Route     `json:"route"`
	RequestedRoute triage.Route     `json:"requested_route,omitempty"`
	Fallback       bool             `json:"fallback,omitempty"`
	FinalResponse  string           `json:"final_response"`
	Defaulted      bool             `json:"defaulted,omitempty"`
	Handoff        *Handoff         `json:"handoff,omitempty"`
	Turns          int              `json:"turns"`
	ToolCalls      []ToolInvocation `json:"tool_calls,omitempty"`
}

// Summary returns the outcome as a log-friendly map.
func (o Outcome) Summary() map[string]any {
	tools := make([]string, 0, len(o.ToolCalls))
	for _, tc := range o.ToolCalls {
		tools = append(tools, tc.Name)
	}
	m := map[string]any{
		"route":      string(o.Route),
		"turns":      o.Turns,
		"tool_calls": tools,
		"defaulted":  o.Defaulted,
	}
	if o.Fallback {
		m["fallback"] = true
		m["requested_route"] = string(o.RequestedRoute)
	}
	if o.Handoff != nil {
		m["handoff"] = true
	}
	return m
}

// Dispatcher selects a specialist by route and runs its agent loop.
type Dispatcher struct {
	provider    llm.Provider
	model       string
	temperature float64
	maxTurns    int
	tools       *Toolbox
}

// NewDispatcher creates a dispatcher. maxTurns <= 0 uses DefaultMaxTurns.
func NewDispatcher(provider llm.Provider, model string, temperature float64, maxTurns int, tools *Toolbox) *Dispatcher {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Dispatcher{
		provider:    provider,
		model:       model,
		temperature: temperature,
		maxTurns:    maxTurns,
		tools:       tools,
	}
}

// Dispatch runs the specialist for route. Unknown routes fall back to the
// escalation specialist. Model failures are logged and produce the default
// response; the only error returned is the context's, when it ends first.
func (d *Dispatcher) Dispatch(ctx context.Context, route triage.Route, ticketText string, metadata map[string]any) (Outcome, error) {
	h, fallback := Lookup(route)
	out := Outcome{Route: h.Route, Fallback: fallback}
	if fallback {
		out.RequestedRoute = route
		log.Printf("specialist: unknown route %q, falling back to %s", route, h.Route)
	}

	reply, err := d.loop(ctx, h, ticketText, metadata, &out)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, fmt.Errorf("specialist %s: %w", h.Route, ctxErr)
		}
		log.Printf("specialist: %s failed: %v", h.Route, err)
	}

	if reply == "" {
		reply = DefaultResponse
		out.Defaulted = true
	}
	if h.Route == triage.RouteEscalation {
		out.Handoff = ParseHandoff(reply)
		if out.Handoff != nil {
			if msg := UserMessage(reply); msg != "" {
				reply = msg
			}
		}
	}
	out.FinalResponse = reply
	return out, nil
}

// loop runs up to maxTurns model calls. It returns the last non-empty
// assistant text seen.
func (d *Dispatcher) loop(ctx context.Context, h Handler, ticketText string, metadata map[string]any, out *Outcome) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: h.SystemPrompt},
		{Role: llm.RoleUser, Content: buildUserMessage(ticketText, metadata)},
	}
	defs := Definitions(h.Tools)

	var last string
	for turn := 0; turn < d.maxTurns; turn++ {
		resp, err := d.provider.Complete(ctx, llm.CompletionRequest{
			Model:       d.model,
			Messages:    messages,
			MaxTokens:   1024,
			Temperature: d.temperature,
			Tools:       defs,
		})
		out.Turns++
		if err != nil {
			return last, fmt.Errorf("turn %d: %w", turn+1, err)
		}

		if text := strings.TrimSpace(resp.Content); text != "" {
			last = text
		}
		if len(resp.ToolCalls) == 0 {
			return last, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result, ok := d.tools.Execute(ctx, h.Tools, tc.Name, tc.Arguments)
			out.ToolCalls = append(out.ToolCalls, ToolInvocation{Name: tc.Name, Arguments: tc.Arguments, OK: ok})
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	log.Printf("specialist: %s exhausted %d turns (~%d prompt tokens)", h.Route, d.maxTurns, llm.EstimateMessagesTokens(messages))
	return last, nil
}

func buildUserMessage(ticketText string, metadata map[string]any) string {
	var b strings.Builder
	b.WriteString(ticketText)
	if len(metadata) > 0 {
		fmt.Fprintf(&b, "\n\n## Metadata\n%s", triage.FormatMetadata(metadata))
	}
	return b.String()
}
