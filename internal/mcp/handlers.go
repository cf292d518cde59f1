package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/udahub/internal/pipeline"
	"github.com/ziadkadry99/udahub/internal/render"
)

// Gateway results are returned as JSON text. ok=false results are data,
// not tool errors, so the calling agent can read the failure code.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleAccountLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	email, err := request.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: email"), nil
	}
	return jsonResult(s.lookups.AccountLookup(ctx, email))
}

func (s *Server) handleSubscriptionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := request.GetString("user_id", "")
	email := request.GetString("email", "")
	return jsonResult(s.lookups.SubscriptionStatus(ctx, userID, email))
}

func (s *Server) handleReservationLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	return jsonResult(s.lookups.ReservationLookup(ctx, userID, request.GetInt("limit", 0)))
}

func (s *Server) handleRetrieveKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	return jsonResult(s.lookups.RetrieveKnowledge(ctx, query, request.GetInt("k", 0)))
}

// handleTriageTicket runs the full pipeline for one ticket.
func (s *Server) handleTriageTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("ticket_text")
	if err != nil || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("missing required parameter: ticket_text"), nil
	}

	var metadata map[string]any
	if m, ok := request.GetArguments()["metadata"].(map[string]any); ok {
		metadata = m
	}

	res, err := s.runner.RunTicket(ctx, pipeline.Ticket{Text: text, Metadata: metadata}, request.GetString("thread_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("triage failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatTriageResult(res)), nil
}

// formatTriageResult renders a pipeline result as text for agent consumption.
func formatTriageResult(res *pipeline.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Thread: %s\n", res.ThreadID)
	if res.Resumed {
		sb.WriteString("Resumed: yes\n")
	}
	c := res.Classification
	fmt.Fprintf(&sb, "Intent: %s (urgency %s, confidence %.2f)\n", c.Intent, c.Urgency, c.Confidence)

	r := res.Routing
	fmt.Fprintf(&sb, "Route: %s (confidence %.2f)", r.Route, r.Confidence)
	if r.Overridden {
		fmt.Fprintf(&sb, " [escalated, model chose %s]", r.ModelRoute)
	}
	sb.WriteString("\n")
	if r.Rationale != "" {
		fmt.Fprintf(&sb, "Rationale: %s\n", r.Rationale)
	}
	if r.NeedsMoreInfo {
		sb.WriteString("Needs more info: yes\n")
	}

	sb.WriteString("\n--- Reply ---\n")
	sb.WriteString(res.FinalResponse)
	sb.WriteString("\n")

	if res.Handoff != nil {
		sb.WriteString("\n--- Handoff ---\n")
		sb.WriteString(render.HandoffMarkdown(res.Handoff))
	}

	if len(res.Logs) > 0 {
		sb.WriteString("\n--- Stages ---\n")
		for _, entry := range res.Logs {
			sb.WriteString(entry.String())
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
