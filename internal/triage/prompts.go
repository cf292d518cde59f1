package triage

import (
	"fmt"
	"sort"
	"strings"
)

const classifierSystemPrompt = `You are a ticket classifier for the CultPass customer support system.
Return a structured classification of the ticket.

Guidelines:
- intent must be one of: refund, billing, account, technical, reservation, other
- urgency must be one of: low, medium, high
- confidence is a number between 0 and 1
- rationale should be short and practical`

const routerSystemPrompt = `You are the routing supervisor of a multi-agent support system.
Pick the specialist that should handle the ticket.

Routes:
- billing_agent: charges, refunds, invoices, subscription payments
- account_agent: login, profile, blocked or suspended accounts
- tech_agent: app crashes, bugs, troubleshooting
- reservation_agent: bookings, QR codes, experience reservations
- escalation_agent: anything a human must handle

Rules:
- If classification.confidence < %.2f -> escalation_agent
- If classification.urgency is high and the ticket is unclear -> escalation_agent
- Set needs_more_info when the specialist must ask clarifying questions first`

// FormatMetadata renders metadata as sorted "key: value" lines.
func FormatMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, metadata[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildClassifierPrompt(ticketText string, metadata map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Ticket\n%s\n", ticketText)
	fmt.Fprintf(&b, "\n## Metadata\n%s\n", FormatMetadata(metadata))
	return b.String()
}

func buildRouterPrompt(ticketText string, c TicketClassification) string {
	var b strings.Builder
	b.WriteString("## Classification\n")
	fmt.Fprintf(&b, "- intent: %s\n", c.Intent)
	fmt.Fprintf(&b, "- urgency: %s\n", c.Urgency)
	fmt.Fprintf(&b, "- confidence: %.2f\n", c.Confidence)
	fmt.Fprintf(&b, "- rationale: %s\n", c.Rationale)
	fmt.Fprintf(&b, "\n## Ticket\n%s\n", ticketText)
	return b.String()
}
