// Package specialist runs the route-specific support agents. Each agent is a
// bounded tool-use loop over a fixed subset of gateway lookups.
package specialist

import "github.com/ziadkadry99/udahub/internal/triage"

// Handler is the fixed configuration of one specialist.
type Handler struct {
	Route        triage.Route
	SystemPrompt string
	Tools        []string
}

var handlers = map[triage.Route]Handler{
	triage.RouteBilling: {
		Route: triage.RouteBilling,
		SystemPrompt: `You are the Billing Specialist for CultPass support.
Use tools to verify account and subscription context before making claims.
If you need the account email, user id or charge date, ask for it clearly.
Give a concise user-facing answer followed by a short "Action summary" section.
Never promise refund outcomes; offer next steps instead.`,
		Tools: []string{ToolAccountLookup, ToolSubscriptionStatus, ToolRetrieveKnowledge},
	},
	triage.RouteAccount: {
		Route: triage.RouteAccount,
		SystemPrompt: `You are the Account Specialist for CultPass support.
Use tools to look up account status when possible.
If the user is blocked or suspended, do not blame them; explain next steps and escalate with a helpful summary if needed.
Always ask for the account email if it is missing.`,
		Tools: []string{ToolAccountLookup, ToolSubscriptionStatus, ToolRetrieveKnowledge},
	},
	triage.RouteTech: {
		Route: triage.RouteTech,
		SystemPrompt: `You are the Technical Specialist for CultPass support.
First consult knowledge articles for troubleshooting steps.
If the user reports a crash or bug, ask for device model, OS version, app version and the exact error text.
Escalate only if the steps fail or the issue is reproducible.`,
		Tools: []string{ToolRetrieveKnowledge},
	},
	triage.RouteReservation: {
		Route: triage.RouteReservation,
		SystemPrompt: `You are the Reservation Specialist for CultPass support.
Use tools to check recent reservations when the user id is available.
If the user id is unknown, look up the account by email first, asking for the email if needed.
Use knowledge articles for QR code and booking troubleshooting.`,
		Tools: []string{ToolAccountLookup, ToolReservationLookup, ToolRetrieveKnowledge},
	},
	triage.RouteEscalation: {
		Route: triage.RouteEscalation,
		SystemPrompt: `You are the Escalation Specialist. Prepare a handoff to a human agent.

Output:
1) A brief user-facing message starting with "I'm escalating".
2) A fenced json block with the keys summary, what_we_know, what_we_tried, missing_info and suggested_next_action.
Be concise and operational.`,
		Tools: []string{ToolRetrieveKnowledge},
	},
}

// Lookup returns the handler for route. Unknown routes resolve to the
// escalation handler with fallback set.
func Lookup(route triage.Route) (h Handler, fallback bool) {
	if h, ok := handlers[route]; ok {
		return h, false
	}
	return handlers[triage.RouteEscalation], true
}
