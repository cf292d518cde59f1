package triage

import (
	"context"
	"fmt"
	"log"

	"github.com/ziadkadry99/udahub/internal/llm"
)

// DefaultEscalationThreshold is the classification confidence below which
// every ticket goes to escalation_agent.
const DefaultEscalationThreshold = 0.55

// Router picks a specialist route for a classified ticket.
type Router struct {
	provider    llm.Provider
	model       string
	temperature float64
	threshold   float64
}

// NewRouter creates a router. A threshold outside (0, 1] uses the default.
func NewRouter(provider llm.Provider, model string, temperature, threshold float64) *Router {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultEscalationThreshold
	}
	return &Router{provider: provider, model: model, temperature: temperature, threshold: threshold}
}

// Threshold returns the escalation threshold in effect.
func (r *Router) Threshold() float64 {
	return r.threshold
}

// Route asks the model for a routing decision, then forces escalation_agent
// when the classification confidence is below the threshold. Failures match
// ErrRoutingFailed.
func (r *Router) Route(ctx context.Context, ticketText string, c TicketClassification) (RoutingDecision, error) {
	d, err := llm.Infer[RoutingDecision](ctx, r.provider, llm.InferRequest{
		Model:       r.model,
		System:      fmt.Sprintf(routerSystemPrompt, r.threshold),
		User:        buildRouterPrompt(ticketText, c),
		Temperature: r.temperature,
		MaxTokens:   512,
		Schema:      RoutingSchema,
	})
	if err != nil {
		return RoutingDecision{}, fmt.Errorf("%w: %w", ErrRoutingFailed, err)
	}

	// Model-supplied override markers are not trusted.
	d.Overridden = false
	d.ModelRoute = ""
	return r.enforce(d, c), nil
}

func (r *Router) enforce(d RoutingDecision, c TicketClassification) RoutingDecision {
	if c.Confidence >= r.threshold || d.Route == RouteEscalation {
		return d
	}
	log.Printf("triage: classification confidence %.2f below %.2f, overriding route %s", c.Confidence, r.threshold, d.Route)
	d.ModelRoute = d.Route
	d.Route = RouteEscalation
	d.Overridden = true
	return d
}
