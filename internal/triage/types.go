// Package triage classifies support tickets and decides which specialist
// handles them.
package triage

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrClassificationFailed wraps any failure of the classification stage.
	ErrClassificationFailed = errors.New("classification_failed")
	// ErrRoutingFailed wraps any failure of the routing stage.
	ErrRoutingFailed = errors.New("routing_failed")
)

// Intent is the main topic of a ticket.
type Intent string

const (
	IntentRefund      Intent = "refund"
	IntentBilling     Intent = "billing"
	IntentAccount     Intent = "account"
	IntentTechnical   Intent = "technical"
	IntentReservation Intent = "reservation"
	IntentOther       Intent = "other"
)

// Intents lists every valid intent.
var Intents = []Intent{IntentRefund, IntentBilling, IntentAccount, IntentTechnical, IntentReservation, IntentOther}

// Valid reports whether i is a known intent.
func (i Intent) Valid() bool {
	for _, v := range Intents {
		if i == v {
			return true
		}
	}
	return false
}

// Urgency is the priority of a ticket.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Urgencies lists every valid urgency.
var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh}

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	for _, v := range Urgencies {
		if u == v {
			return true
		}
	}
	return false
}

// Route names the specialist that handles a ticket.
type Route string

const (
	RouteBilling     Route = "billing_agent"
	RouteAccount     Route = "account_agent"
	RouteTech        Route = "tech_agent"
	RouteReservation Route = "reservation_agent"
	RouteEscalation  Route = "escalation_agent"
)

// Routes lists every valid route.
var Routes = []Route{RouteBilling, RouteAccount, RouteTech, RouteReservation, RouteEscalation}

// Valid reports whether r is a known route.
func (r Route) Valid() bool {
	for _, v := range Routes {
		if r == v {
			return true
		}
	}
	return false
}

// TicketClassification is the classifier's verdict on one ticket.
type TicketClassification struct {
	Intent     Intent  `json:"intent"`
	Urgency    Urgency `json:"urgency"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// NewTicketClassification builds a validated classification.
func NewTicketClassification(intent Intent, urgency Urgency, confidence float64, rationale string) (TicketClassification, error) {
	c := TicketClassification{Intent: intent, Urgency: urgency, Confidence: confidence, Rationale: rationale}
	if err := c.Validate(); err != nil {
		return TicketClassification{}, err
	}
	return c, nil
}

// Validate checks the enum fields and the confidence bounds.
func (c TicketClassification) Validate() error {
	if !c.Intent.Valid() {
		return fmt.Errorf("invalid intent %q", c.Intent)
	}
	if !c.Urgency.Valid() {
		return fmt.Errorf("invalid urgency %q", c.Urgency)
	}
	return checkConfidence(c.Confidence)
}

// Summary returns the classification as a log-friendly map.
func (c TicketClassification) Summary() map[string]any {
	return map[string]any{
		"intent":     string(c.Intent),
		"urgency":    string(c.Urgency),
		"confidence": c.Confidence,
		"rationale":  c.Rationale,
	}
}

// RoutingDecision is the router's choice of specialist. When the escalation
// threshold forces a different route than the model chose, Overridden is set
// and ModelRoute keeps the model's answer.
type RoutingDecision struct {
	Route         Route   `json:"route"`
	Confidence    float64 `json:"confidence"`
	Rationale     string  `json:"rationale"`
	NeedsMoreInfo bool    `json:"needs_more_info"`

	Overridden bool  `json:"overridden,omitempty"`
	ModelRoute Route `json:"model_route,omitempty"`
}

// NewRoutingDecision builds a validated decision.
func NewRoutingDecision(route Route, confidence float64, rationale string, needsMoreInfo bool) (RoutingDecision, error) {
	d := RoutingDecision{Route: route, Confidence: confidence, Rationale: rationale, NeedsMoreInfo: needsMoreInfo}
	if err := d.Validate(); err != nil {
		return RoutingDecision{}, err
	}
	return d, nil
}

// Validate checks the route and the confidence bounds.
func (d RoutingDecision) Validate() error {
	if !d.Route.Valid() {
		return fmt.Errorf("invalid route %q", d.Route)
	}
	return checkConfidence(d.Confidence)
}

// Summary returns the decision as a log-friendly map.
func (d RoutingDecision) Summary() map[string]any {
	m := map[string]any{
		"route":           string(d.Route),
		"confidence":      d.Confidence,
		"rationale":       d.Rationale,
		"needs_more_info": d.NeedsMoreInfo,
	}
	if d.Overridden {
		m["overridden"] = true
		m["model_route"] = string(d.ModelRoute)
	}
	return m
}

func checkConfidence(c float64) error {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", c)
	}
	return nil
}
