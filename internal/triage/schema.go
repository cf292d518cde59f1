package triage

import (
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/ziadkadry99/udahub/internal/llm"
)

func enumOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// ClassificationSchema is the structured output requested from the classifier.
var ClassificationSchema = llm.ResponseSchema{
	Name:        "ticket_classification",
	Description: "Classification of a customer support ticket.",
	Schema: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"intent": {
				Type:        jsonschema.String,
				Enum:        enumOf(Intents),
				Description: "Main topic/intent of the ticket.",
			},
			"urgency": {
				Type:        jsonschema.String,
				Enum:        enumOf(Urgencies),
				Description: "Urgency level for prioritization.",
			},
			"confidence": {
				Type:        jsonschema.Number,
				Description: "Classifier confidence between 0 and 1.",
			},
			"rationale": {
				Type:        jsonschema.String,
				Description: "Short explanation of why this classification was chosen.",
			},
		},
		Required: []string{"intent", "urgency", "confidence", "rationale"},
	},
}

// RoutingSchema is the structured output requested from the router.
// needs_more_info is optional and defaults to false.
var RoutingSchema = llm.ResponseSchema{
	Name:        "routing_decision",
	Description: "Which specialist should handle the ticket next.",
	Schema: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"route": {
				Type:        jsonschema.String,
				Enum:        enumOf(Routes),
				Description: "Which specialist should handle this ticket next.",
			},
			"confidence": {
				Type:        jsonschema.Number,
				Description: "Routing confidence between 0 and 1.",
			},
			"rationale": {
				Type:        jsonschema.String,
				Description: "Why this route is best.",
			},
			"needs_more_info": {
				Type:        jsonschema.Boolean,
				Description: "True if clarifying questions must be asked before acting.",
			},
		},
		Required: []string{"route", "confidence", "rationale"},
	},
}
