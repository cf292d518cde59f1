package specialist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/ziadkadry99/udahub/internal/gateway"
	"github.com/ziadkadry99/udahub/internal/llm"
)

// Tool names exposed to specialists.
const (
	ToolAccountLookup      = "account_lookup"
	ToolSubscriptionStatus = "subscription_status"
	ToolReservationLookup  = "reservation_lookup"
	ToolRetrieveKnowledge  = "retrieve_knowledge"
)

// Lookups is the subset of the data gateway the tools call.
type Lookups interface {
	AccountLookup(ctx context.Context, email string) gateway.AccountResult
	SubscriptionStatus(ctx context.Context, userID, email string) gateway.SubscriptionResult
	ReservationLookup(ctx context.Context, userID string, limit int) gateway.ReservationResult
	RetrieveKnowledge(ctx context.Context, query string, k int) gateway.KnowledgeResult
}

// Tool-level failure codes, in the same envelope as gateway failures.
const (
	errUnknownTool      = "unknown_tool"
	errInvalidArguments = "invalid_arguments"
)

var toolDefinitions = map[string]llm.ToolDefinition{
	ToolAccountLookup: {
		Name:        ToolAccountLookup,
		Description: "Look up a CultPass account by email. Returns user_id, full_name, email and is_blocked when found.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"email": {Type: jsonschema.String, Description: "Account email address."},
			},
			Required: []string{"email"},
		},
	},
	ToolSubscriptionStatus: {
		Name:        ToolSubscriptionStatus,
		Description: "Get the most recent subscription of a user by user_id, or by email when user_id is unknown.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"user_id": {Type: jsonschema.String, Description: "User id, e.g. u_1001."},
				"email":   {Type: jsonschema.String, Description: "Account email, used when user_id is empty."},
			},
		},
	},
	ToolReservationLookup: {
		Name:        ToolReservationLookup,
		Description: "List a user's most recent reservations, newest first.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"user_id": {Type: jsonschema.String, Description: "User id, e.g. u_1001."},
				"limit":   {Type: jsonschema.Integer, Description: "Maximum reservations to return, 1 to 50. Defaults to 5."},
			},
			Required: []string{"user_id"},
		},
	},
	ToolRetrieveKnowledge: {
		Name:        ToolRetrieveKnowledge,
		Description: "Search CultPass help articles. Returns the best matching articles with a relevance score.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {Type: jsonschema.String, Description: "Free-text search query."},
				"k":     {Type: jsonschema.Integer, Description: "Number of articles, 1 to 10. Defaults to 4."},
			},
			Required: []string{"query"},
		},
	},
}

// Definitions returns the tool definitions for names, in order.
func Definitions(names []string) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, n := range names {
		if d, ok := toolDefinitions[n]; ok {
			defs = append(defs, d)
		}
	}
	return defs
}

// Toolbox executes tool calls against the gateway.
type Toolbox struct {
	lookups Lookups
}

// NewToolbox creates a Toolbox over lookups.
func NewToolbox(lookups Lookups) *Toolbox {
	return &Toolbox{lookups: lookups}
}

// Execute runs the named tool with raw JSON arguments and returns the JSON
// result and its ok flag. allowed restricts which tools may run; a name outside it is
// reported as unknown_tool. Failures are returned as result documents, never
// as errors, so the model can react to them.
func (tb *Toolbox) Execute(ctx context.Context, allowed []string, name, args string) (string, bool) {
	if !contains(allowed, name) {
		return encode(toolFailure(errUnknownTool, map[string]any{"tool": name})), false
	}
	if args == "" {
		args = "{}"
	}

	switch name {
	case ToolAccountLookup:
		var in struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return badArguments(name, err), false
		}
		r := tb.lookups.AccountLookup(ctx, in.Email)
		return encode(r), r.OK
	case ToolSubscriptionStatus:
		var in struct {
			UserID string `json:"user_id"`
			Email  string `json:"email"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return badArguments(name, err), false
		}
		r := tb.lookups.SubscriptionStatus(ctx, in.UserID, in.Email)
		return encode(r), r.OK
	case ToolReservationLookup:
		var in struct {
			UserID string `json:"user_id"`
			Limit  int    `json:"limit"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return badArguments(name, err), false
		}
		r := tb.lookups.ReservationLookup(ctx, in.UserID, in.Limit)
		return encode(r), r.OK
	case ToolRetrieveKnowledge:
		var in struct {
			Query string `json:"query"`
			K     int    `json:"k"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return badArguments(name, err), false
		}
		r := tb.lookups.RetrieveKnowledge(ctx, in.Query, in.K)
		return encode(r), r.OK
	}
	return encode(toolFailure(errUnknownTool, map[string]any{"tool": name})), false
}

func toolFailure(code string, details map[string]any) gateway.Result {
	return gateway.Result{OK: false, Error: code, Details: details}
}

func badArguments(tool string, err error) string {
	return encode(toolFailure(errInvalidArguments, map[string]any{"tool": tool, "reason": err.Error()}))
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"ok":false,"error":"encode_failed","details":{"reason":%q}}`, err.Error())
	}
	return string(b)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
