package gateway

import "github.com/ziadkadry99/udahub/internal/knowledge"

// Failure codes carried in Result.Error.
const (
	ErrInvalidEmail      = "invalid_email"
	ErrStoreUnavailable  = "store_unavailable"
	ErrMissingIdentifier = "missing_identifier"
	ErrQueryFailed       = "query_failed"
	ErrRetrievalFailed   = "retrieval_failed"
)

// Result is the envelope shared by every operation. Expected failures are
// reported here with OK=false rather than as Go errors.
type Result struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func success() Result {
	return Result{OK: true}
}

func failure(code string, details map[string]any) Result {
	return Result{OK: false, Error: code, Details: details}
}

// AccountResult is returned by AccountLookup.
type AccountResult struct {
	Result
	Found     bool   `json:"found"`
	UserID    string `json:"user_id,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Email     string `json:"email,omitempty"`
	IsBlocked *bool  `json:"is_blocked,omitempty"`
}

// SubscriptionResult is returned by SubscriptionStatus.
type SubscriptionResult struct {
	Result
	Found              bool   `json:"found"`
	UserID             string `json:"user_id,omitempty"`
	ActiveSubscription bool   `json:"active_subscription"`
	Plan               string `json:"plan,omitempty"`
	Status             string `json:"status,omitempty"`
	RenewalDate        string `json:"renewal_date,omitempty"`
}

// Reservation is one row of the reservations table.
type Reservation struct {
	ReservationID string `json:"reservation_id"`
	ExperienceID  string `json:"experience_id"`
	Status        string `json:"status"`
	ReservedAt    string `json:"reserved_at"`
}

// ReservationResult is returned by ReservationLookup.
type ReservationResult struct {
	Result
	UserID       string        `json:"user_id,omitempty"`
	Reservations []Reservation `json:"reservations"`
}

// KnowledgeResult is returned by RetrieveKnowledge.
type KnowledgeResult struct {
	Result
	Query string          `json:"query"`
	Hits  []knowledge.Hit `json:"hits"`
}
