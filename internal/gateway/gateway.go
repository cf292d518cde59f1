// Package gateway answers read-only lookups against the customer store and
// the knowledge corpus. Every operation returns a structured result; expected
// failures never surface as Go errors.
package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ziadkadry99/udahub/internal/db"
	"github.com/ziadkadry99/udahub/internal/knowledge"
)

const (
	defaultReservationLimit = 5
	maxReservationLimit     = 50
	defaultKnowledgeK       = 4
	maxKnowledgeK           = 10
)

// activeStatuses are subscription statuses that count as active.
var activeStatuses = map[string]bool{
	"active": true,
	"trial":  true,
	"paid":   true,
}

// Gateway runs the lookup operations.
type Gateway struct {
	storePath string
	handles   *HandleCache
	retriever knowledge.Retriever
}

// New creates a Gateway reading the store at storePath. handles may be shared
// between gateways; nil creates a private cache. retriever may be nil, in
// which case RetrieveKnowledge reports retrieval_failed.
func New(storePath string, retriever knowledge.Retriever, handles *HandleCache) (*Gateway, error) {
	if handles == nil {
		var err error
		handles, err = NewHandleCache(DefaultHandleCacheSize)
		if err != nil {
			return nil, err
		}
	}
	return &Gateway{storePath: storePath, handles: handles, retriever: retriever}, nil
}

// StorePath returns the configured store location.
func (g *Gateway) StorePath() string {
	return g.storePath
}

// Close releases cached store handles.
func (g *Gateway) Close() {
	g.handles.Close()
}

// open returns a handle for the store, or a store_unavailable result.
func (g *Gateway) open() (*db.DB, *Result) {
	if _, err := os.Stat(g.storePath); err != nil {
		g.handles.Forget(g.storePath)
		r := failure(ErrStoreUnavailable, map[string]any{"expected_path": g.storePath})
		return nil, &r
	}
	d, err := g.handles.Get(g.storePath)
	if err != nil {
		r := failure(ErrStoreUnavailable, map[string]any{"expected_path": g.storePath, "reason": err.Error()})
		return nil, &r
	}
	return d, nil
}

func queryFailed(op string, err error) Result {
	return failure(ErrQueryFailed, map[string]any{"operation": op, "reason": err.Error()})
}

// AccountLookup finds a user by email, case-insensitively.
func (g *Gateway) AccountLookup(ctx context.Context, email string) AccountResult {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return AccountResult{Result: failure(ErrInvalidEmail, map[string]any{"email": email})}
	}

	d, fail := g.open()
	if fail != nil {
		return AccountResult{Result: *fail}
	}

	var (
		userID                string
		fullName, storedEmail sql.NullString
		blocked               sql.NullBool
	)
	err := d.QueryRowContext(ctx,
		`SELECT user_id, full_name, email, is_blocked
		 FROM users
		 WHERE lower(email) = lower(?)
		 LIMIT 1`, email,
	).Scan(&userID, &fullName, &storedEmail, &blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return AccountResult{Result: success(), Found: false}
	}
	if err != nil {
		return AccountResult{Result: queryFailed("account_lookup", err)}
	}

	isBlocked := blocked.Valid && blocked.Bool
	return AccountResult{
		Result:    success(),
		Found:     true,
		UserID:    userID,
		FullName:  fullName.String,
		Email:     storedEmail.String,
		IsBlocked: &isBlocked,
	}
}

// SubscriptionStatus reports the most recent subscription of a user. A blank
// userID is resolved through AccountLookup(email); if that fails or finds no
// one, the result is ok with found=false.
func (g *Gateway) SubscriptionStatus(ctx context.Context, userID, email string) SubscriptionResult {
	userID = strings.TrimSpace(userID)
	email = strings.TrimSpace(email)
	if userID == "" && email == "" {
		return SubscriptionResult{Result: failure(ErrMissingIdentifier, map[string]any{"required": "user_id or email"})}
	}

	d, fail := g.open()
	if fail != nil {
		return SubscriptionResult{Result: *fail}
	}

	if userID == "" {
		acc := g.AccountLookup(ctx, email)
		if !acc.OK || !acc.Found {
			return SubscriptionResult{Result: success(), Found: false}
		}
		userID = acc.UserID
	}

	var (
		rowUser               string
		plan, status, renewal sql.NullString
	)
	err := d.QueryRowContext(ctx,
		`SELECT user_id, plan, status, renewal_date
		 FROM subscriptions
		 WHERE user_id = ?
		 ORDER BY renewal_date DESC
		 LIMIT 1`, userID,
	).Scan(&rowUser, &plan, &status, &renewal)
	if errors.Is(err, sql.ErrNoRows) {
		return SubscriptionResult{Result: success(), Found: false, UserID: userID}
	}
	if err != nil {
		return SubscriptionResult{Result: queryFailed("subscription_status", err)}
	}

	return SubscriptionResult{
		Result:             success(),
		Found:              true,
		UserID:             rowUser,
		ActiveSubscription: activeStatuses[strings.ToLower(status.String)],
		Plan:               plan.String,
		Status:             status.String,
		RenewalDate:        renewal.String,
	}
}

// ReservationLookup lists a user's most recent reservations. limit 0 means
// the default of 5; other values are clamped to [1, 50].
func (g *Gateway) ReservationLookup(ctx context.Context, userID string, limit int) ReservationResult {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ReservationResult{Result: failure(ErrMissingIdentifier, map[string]any{"required": "user_id"})}
	}
	limit = clamp(limit, defaultReservationLimit, 1, maxReservationLimit)

	d, fail := g.open()
	if fail != nil {
		return ReservationResult{Result: *fail}
	}

	rows, err := d.QueryContext(ctx,
		`SELECT reservation_id, experience_id, status, reserved_at
		 FROM reservations
		 WHERE user_id = ?
		 ORDER BY reserved_at DESC, reservation_id DESC
		 LIMIT ?`, userID, limit,
	)
	if err != nil {
		return ReservationResult{Result: queryFailed("reservation_lookup", err)}
	}
	defer rows.Close()

	reservations := []Reservation{}
	for rows.Next() {
		var (
			r                              Reservation
			experience, status, reservedAt sql.NullString
		)
		if err := rows.Scan(&r.ReservationID, &experience, &status, &reservedAt); err != nil {
			return ReservationResult{Result: queryFailed("reservation_lookup", err)}
		}
		// Nullable columns read as empty strings.
		r.ExperienceID = experience.String
		r.Status = status.String
		r.ReservedAt = reservedAt.String
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return ReservationResult{Result: queryFailed("reservation_lookup", err)}
	}

	return ReservationResult{Result: success(), UserID: userID, Reservations: reservations}
}

// RetrieveKnowledge returns up to k articles for query. k 0 means the
// default of 4; other values are clamped to [1, 10].
func (g *Gateway) RetrieveKnowledge(ctx context.Context, query string, k int) KnowledgeResult {
	k = clamp(k, defaultKnowledgeK, 1, maxKnowledgeK)

	if g.retriever == nil {
		return KnowledgeResult{
			Result: failure(ErrRetrievalFailed, map[string]any{"reason": "no knowledge corpus configured"}),
			Query:  query,
			Hits:   []knowledge.Hit{},
		}
	}

	hits, err := g.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return KnowledgeResult{
			Result: failure(ErrRetrievalFailed, map[string]any{"reason": err.Error()}),
			Query:  query,
			Hits:   []knowledge.Hit{},
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	if hits == nil {
		hits = []knowledge.Hit{}
	}

	return KnowledgeResult{Result: success(), Query: query, Hits: hits}
}

func clamp(v, def, lo, hi int) int {
	if v == 0 {
		v = def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// String describes the gateway for logs.
func (g *Gateway) String() string {
	name := "none"
	if g.retriever != nil {
		name = g.retriever.Name()
	}
	return fmt.Sprintf("gateway(store=%s, knowledge=%s)", g.storePath, name)
}
