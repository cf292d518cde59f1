package gateway

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/ziadkadry99/udahub/internal/db"
	"github.com/ziadkadry99/udahub/internal/knowledge"
	"github.com/ziadkadry99/udahub/internal/seed"
)

// stubRetriever returns canned hits or an error.
type stubRetriever struct {
	hits []knowledge.Hit
	err  error
}

func (s stubRetriever) Name() string { return "stub" }

func (s stubRetriever) Retrieve(ctx context.Context, query string, k int) ([]knowledge.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func newSeededGateway(t *testing.T, r knowledge.Retriever) *Gateway {
	t.Helper()
	path := filepath.Join(t.TempDir(), "udahub.db")
	if err := seed.CreateStore(path, false); err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	g, err := New(path, r, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

func newMissingGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := New(filepath.Join(t.TempDir(), "missing.db"), nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

func TestAccountLookupInvalidEmail(t *testing.T) {
	g := newSeededGateway(t, nil)
	res := g.AccountLookup(context.Background(), "not-an-email")
	if res.OK || res.Error != ErrInvalidEmail {
		t.Fatalf("expected invalid_email, got %+v", res)
	}
	if res.Details["email"] != "not-an-email" {
		t.Errorf("expected email in details, got %v", res.Details)
	}
}

func TestAccountLookupFound(t *testing.T) {
	g := newSeededGateway(t, nil)
	res := g.AccountLookup(context.Background(), "  ANA.SOUZA@example.com ")
	if !res.OK || !res.Found {
		t.Fatalf("expected found account, got %+v", res)
	}
	if res.UserID != "u_1001" || res.FullName != "Ana Souza" {
		t.Errorf("unexpected account %+v", res)
	}
	if res.IsBlocked == nil || *res.IsBlocked {
		t.Errorf("expected is_blocked=false, got %v", res.IsBlocked)
	}

	blocked := g.AccountLookup(context.Background(), "bruno.lima@example.com")
	if blocked.IsBlocked == nil || !*blocked.IsBlocked {
		t.Errorf("expected is_blocked=true, got %v", blocked.IsBlocked)
	}
}

// newLooseGateway builds a store whose tables allow NULL in every column,
// as stores exported by other tools sometimes do.
func newLooseGateway(t *testing.T) *Gateway {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loose.db")
	d, err := db.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	stmts := []string{
		`CREATE TABLE users (user_id TEXT, full_name TEXT, email TEXT, is_blocked INTEGER)`,
		`CREATE TABLE subscriptions (subscription_id TEXT, user_id TEXT, plan TEXT, status TEXT, renewal_date TEXT)`,
		`CREATE TABLE reservations (reservation_id TEXT, user_id TEXT, experience_id TEXT, status TEXT, reserved_at TEXT)`,
		`INSERT INTO users VALUES ('u1', NULL, 'a@x.com', 0)`,
		`INSERT INTO subscriptions VALUES ('s1', 'u1', NULL, NULL, NULL)`,
		`INSERT INTO reservations VALUES ('r1', 'u1', NULL, NULL, NULL)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	d.Close()

	g, err := New(path, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

func TestLookupsTolerateNullColumns(t *testing.T) {
	g := newLooseGateway(t)
	ctx := context.Background()

	acct := g.AccountLookup(ctx, "a@x.com")
	if !acct.OK || !acct.Found || acct.UserID != "u1" || acct.FullName != "" {
		t.Errorf("account with NULL full_name: got %+v", acct)
	}

	sub := g.SubscriptionStatus(ctx, "u1", "")
	if !sub.OK || !sub.Found || sub.ActiveSubscription || sub.Status != "" {
		t.Errorf("subscription with NULL status: got %+v", sub)
	}

	res := g.ReservationLookup(ctx, "u1", 5)
	if !res.OK || len(res.Reservations) != 1 {
		t.Fatalf("reservation with NULL columns: got %+v", res)
	}
	if r := res.Reservations[0]; r.ReservationID != "r1" || r.ExperienceID != "" || r.Status != "" {
		t.Errorf("unexpected reservation %+v", r)
	}
}

func TestAccountLookupNotFound(t *testing.T) {
	g := newSeededGateway(t, nil)
	res := g.AccountLookup(context.Background(), "nobody@example.com")
	if !res.OK || res.Found {
		t.Fatalf("expected ok with found=false, got %+v", res)
	}
	if res.IsBlocked != nil || res.UserID != "" {
		t.Errorf("expected empty fields, got %+v", res)
	}
}

func TestMissingStore(t *testing.T) {
	g := newMissingGateway(t)
	ctx := context.Background()

	acc := g.AccountLookup(ctx, "ana.souza@example.com")
	if acc.OK || acc.Error != ErrStoreUnavailable {
		t.Errorf("account: expected store_unavailable, got %+v", acc)
	}
	if acc.Details["expected_path"] != g.StorePath() {
		t.Errorf("expected expected_path detail, got %v", acc.Details)
	}

	sub := g.SubscriptionStatus(ctx, "u_1001", "")
	if sub.OK || sub.Error != ErrStoreUnavailable {
		t.Errorf("subscription: expected store_unavailable, got %+v", sub)
	}

	res := g.ReservationLookup(ctx, "u_1001", 5)
	if res.OK || res.Error != ErrStoreUnavailable {
		t.Errorf("reservations: expected store_unavailable, got %+v", res)
	}
}

func TestSubscriptionStatusMissingIdentifiers(t *testing.T) {
	// Identifiers are checked before the store, so a missing store still
	// reports missing_identifier.
	for _, g := range []*Gateway{newSeededGateway(t, nil), newMissingGateway(t)} {
		res := g.SubscriptionStatus(context.Background(), "  ", "")
		if res.OK || res.Error != ErrMissingIdentifier {
			t.Errorf("expected missing_identifier, got %+v", res)
		}
	}
}

func TestSubscriptionStatusLatestActive(t *testing.T) {
	g := newSeededGateway(t, nil)
	res := g.SubscriptionStatus(context.Background(), "u_1001", "")
	if !res.OK || !res.Found {
		t.Fatalf("expected found subscription, got %+v", res)
	}
	if res.Plan != "premium" || !res.ActiveSubscription || res.RenewalDate != "2026-11-01" {
		t.Errorf("expected latest premium active row, got %+v", res)
	}
}

func TestSubscriptionStatusViaEmail(t *testing.T) {
	g := newSeededGateway(t, nil)
	ctx := context.Background()

	res := g.SubscriptionStatus(ctx, "", "carla.diaz@example.com")
	if !res.Found || res.UserID != "u_1003" {
		t.Fatalf("expected u_1003 via email, got %+v", res)
	}
	if !res.ActiveSubscription {
		t.Errorf("expected status 'Trial' to count as active, got %+v", res)
	}

	cancelled := g.SubscriptionStatus(ctx, "", "bruno.lima@example.com")
	if !cancelled.Found || cancelled.ActiveSubscription {
		t.Errorf("expected inactive cancelled subscription, got %+v", cancelled)
	}

	unknown := g.SubscriptionStatus(ctx, "", "nobody@example.com")
	if !unknown.OK || unknown.Found {
		t.Errorf("expected ok with found=false, got %+v", unknown)
	}

	invalid := g.SubscriptionStatus(ctx, "", "not-an-email")
	if !invalid.OK || invalid.Found {
		t.Errorf("expected a failed account lookup to yield found=false, got %+v", invalid)
	}
}

func TestSubscriptionStatusUnknownUser(t *testing.T) {
	g := newSeededGateway(t, nil)
	res := g.SubscriptionStatus(context.Background(), "u_9999", "")
	if !res.OK || res.Found || res.UserID != "u_9999" {
		t.Errorf("expected found=false for u_9999, got %+v", res)
	}
}

func TestReservationLookup(t *testing.T) {
	g := newSeededGateway(t, nil)
	ctx := context.Background()

	if res := g.ReservationLookup(ctx, "", 5); res.OK || res.Error != ErrMissingIdentifier {
		t.Errorf("expected missing_identifier, got %+v", res)
	}

	res := g.ReservationLookup(ctx, "u_1001", 0)
	if !res.OK || len(res.Reservations) != 3 {
		t.Fatalf("expected 3 reservations, got %+v", res)
	}
	// Equal reserved_at values are ordered by reservation_id descending.
	got := []string{res.Reservations[0].ReservationID, res.Reservations[1].ReservationID, res.Reservations[2].ReservationID}
	want := []string{"r_503", "r_502", "r_501"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order: got %v, want %v", got, want)
	}

	limited := g.ReservationLookup(ctx, "u_1001", 1)
	if len(limited.Reservations) != 1 {
		t.Errorf("expected 1 reservation, got %d", len(limited.Reservations))
	}

	none := g.ReservationLookup(ctx, "u_1003", 5)
	if !none.OK || none.Reservations == nil || len(none.Reservations) != 0 {
		t.Errorf("expected empty non-nil reservations, got %+v", none)
	}
}

func TestReservationLookupIdempotent(t *testing.T) {
	g := newSeededGateway(t, nil)
	ctx := context.Background()

	first := g.ReservationLookup(ctx, "u_1001", 5)
	second := g.ReservationLookup(ctx, "u_1001", 5)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated lookups differ:\n%+v\n%+v", first, second)
	}
}

func TestReservationLookupConcurrent(t *testing.T) {
	g := newSeededGateway(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := g.ReservationLookup(ctx, "u_1001", 5); !res.OK || len(res.Reservations) != 3 {
				errs <- res.Error
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("concurrent lookup failed: %q", e)
	}
	if g.handles.Len() != 1 {
		t.Errorf("expected a single cached handle, got %d", g.handles.Len())
	}
}

func TestClamp(t *testing.T) {
	tests := []struct{ v, want int }{
		{0, 5}, {-3, 1}, {1, 1}, {7, 7}, {50, 50}, {51, 50}, {1000, 50},
	}
	for _, tt := range tests {
		if got := clamp(tt.v, 5, 1, 50); got != tt.want {
			t.Errorf("clamp(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestRetrieveKnowledge(t *testing.T) {
	r := stubRetriever{hits: []knowledge.Hit{
		{Title: "b", Score: 0.2},
		{Title: "a", Score: 0.9},
		{Title: "c", Score: 0.5},
	}}
	g := newSeededGateway(t, r)

	res := g.RetrieveKnowledge(context.Background(), "refund", 2)
	if !res.OK || res.Query != "refund" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Hits) != 2 || res.Hits[0].Title != "a" || res.Hits[1].Title != "c" {
		t.Errorf("expected top-2 by score [a c], got %+v", res.Hits)
	}
}

func TestRetrieveKnowledgeFailures(t *testing.T) {
	g := newSeededGateway(t, stubRetriever{err: errors.New("index closed")})
	res := g.RetrieveKnowledge(context.Background(), "refund", 4)
	if res.OK || res.Error != ErrRetrievalFailed || res.Hits == nil {
		t.Errorf("expected retrieval_failed with empty hits, got %+v", res)
	}

	none := newSeededGateway(t, nil).RetrieveKnowledge(context.Background(), "refund", 4)
	if none.OK || none.Error != ErrRetrievalFailed {
		t.Errorf("expected retrieval_failed without retriever, got %+v", none)
	}
}

func TestHandleCacheEvictsAndCloses(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewHandleCache(2)
	if err != nil {
		t.Fatalf("NewHandleCache failed: %v", err)
	}
	defer cache.Close()

	var paths []string
	for _, name := range []string{"a.db", "b.db", "c.db"} {
		p := filepath.Join(dir, name)
		if err := seed.CreateStore(p, false); err != nil {
			t.Fatalf("CreateStore failed: %v", err)
		}
		paths = append(paths, p)
	}

	first, err := cache.Get(paths[0])
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	again, _ := cache.Get(paths[0])
	if first != again {
		t.Error("expected the same handle for the same path")
	}

	cache.Get(paths[1])
	cache.Get(paths[2])
	if cache.Len() != 2 {
		t.Errorf("expected 2 handles, got %d", cache.Len())
	}
	if err := first.Ping(); err == nil {
		t.Error("expected evicted handle to be closed")
	}
}
