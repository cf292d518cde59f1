// Package seed writes a small demo customer store and knowledge corpus so
// that the pipeline can be exercised without production data.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ziadkadry99/udahub/internal/db"
)

type user struct {
	ID, Name, Email string
	Blocked         bool
}

type subscription struct {
	ID, UserID, Plan, Status, Renewal string
}

type reservation struct {
	ID, UserID, ExperienceID, Status, ReservedAt string
}

var users = []user{
	{ID: "u_1001", Name: "Ana Souza", Email: "ana.souza@example.com"},
	{ID: "u_1002", Name: "Bruno Lima", Email: "bruno.lima@example.com", Blocked: true},
	{ID: "u_1003", Name: "Carla Diaz", Email: "Carla.Diaz@example.com"},
}

var subscriptions = []subscription{
	{ID: "s_1", UserID: "u_1001", Plan: "basic", Status: "expired", Renewal: "2025-09-01"},
	{ID: "s_2", UserID: "u_1001", Plan: "premium", Status: "active", Renewal: "2026-11-01"},
	{ID: "s_3", UserID: "u_1002", Plan: "basic", Status: "cancelled", Renewal: "2026-03-15"},
	{ID: "s_4", UserID: "u_1003", Plan: "premium", Status: "Trial", Renewal: "2026-10-30"},
}

var reservations = []reservation{
	{ID: "r_501", UserID: "u_1001", ExperienceID: "exp_jazz_night", Status: "confirmed", ReservedAt: "2026-10-02T19:00:00Z"},
	{ID: "r_502", UserID: "u_1001", ExperienceID: "exp_museum_tour", Status: "confirmed", ReservedAt: "2026-10-05T10:00:00Z"},
	{ID: "r_503", UserID: "u_1001", ExperienceID: "exp_cooking_class", Status: "cancelled", ReservedAt: "2026-10-05T10:00:00Z"},
	{ID: "r_504", UserID: "u_1002", ExperienceID: "exp_yoga_park", Status: "no_show", ReservedAt: "2026-09-20T08:00:00Z"},
}

// Articles is the demo knowledge corpus.
var Articles = []map[string]any{
	{"title": "Duplicate charges", "tags": []string{"billing", "refund"},
		"content": "If you see the same charge twice, the second one is usually a pending authorization that drops off within 3 business days. If both charges settle, billing refunds the duplicate to the original payment method within 5 to 10 business days."},
	{"title": "Refund policy", "tags": "billing, refund",
		"content": "Subscription fees are refundable within 14 days of a renewal when no experiences were booked in that period. Refunds cannot be promised by support agents; they are reviewed by the billing team."},
	{"title": "Reservation QR code not showing", "tags": []string{"reservation", "qr", "app"},
		"content": "QR codes appear in the Reservations tab 24 hours before the experience. If the code is missing, update the app, sign out and sign back in, and check that the reservation status is confirmed."},
	{"title": "Cancel or pause a subscription", "tags": []string{"account", "billing"},
		"content": "Members can cancel or pause their plan from Account > Subscription. Cancellation takes effect at the end of the current billing period."},
	{"title": "Blocked or suspended accounts", "tags": []string{"account"},
		"content": "Accounts are blocked after repeated no-shows or payment failures. Blocked members cannot book experiences. Support cannot unblock accounts directly; prepare a handoff for the trust and safety team."},
	{"title": "App crashes on launch", "tags": []string{"technical", "app"},
		"content": "Ask for device model, OS version, app version and the exact error text. Clearing the app cache and reinstalling resolves most launch crashes. Reproducible crashes are escalated to engineering."},
	{"title": "Changing a reservation", "tags": []string{"reservation"},
		"content": "Reservations can be moved to another date up to 12 hours before the start time, subject to availability. Late changes count as a cancellation."},
	{"title": "Updating the payment method", "tags": []string{"billing", "account"},
		"content": "Payment methods are managed in Account > Payment. A failed renewal is retried automatically after the card is updated."},
}

// Options controls where demo data is written.
type Options struct {
	StorePath  string
	CorpusPath string
	// Force overwrites existing files.
	Force bool
}

// Run writes the demo store and corpus.
func Run(opts Options) error {
	if opts.StorePath != "" {
		if err := CreateStore(opts.StorePath, opts.Force); err != nil {
			return err
		}
	}
	if opts.CorpusPath != "" {
		if err := WriteCorpus(opts.CorpusPath, opts.Force); err != nil {
			return err
		}
	}
	return nil
}

func checkTarget(path string, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}

// CreateStore builds a customer SQLite store at path populated with demo rows.
func CreateStore(path string, force bool) error {
	if err := checkTarget(path, force); err != nil {
		return err
	}

	d, err := db.Create(path)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.ApplyCustomerSchema(); err != nil {
		return fmt.Errorf("creating customer tables: %w", err)
	}

	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, u := range users {
		blocked := 0
		if u.Blocked {
			blocked = 1
		}
		if _, err := tx.Exec(`INSERT INTO users (user_id, full_name, email, is_blocked) VALUES (?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, blocked); err != nil {
			return fmt.Errorf("inserting user %s: %w", u.ID, err)
		}
	}
	for _, s := range subscriptions {
		if _, err := tx.Exec(`INSERT INTO subscriptions (subscription_id, user_id, plan, status, renewal_date) VALUES (?, ?, ?, ?, ?)`,
			s.ID, s.UserID, s.Plan, s.Status, s.Renewal); err != nil {
			return fmt.Errorf("inserting subscription %s: %w", s.ID, err)
		}
	}
	for _, r := range reservations {
		if _, err := tx.Exec(`INSERT INTO reservations (reservation_id, user_id, experience_id, status, reserved_at) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.UserID, r.ExperienceID, r.Status, r.ReservedAt); err != nil {
			return fmt.Errorf("inserting reservation %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed data: %w", err)
	}
	return nil
}

// WriteCorpus writes the demo articles as JSONL.
func WriteCorpus(path string, force bool) error {
	if err := checkTarget(path, force); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating corpus directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, a := range Articles {
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("writing article: %w", err)
		}
	}
	return f.Close()
}
