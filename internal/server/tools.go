package server

import (
	"net/http"
	"strconv"
)

// Gateway results are returned with status 200 even when ok is false;
// failures are data for the caller to inspect.

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lookups.AccountLookup(r.Context(), r.URL.Query().Get("email")))
}

func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.lookups.SubscriptionStatus(r.Context(), q.Get("user_id"), q.Get("email")))
}

func (s *Server) handleReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := intParam(w, q.Get("limit"), "limit")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.lookups.ReservationLookup(r.Context(), q.Get("user_id"), limit))
}

func (s *Server) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	k, ok := intParam(w, q.Get("k"), "k")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.lookups.RetrieveKnowledge(r.Context(), q.Get("q"), k))
}

// intParam parses an optional integer query parameter; empty means 0.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", name+" must be an integer")
		return 0, false
	}
	return n, true
}
