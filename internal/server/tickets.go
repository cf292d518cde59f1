package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/udahub/internal/checkpoint"
	"github.com/ziadkadry99/udahub/internal/pipeline"
	"github.com/ziadkadry99/udahub/internal/render"
)

type ticketRequest struct {
	TicketText string         `json:"ticket_text"`
	ThreadID   string         `json:"thread_id"`
	Metadata   map[string]any `json:"metadata"`
}

type ticketResponse struct {
	*pipeline.Result
	FinalResponseHTML string `json:"final_response_html"`
}

func newTicketResponse(res *pipeline.Result) ticketResponse {
	html, err := render.HTML(res.FinalResponse)
	if err != nil {
		log.Printf("server: rendering reply for thread %s: %v", res.ThreadID, err)
	}
	return ticketResponse{Result: res, FinalResponseHTML: html}
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.TicketText) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket_text is required")
		return
	}

	res, err := s.runner.RunTicket(r.Context(), pipeline.Ticket{Text: req.TicketText, Metadata: req.Metadata}, req.ThreadID)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newTicketResponse(res))
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	if s.checkpoints == nil {
		writeError(w, http.StatusNotFound, "not_found", "checkpointing is disabled")
		return
	}

	cp, err := s.checkpoints.Latest(r.Context(), threadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "no checkpoint for thread "+threadID)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) handleThreadHistory(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	if s.checkpoints == nil {
		writeJSON(w, http.StatusOK, []checkpoint.Checkpoint{})
		return
	}

	history, err := s.checkpoints.History(r.Context(), threadID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if history == nil {
		history = []checkpoint.Checkpoint{}
	}
	writeJSON(w, http.StatusOK, history)
}
