package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/udahub/internal/pipeline"
)

// streamMessage is the outgoing WebSocket message format.
type streamMessage struct {
	Type     string             `json:"type"` // "stage", "result" or "error"
	ThreadID string             `json:"thread_id,omitempty"`
	Entry    *pipeline.LogEntry `json:"entry,omitempty"`
	Result   *ticketResponse    `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// handleStream runs one ticket per incoming message and streams each stage
// log entry before the final result.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req ticketRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			send(conn, streamMessage{Type: "error", Error: "invalid_request", Message: "invalid message format"})
			continue
		}
		if strings.TrimSpace(req.TicketText) == "" {
			send(conn, streamMessage{Type: "error", ThreadID: req.ThreadID, Error: "invalid_request", Message: "ticket_text is required"})
			continue
		}

		observe := func(threadID string, entry pipeline.LogEntry) {
			send(conn, streamMessage{Type: "stage", ThreadID: threadID, Entry: &entry})
		}
		res, err := s.runner.RunTicket(r.Context(), pipeline.Ticket{Text: req.TicketText, Metadata: req.Metadata}, req.ThreadID, observe)
		if err != nil {
			_, code := classify(err)
			send(conn, streamMessage{Type: "error", ThreadID: req.ThreadID, Error: code, Message: err.Error()})
			continue
		}

		resp := newTicketResponse(res)
		send(conn, streamMessage{Type: "result", ThreadID: res.ThreadID, Result: &resp})
	}
}

func send(conn *websocket.Conn, msg streamMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}
