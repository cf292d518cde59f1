package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/ziadkadry99/udahub/internal/specialist"
	"github.com/ziadkadry99/udahub/internal/triage"
)

// Stage is a position in the linear pipeline.
type Stage string

const (
	StageStart          Stage = "start"
	StageClassified     Stage = "classified"
	StageRouted         Stage = "routed"
	StageSpecialistDone Stage = "specialist_done"
)

var stageOrder = map[Stage]int{
	StageStart:          0,
	StageClassified:     1,
	StageRouted:         2,
	StageSpecialistDone: 3,
}

// reached reports whether s is at or past target.
func (s Stage) reached(target Stage) bool {
	return stageOrder[s] >= stageOrder[target]
}

// Log entry stage names.
const (
	LogClassify   = "classify"
	LogRoute      = "route"
	LogSpecialist = "specialist"
)

// LogEntry records what one stage produced.
type LogEntry struct {
	Stage   string         `json:"stage"`
	Summary map[string]any `json:"summary"`
	At      time.Time      `json:"at"`
}

// String renders the entry as "stage: k=v ..." with keys sorted.
func (e LogEntry) String() string {
	keys := slices.Sorted(maps.Keys(e.Summary))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Summary[k]))
	}
	return e.Stage + ": " + strings.Join(parts, " ")
}

// Ticket is an inbound support request.
type Ticket struct {
	Text     string         `json:"ticket_text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// State is threaded through the pipeline. Stages never mutate a State; each
// returns a new value with one more field set and one more log entry.
type State struct {
	TicketText     string                       `json:"ticket_text"`
	Metadata       map[string]any               `json:"metadata,omitempty"`
	Stage          Stage                        `json:"stage"`
	Classification *triage.TicketClassification `json:"classification,omitempty"`
	Routing        *triage.RoutingDecision      `json:"routing,omitempty"`
	FinalResponse  *string                      `json:"final_response,omitempty"`
	Outcome        *specialist.Outcome          `json:"outcome,omitempty"`
	Logs           []LogEntry                   `json:"logs"`
}

// NewState creates the start state for a ticket.
func NewState(t Ticket) State {
	return State{
		TicketText: t.Text,
		Metadata:   maps.Clone(t.Metadata),
		Stage:      StageStart,
		Logs:       []LogEntry{},
	}
}

// advance returns a copy of s at stage with entry appended. The logs slice
// is cloned so earlier states keep their own history.
func (s State) advance(stage Stage, entry LogEntry) State {
	next := s
	next.Stage = stage
	next.Logs = make([]LogEntry, len(s.Logs), len(s.Logs)+1)
	copy(next.Logs, s.Logs)
	next.Logs = append(next.Logs, entry)
	return next
}

func (s State) withClassification(c triage.TicketClassification, at time.Time) State {
	next := s.advance(StageClassified, LogEntry{Stage: LogClassify, Summary: c.Summary(), At: at})
	next.Classification = &c
	return next
}

func (s State) withRouting(d triage.RoutingDecision, at time.Time) State {
	next := s.advance(StageRouted, LogEntry{Stage: LogRoute, Summary: d.Summary(), At: at})
	next.Routing = &d
	return next
}

func (s State) withOutcome(o specialist.Outcome, at time.Time) State {
	next := s.advance(StageSpecialistDone, LogEntry{Stage: LogSpecialist, Summary: o.Summary(), At: at})
	reply := o.FinalResponse
	next.FinalResponse = &reply
	next.Outcome = &o
	return next
}

// Result is the terminal output of a pipeline run.
type Result struct {
	ThreadID       string                      `json:"thread_id"`
	RunID          string                      `json:"run_id"`
	Resumed        bool                        `json:"resumed,omitempty"`
	Classification triage.TicketClassification `json:"classification"`
	Routing        triage.RoutingDecision      `json:"routing"`
	FinalResponse  string                      `json:"final_response"`
	Handoff        *specialist.Handoff         `json:"handoff,omitempty"`
	Logs           []LogEntry                  `json:"logs"`
}

func resultFrom(threadID, runID string, resumed bool, s State) *Result {
	r := &Result{
		ThreadID: threadID,
		RunID:    runID,
		Resumed:  resumed,
		Logs:     s.Logs,
	}
	if s.Classification != nil {
		r.Classification = *s.Classification
	}
	if s.Routing != nil {
		r.Routing = *s.Routing
	}
	if s.FinalResponse != nil {
		r.FinalResponse = *s.FinalResponse
	}
	if s.Outcome != nil {
		r.Handoff = s.Outcome.Handoff
	}
	return r
}
