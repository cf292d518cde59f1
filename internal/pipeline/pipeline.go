// Package pipeline runs a support ticket through classify, route and
// specialist stages, checkpointing after each one.
package pipeline

import (
	"context"
	"encoding/json"
	"bytes"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/udahub/internal/checkpoint"
	"github.com/ziadkadry99/udahub/internal/events"
	"github.com/ziadkadry99/udahub/internal/specialist"
	"github.com/ziadkadry99/udahub/internal/triage"
)

// ErrStageTimeout is joined with a stage's error when the stage exceeded its
// time budget.
var ErrStageTimeout = errors.New("stage_timeout")

// DefaultStageTimeout bounds each stage when no timeout is configured.
const DefaultStageTimeout = 60 * time.Second

// Classifier produces a ticket classification.
type Classifier interface {
	Classify(ctx context.Context, ticketText string, metadata map[string]any) (triage.TicketClassification, error)
}

// Router produces a routing decision.
type Router interface {
	Route(ctx context.Context, ticketText string, c triage.TicketClassification) (triage.RoutingDecision, error)
}

// Dispatcher runs the specialist for a route.
type Dispatcher interface {
	Dispatch(ctx context.Context, route triage.Route, ticketText string, metadata map[string]any) (specialist.Outcome, error)
}

// Observer receives each log entry as it is appended.
type Observer func(threadID string, entry LogEntry)

// Options configures a Pipeline. Zero values select no checkpointing, no
// publishing and DefaultStageTimeout.
type Options struct {
	StageTimeout time.Duration
	Checkpointer checkpoint.Checkpointer
	Publisher    events.Publisher
	Observers    []Observer
}

// Pipeline sequences the triage stages. It holds no per-run state and is
// safe for concurrent runs on different threads.
type Pipeline struct {
	classifier   Classifier
	router       Router
	dispatcher   Dispatcher
	stageTimeout time.Duration
	checkpoints  checkpoint.Checkpointer
	publisher    events.Publisher
	observers    []Observer
	now          func() time.Time
}

// New creates a pipeline from its stages.
func New(classifier Classifier, router Router, dispatcher Dispatcher, opts Options) *Pipeline {
	p := &Pipeline{
		classifier:   classifier,
		router:       router,
		dispatcher:   dispatcher,
		stageTimeout: opts.StageTimeout,
		checkpoints:  opts.Checkpointer,
		publisher:    opts.Publisher,
		observers:    opts.Observers,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if p.stageTimeout <= 0 {
		p.stageTimeout = DefaultStageTimeout
	}
	if p.publisher == nil {
		p.publisher = events.Nop{}
	}
	return p
}

// Run processes ticketText without metadata.
func (p *Pipeline) Run(ctx context.Context, ticketText, threadID string) (*Result, error) {
	return p.RunTicket(ctx, Ticket{Text: ticketText}, threadID)
}

// RunTicket processes a ticket on threadID. An empty threadID gets a fresh
// one. If the thread's latest checkpoint is an unfinished run of the same
// ticket text and metadata, the run resumes after its last completed stage.
// Classification and routing failures abort the run; the caller receives the
// error and no partial result.
func (p *Pipeline) RunTicket(ctx context.Context, t Ticket, threadID string, observers ...Observer) (*Result, error) {
	if threadID == "" {
		threadID = uuid.New().String()
	}
	observers = append(append([]Observer(nil), p.observers...), observers...)

	state, runID, resumed := p.restore(ctx, threadID, t)
	if resumed {
		log.Printf("pipeline: resuming thread %s run %s at stage %s", threadID, runID, state.Stage)
	}

	r := &run{p: p, threadID: threadID, runID: runID, observers: observers}

	if !state.Stage.reached(StageClassified) {
		var c triage.TicketClassification
		err := r.stage(ctx, LogClassify, func(ctx context.Context) error {
			var err error
			c, err = p.classifier.Classify(ctx, state.TicketText, state.Metadata)
			return err
		})
		if err != nil {
			return nil, err
		}
		state = r.commit(ctx, state.withClassification(c, p.now()))
	}

	if !state.Stage.reached(StageRouted) {
		var d triage.RoutingDecision
		err := r.stage(ctx, LogRoute, func(ctx context.Context) error {
			var err error
			d, err = p.router.Route(ctx, state.TicketText, *state.Classification)
			return err
		})
		if err != nil {
			return nil, err
		}
		state = r.commit(ctx, state.withRouting(d, p.now()))
	}

	if !state.Stage.reached(StageSpecialistDone) {
		var o specialist.Outcome
		err := r.stage(ctx, LogSpecialist, func(ctx context.Context) error {
			var err error
			o, err = p.dispatcher.Dispatch(ctx, state.Routing.Route, state.TicketText, state.Metadata)
			return err
		})
		if err != nil {
			return nil, err
		}
		state = r.commit(ctx, state.withOutcome(o, p.now()))
	}

	result := resultFrom(threadID, runID, resumed, state)
	if err := p.publisher.Publish(ctx, threadID, result); err != nil {
		log.Printf("pipeline: publishing result for thread %s: %v", threadID, err)
	}
	return result, nil
}

// restore loads a resumable state for the thread, or a fresh one. Only an
// incomplete checkpoint for the same ticket text and metadata is resumed.
func (p *Pipeline) restore(ctx context.Context, threadID string, t Ticket) (State, string, bool) {
	fresh := NewState(t)
	runID := uuid.New().String()
	if p.checkpoints == nil {
		return fresh, runID, false
	}

	cp, err := p.checkpoints.Latest(ctx, threadID)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrNotFound) {
			log.Printf("pipeline: loading checkpoint for thread %s: %v", threadID, err)
		}
		return fresh, runID, false
	}
	if cp.Complete || cp.TicketText != t.Text {
		return fresh, runID, false
	}

	var state State
	if err := json.Unmarshal(cp.State, &state); err != nil {
		log.Printf("pipeline: discarding unreadable checkpoint for thread %s: %v", threadID, err)
		return fresh, runID, false
	}
	if !state.consistent() {
		log.Printf("pipeline: discarding inconsistent checkpoint for thread %s at stage %s", threadID, state.Stage)
		return fresh, runID, false
	}
	if !sameMetadata(state.Metadata, t.Metadata) {
		return fresh, runID, false
	}
	if state.Logs == nil {
		state.Logs = []LogEntry{}
	}
	return state, cp.RunID, true
}

// sameMetadata compares metadata by its JSON encoding, which is how it was
// checkpointed. nil and empty maps are equal.
func sameMetadata(a, b map[string]any) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	ea, errA := json.Marshal(a)
	eb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ea, eb)
}

// consistent reports whether every field the stage implies is present.
func (s State) consistent() bool {
	if _, ok := stageOrder[s.Stage]; !ok {
		return false
	}
	if s.Stage.reached(StageClassified) && s.Classification == nil {
		return false
	}
	if s.Stage.reached(StageRouted) && s.Routing == nil {
		return false
	}
	return !s.Stage.reached(StageSpecialistDone)
}

// run carries the identity of one pipeline invocation.
type run struct {
	p         *Pipeline
	threadID  string
	runID     string
	observers []Observer
}

// stage runs fn under the per-stage timeout.
func (r *run) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	sctx, cancel := context.WithTimeout(ctx, r.p.stageTimeout)
	defer cancel()

	err := fn(sctx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(sctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s stage after %s: %w", name, r.p.stageTimeout, errors.Join(ErrStageTimeout, err))
	}
	return fmt.Errorf("%s stage: %w", name, err)
}

// commit checkpoints state and notifies observers of its newest log entry.
func (r *run) commit(ctx context.Context, state State) State {
	if r.p.checkpoints != nil {
		if err := r.save(ctx, state); err != nil {
			log.Printf("pipeline: checkpointing thread %s: %v", r.threadID, err)
		}
	}
	entry := state.Logs[len(state.Logs)-1]
	for _, o := range r.observers {
		o(r.threadID, entry)
	}
	return state
}

func (r *run) save(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return r.p.checkpoints.Save(ctx, checkpoint.Checkpoint{
		ThreadID:   r.threadID,
		RunID:      r.runID,
		TicketText: state.TicketText,
		Stage:      string(state.Stage),
		Complete:   state.Stage == StageSpecialistDone,
		State:      data,
		UpdatedAt:  r.p.now(),
	})
}
