// Package pipeline contains the redesign run state machine. The orchestrator
// owns the project document, drives it through the generation stages, applies
// concurrent stage results through a single serializing reducer, and decides
// per the failure policy whether a run resets, degrades, or completes.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reface/internal/config"
	"reface/internal/logging"
	"reface/internal/project"
	"reface/internal/services"
)

// Deps collects the orchestrator's collaborators. Store and Notifier are
// optional.
type Deps struct {
	Generator Generator
	Capture   Capture
	Images    ImageStore
	Store     Persister
	Notifier  Notifier
	Logger    *slog.Logger
}

// Snapshot is a read-only view of the orchestrator handed to observers.
type Snapshot struct {
	State       project.State    `json:"state"`
	ViewedState project.State    `json:"viewedState"`
	TotalCost   float64          `json:"totalCost"`
	Document    project.Document `json:"document"`
}

// StartRequest carries the user's brief for a new run.
type StartRequest struct {
	Description string
	Mode        project.Mode
	SourceURL   string
	TargetURL   string
	Screenshots []string
}

// Orchestrator is the single writer of the project document. Stage goroutines
// fan out freely but every document patch and every state transition funnels
// through the mutex-guarded reducer, tagged with the run generation that
// produced it.
type Orchestrator struct {
	cfg      *config.Config
	gen      Generator
	capture  Capture
	images   ImageStore
	store    Persister
	notifier Notifier
	logger   *slog.Logger

	mu          sync.Mutex
	state       project.State
	viewed      project.State
	doc         project.Document
	generation  uint64
	subscribers map[uint64]chan Snapshot
	nextSubID   uint64
}

// New builds an orchestrator in the idle state.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:         cfg,
		gen:         deps.Generator,
		capture:     deps.Capture,
		images:      deps.Images,
		store:       deps.Store,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		state:       project.StateIdle,
		viewed:      project.StateIdle,
		doc:         project.NewDocument(),
		subscribers: map[uint64]chan Snapshot{},
	}
}

// Snapshot returns the current state and a deep copy of the document.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		State:       o.state,
		ViewedState: o.viewed,
		TotalCost:   o.doc.TotalCost,
		Document:    o.doc.Clone(),
	}
}

// Subscribe registers an observer. The channel holds the latest snapshot;
// slow consumers see intermediate snapshots dropped, never stale ones kept.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSubID
	o.nextSubID++
	ch := make(chan Snapshot, 1)
	ch <- o.snapshotLocked()
	o.subscribers[id] = ch
	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subscribers, id)
	}
}

func (o *Orchestrator) notifyLocked() {
	snap := o.snapshotLocked()
	for _, ch := range o.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

var stageRank = map[project.State]int{
	project.StateIdle:             0,
	project.StateExtractingData:   1,
	project.StateAnalyzing:        2,
	project.StatePlanReview:       3,
	project.StateGeneratingImages: 4,
	project.StateGeneratingCode:   5,
	project.StateRenderingPreview: 6,
	project.StateReviewingCode:    7,
	project.StateApplyingFixes:    8,
	project.StateCompleted:        9,
	project.StateError:            9,
}

// SetViewedState moves the user's inspection pointer. It may trail the actual
// pipeline state but never lead it; transitions snap it back to the actual
// state.
func (o *Orchestrator) SetViewedState(s project.State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	rank, ok := stageRank[s]
	if !ok {
		return services.Wrap(services.ErrValidation, string(o.state), "view", "unknown state", nil)
	}
	if rank > stageRank[o.state] {
		return services.Wrap(services.ErrValidation, string(o.state), "view", "cannot view a stage that has not run", nil)
	}
	o.viewed = s
	o.notifyLocked()
	return nil
}

// apply runs one document patch through the serializing reducer. Patches from
// a superseded run generation are discarded.
func (o *Orchestrator) apply(gen uint64, patch func(project.Document) project.Document) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return false
	}
	o.doc = patch(o.doc)
	o.doc.UpdatedAt = time.Now().UTC()
	o.notifyLocked()
	return true
}

// transition moves the state machine forward for a run generation. The viewed
// pointer follows. Returns false when the run was superseded.
func (o *Orchestrator) transition(gen uint64, next project.State) bool {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return false
	}
	prev := o.state
	o.state = next
	o.viewed = next
	o.notifyLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info("state transition",
		logging.String(logging.FieldProjectID, snap.Document.ProjectID),
		logging.String("from", string(prev)),
		logging.String("to", string(next)))
	o.persist(snap, "")
	return true
}

// fatalReset is the fatal failure path: alert, clear the document, return to
// idle. The generation is bumped so stray completions from the dead run are
// discarded.
func (o *Orchestrator) fatalReset(gen uint64, stage string, cause error) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	projectID := o.doc.ProjectID
	o.generation++
	o.doc = project.NewDocument()
	o.state = project.StateIdle
	o.viewed = project.StateIdle
	o.notifyLocked()
	o.mu.Unlock()

	o.logger.Error("run failed, resetting",
		logging.Alert("run_failed"),
		logging.String(logging.FieldProjectID, projectID),
		logging.String(logging.FieldStage, stage),
		logging.Error(cause))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.notifier.NotifyRunFailed(ctx, projectID, stage, cause); err != nil {
		o.logger.Warn("failure notification not delivered", logging.Error(err))
	}
}

// complete ends the run in COMPLETED, with or without caveats.
func (o *Orchestrator) complete(gen uint64, degraded bool, cause error) {
	if !o.transition(gen, project.StateCompleted) {
		return
	}
	snap := o.Snapshot()
	if degraded {
		o.logger.Warn("run completed with partial results",
			logging.String(logging.FieldProjectID, snap.Document.ProjectID),
			logging.Error(cause))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.notifier.NotifyRunCompleted(ctx, snap.Document.ProjectID, snap.TotalCost); err != nil {
		o.logger.Warn("completion notification not delivered", logging.Error(err))
	}
}

// persist saves the current record. Best effort: persistence failures are
// logged, never fatal to a run.
func (o *Orchestrator) persist(snap Snapshot, errorMessage string) {
	if o.store == nil || snap.Document.ProjectID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rec := &project.Record{
		ProjectID:    snap.Document.ProjectID,
		State:        snap.State,
		ViewedState:  snap.ViewedState,
		Document:     snap.Document,
		ErrorMessage: errorMessage,
	}
	if err := o.store.Save(ctx, rec); err != nil {
		o.logger.Warn("persist project record failed",
			logging.String(logging.FieldProjectID, snap.Document.ProjectID),
			logging.Error(err))
	}
}

// callCtx bounds one network call by the configured stage timeout.
func (o *Orchestrator) callCtx() (context.Context, context.CancelFunc) {
	timeout := time.Duration(o.cfg.Pipeline.StageTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
