package swipe

import (
	"context"
	"fmt"

	"github.com/desertthunder/cur8/internal/models"
)

var (
	ErrClosed             = fmt.Errorf("orchestrator closed")
	ErrBusy               = fmt.Errorf("a track is loading or a decision is in progress")
	ErrNoTrack            = fmt.Errorf("no track displayed")
	ErrDecisionInProgress = fmt.Errorf("a decision is already in progress")
	ErrNotDeciding        = fmt.Errorf("no decision awaiting detach")
	ErrNotExiting         = fmt.Errorf("no decision awaiting confirmation")
)

// TrackSource is the backend the review screen talks to. [services.APIClient] implements it.
type TrackSource interface {
	NextTrack(ctx context.Context) (*models.Track, error)
	Swipe(ctx context.Context, spotifyTrackID string, action models.Action) error
}

// Phase is the orchestrator's position in the decision lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTrackShown
	PhaseDeciding
	PhaseExiting
	PhaseConfirming
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTrackShown:
		return "track-shown"
	case PhaseDeciding:
		return "deciding"
	case PhaseExiting:
		return "exiting"
	case PhaseConfirming:
		return "confirming"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Direction is the side a card leaves the screen on.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionLeft
	DirectionRight
)

// DirectionFor maps remove to left and keep to right.
func DirectionFor(a models.Action) Direction {
	if a == models.ActionRemove {
		return DirectionLeft
	}
	return DirectionRight
}

// Sign is -1 for left, 1 for right and 0 otherwise.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionLeft:
		return -1
	case DirectionRight:
		return 1
	default:
		return 0
	}
}

func (d Direction) String() string {
	switch d {
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	default:
		return "none"
	}
}

// Decision is a swipe outcome waiting to be confirmed. It is consumed by exactly one confirmation.
type Decision struct {
	Track     models.Track
	Action    models.Action
	Direction Direction
}

// Orchestrator sequences loading, deciding, exit animation and confirmation for one review screen.
//
// It is not safe for concurrent use; the owning event loop serializes all calls.
type Orchestrator struct {
	phase      Phase
	track      *models.Track
	decision   *Decision
	loading    bool
	loaded     bool
	err        error
	generation uint64
	closed     bool
}

// NewOrchestrator returns an idle orchestrator with nothing loaded.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{phase: PhaseIdle}
}

func (o *Orchestrator) Phase() Phase { return o.phase }
func (o *Orchestrator) Track() *models.Track { return o.track }
func (o *Orchestrator) Decision() *Decision { return o.decision }
func (o *Orchestrator) Loading() bool { return o.loading }
func (o *Orchestrator) Err() error { return o.err }
func (o *Orchestrator) Closed() bool { return o.closed }
func (o *Orchestrator) Generation() uint64 { return o.generation }
func (o *Orchestrator) CanDecide() bool { return o.phase == PhaseTrackShown && o.decision == nil }

// ExitDirection is the direction of the decision in progress, if any.
func (o *Orchestrator) ExitDirection() Direction {
	if o.decision == nil {
		return DirectionNone
	}
	return o.decision.Direction
}

// Empty reports that a fetch completed without a track: the review queue is exhausted.
func (o *Orchestrator) Empty() bool {
	return o.loaded && o.phase == PhaseIdle && o.track == nil && !o.loading
}

// BeginLoad marks a fetch as started and returns the generation its result must carry.
//
// Fetching is refused while another fetch runs or while a decision is between Decide and its confirmation.
func (o *Orchestrator) BeginLoad() (uint64, error) {
	if o.closed {
		return 0, ErrClosed
	}
	if o.loading || o.decision != nil {
		return 0, ErrBusy
	}

	o.loading = true
	o.err = nil
	return o.generation, nil
}

// FinishLoad applies a fetch result. A nil track with a nil error means the queue is empty.
// Results from another generation are ignored.
func (o *Orchestrator) FinishLoad(generation uint64, track *models.Track, err error) {
	if o.stale(generation) {
		return
	}

	o.loading = false
	o.loaded = true
	if err != nil {
		o.track = nil
		o.err = err
		o.phase = PhaseError
		return
	}

	o.track = track
	o.err = nil
	if track != nil {
		o.phase = PhaseTrackShown
	} else {
		o.phase = PhaseIdle
	}
}

// Decide records action for the displayed track. The track stays displayed until [Orchestrator.Detach].
func (o *Orchestrator) Decide(action models.Action) (*Decision, error) {
	if o.closed {
		return nil, ErrClosed
	}
	if o.decision != nil {
		return nil, ErrDecisionInProgress
	}
	if o.phase != PhaseTrackShown || o.track == nil {
		return nil, ErrNoTrack
	}

	o.decision = &Decision{Track: *o.track, Action: action, Direction: DirectionFor(action)}
	o.phase = PhaseDeciding
	return o.decision, nil
}

// Detach removes the decided track from view once its exit direction has been rendered.
func (o *Orchestrator) Detach() error {
	if o.closed {
		return ErrClosed
	}
	if o.phase != PhaseDeciding {
		return ErrNotDeciding
	}

	o.track = nil
	o.phase = PhaseExiting
	return nil
}

// BeginConfirm is called when the exit animation finishes. It hands out the decision for confirmation; a second
// call for the same decision fails.
func (o *Orchestrator) BeginConfirm() (Decision, uint64, error) {
	if o.closed {
		return Decision{}, 0, ErrClosed
	}
	if o.phase != PhaseExiting || o.decision == nil {
		return Decision{}, 0, ErrNotExiting
	}

	o.phase = PhaseConfirming
	return *o.decision, o.generation, nil
}

// FinishConfirm applies a confirmation result and reports whether the next track should be fetched.
//
// The decision is cleared either way. On failure the error is kept and nothing is fetched.
func (o *Orchestrator) FinishConfirm(generation uint64, err error) bool {
	if o.stale(generation) || o.phase != PhaseConfirming {
		return false
	}

	o.decision = nil
	if err != nil {
		o.err = err
		o.phase = PhaseError
		return false
	}

	o.phase = PhaseIdle
	return true
}

// Retry starts a fetch after an error or an empty queue.
func (o *Orchestrator) Retry() (uint64, error) {
	if o.closed {
		return 0, ErrClosed
	}
	if o.decision != nil || (o.phase != PhaseError && o.phase != PhaseIdle) {
		return 0, ErrBusy
	}
	return o.BeginLoad()
}

// Close tears the orchestrator down. Results of calls started earlier become no-ops.
func (o *Orchestrator) Close() {
	o.closed = true
	o.generation++
	o.loading = false
	o.decision = nil
}

func (o *Orchestrator) stale(generation uint64) bool {
	return o.closed || generation != o.generation
}

// LoadNext fetches the next track from src and applies the result.
func (o *Orchestrator) LoadNext(ctx context.Context, src TrackSource) error {
	generation, err := o.BeginLoad()
	if err != nil {
		return err
	}

	track, err := src.NextTrack(ctx)
	o.FinishLoad(generation, track, err)
	return err
}

// ExitComplete confirms the pending decision with src and, on success, loads the next track.
func (o *Orchestrator) ExitComplete(ctx context.Context, src TrackSource) error {
	decision, generation, err := o.BeginConfirm()
	if err != nil {
		return err
	}

	err = src.Swipe(ctx, decision.Track.SpotifyTrackID, decision.Action)
	if !o.FinishConfirm(generation, err) {
		return err
	}
	return o.LoadNext(ctx, src)
}
