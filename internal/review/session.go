package review

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"

	"galman/internal/faults"
	"galman/internal/identity"
	"galman/internal/logging"
	"galman/internal/viewer"
)

// Store is the part of the collection store a session mutates.
type Store interface {
	ListAirlock(ctx context.Context) iter.Seq2[string, error]
	AcceptIntoGallery(ctx context.Context, airlockPath string) (identity.Identity, error)
	RejectFromAirlock(ctx context.Context, airlockPath string) (identity.Identity, error)
}

// State is a review session state.
type State int

const (
	StateIdle State = iota
	StatePresenting
	StateAcceptPending
	StateRejectPending
	StateDone
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePresenting:
		return "presenting"
	case StateAcceptPending:
		return "accept_pending"
	case StateRejectPending:
		return "reject_pending"
	case StateDone:
		return "done"
	case StateInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is how a session ended.
type Outcome string

const (
	// OutcomeDone means every worklist entry received a decision.
	OutcomeDone Outcome = "done"
	// OutcomeInterrupted means the user quit, the viewer went away, or the
	// context was cancelled.
	OutcomeInterrupted Outcome = "interrupted"
)

// Failure is a decision whose transition failed. The file stays in the airlock.
type Failure struct {
	Path    string
	Verdict viewer.EventKind
	Err     error
}

// Summary reports what a session did.
type Summary struct {
	Outcome  Outcome
	Total    int
	Accepted int
	Rejected int
	// AlreadyRejected counts accepts refused because the identity was rejected
	// earlier; those copies were deleted.
	AlreadyRejected int
	Failed          []Failure
	// Remaining counts worklist entries that were never decided.
	Remaining int
}

// Decided returns how many worklist entries left the airlock.
func (s Summary) Decided() int {
	return s.Accepted + s.Rejected + s.AlreadyRejected
}

// Options configures a Session.
type Options struct {
	Logger *slog.Logger
	// OnState observes every state change, in order.
	OnState func(State)
}

// Session drives one pass over the airlock.
type Session struct {
	store   Store
	viewer  viewer.Viewer
	logger  *slog.Logger
	onState func(State)
	state   State
}

// New constructs a session over store presenting files with v.
func New(store Store, v viewer.Viewer, opts Options) *Session {
	return &Session{
		store:   store,
		viewer:  v,
		logger:  logging.NewComponentLogger(opts.Logger, "review"),
		onState: opts.OnState,
		state:   StateIdle,
	}
}

// Run reviews the airlock until every file is decided or the session is
// interrupted. Only failures that prevent a session from starting are
// returned as errors; per-file transition failures are reported in the
// summary.
func (s *Session) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	worklist, err := s.worklist(ctx)
	if err != nil {
		return summary, err
	}
	summary.Total = len(worklist)
	if len(worklist) == 0 {
		s.setState(StateDone)
		summary.Outcome = OutcomeDone
		s.logger.Info("airlock empty; nothing to review",
			logging.String(logging.FieldEventType, "review_empty"),
		)
		return summary, nil
	}

	if err := s.viewer.Load(ctx, worklist); err != nil {
		logging.ErrorWithContext(s.logger, "viewer failed to start", "viewer_start_failed",
			logging.Int("pending", len(worklist)),
			logging.String(logging.FieldErrorHint, "check viewer.binary and run galman status"),
			logging.Error(err),
		)
		return summary, fmt.Errorf("start viewer: %w", err)
	}
	defer func() {
		if err := s.viewer.Close(); err != nil {
			s.logger.Debug("viewer close failed", logging.Error(err))
		}
	}()

	s.logger.Info("review started",
		logging.String(logging.FieldEventType, "review_started"),
		logging.Int("total", summary.Total),
	)

	sampler := logging.NewProgressSampler(10)
	events := s.viewer.Events()
	for len(worklist) > 0 {
		s.setState(StatePresenting)

		var (
			event viewer.Event
			open  bool
		)
		select {
		case <-ctx.Done():
			s.logger.Info("review cancelled", logging.String(logging.FieldEventType, "review_cancelled"))
			return s.interrupt(summary, worklist), nil
		case event, open = <-events:
		}
		if !open {
			s.logger.Info("viewer exited", logging.String(logging.FieldEventType, "viewer_exited"))
			return s.interrupt(summary, worklist), nil
		}

		var pending State
		switch event.Kind {
		case viewer.EventQuit:
			s.logger.Info("review quit by user", logging.String(logging.FieldEventType, "review_quit"))
			return s.interrupt(summary, worklist), nil
		case viewer.EventAccept:
			pending = StateAcceptPending
		case viewer.EventReject:
			pending = StateRejectPending
		default:
			signalErr := fmt.Errorf("%w: %q", faults.ErrViewerSignal, event.Raw)
			if event.Err != nil {
				signalErr = fmt.Errorf("%w: %w", signalErr, event.Err)
			}
			logging.WarnWithContext(s.logger, "unrecognized viewer event ignored", "viewer_signal_unknown",
				logging.Error(signalErr),
				logging.String(logging.FieldImpact, "current file stays on screen"),
				logging.String(logging.FieldErrorHint, faults.Hint(faults.ErrViewerSignal)),
			)
			continue
		}

		idx, ok := s.shown(ctx, event, worklist)
		if !ok {
			continue
		}
		s.setState(pending)
		s.decide(ctx, worklist[idx], event.Kind, &summary)
		worklist = slices.Delete(worklist, idx, idx+1)
		done := summary.Total - len(worklist)
		if sampler.ShouldLog(done, summary.Total) {
			s.logger.Info("review progress",
				logging.String(logging.FieldEventType, "review_progress"),
				logging.String("progress", fmt.Sprintf("%d/%d", done, summary.Total)),
				logging.Int("accepted", summary.Accepted),
				logging.Int("rejected", summary.Rejected),
			)
		}
		if len(worklist) == 0 {
			break
		}
		if err := s.viewer.Next(ctx); err != nil {
			logging.WarnWithContext(s.logger, "viewer did not advance", "viewer_advance_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "session stopped; undecided files stay in the airlock"),
			)
			return s.interrupt(summary, worklist), nil
		}
	}

	s.setState(StateDone)
	summary.Outcome = OutcomeDone
	s.logger.Info("review complete",
		logging.String(logging.FieldEventType, "review_complete"),
		logging.Int("accepted", summary.Accepted),
		logging.Int("rejected", summary.Rejected),
		logging.Int("failed", len(summary.Failed)),
	)
	return summary, nil
}

// decide applies one verdict. The mutation runs to completion even if ctx is
// cancelled meanwhile; cancellation is observed before the next event.
func (s *Session) decide(ctx context.Context, path string, kind viewer.EventKind, summary *Summary) {
	mutationCtx := context.WithoutCancel(ctx)
	var (
		id  identity.Identity
		err error
	)
	if kind == viewer.EventAccept {
		id, err = s.store.AcceptIntoGallery(mutationCtx, path)
	} else {
		id, err = s.store.RejectFromAirlock(mutationCtx, path)
	}

	attrs := []logging.Attr{
		logging.Path(path),
		logging.String(logging.FieldVerdict, kind.String()),
	}
	if !id.IsZero() {
		attrs = append(attrs, logging.Identity(id.String()))
	}

	switch {
	case err == nil:
		if kind == viewer.EventAccept {
			summary.Accepted++
		} else {
			summary.Rejected++
		}
		s.logger.Debug("decision applied", logging.Args(attrs...)...)
	case errors.Is(err, faults.ErrAlreadyRejected):
		summary.AlreadyRejected++
		attrs = append(attrs,
			logging.String(logging.FieldImpact, "copy deleted; identity stays rejected"),
			logging.String(logging.FieldErrorHint, faults.Hint(err)),
		)
		logging.WarnWithContext(s.logger, "accept refused for previously rejected file", "review_accept_refused", attrs...)
	default:
		summary.Failed = append(summary.Failed, Failure{Path: path, Verdict: kind, Err: err})
		attrs = append(attrs,
			logging.Error(err),
			logging.String(logging.FieldImpact, "file left in the airlock for the next session"),
			logging.String(logging.FieldErrorHint, faults.Hint(err)),
		)
		logging.WarnWithContext(s.logger, "decision not applied", "review_transition_failed", attrs...)
	}
}

// shown locates the file the viewer had on screen when event was raised. The
// viewer passes over entries it cannot open, so the worklist head is not
// assumed. A verdict for a file that is not awaiting review is dropped.
func (s *Session) shown(ctx context.Context, event viewer.Event, worklist []string) (int, bool) {
	path := event.Path
	if path == "" {
		current, err := s.viewer.Current(ctx)
		if err != nil {
			logging.WarnWithContext(s.logger, "verdict ignored; viewer is not showing a file", "review_verdict_unplaced",
				logging.String(logging.FieldVerdict, event.Kind.String()),
				logging.Error(fmt.Errorf("%w: %w", faults.ErrViewerSignal, err)),
				logging.String(logging.FieldImpact, "no file changed"),
			)
			return -1, false
		}
		path = current
	}
	for i, entry := range worklist {
		if samePath(entry, path) {
			return i, true
		}
	}
	logging.WarnWithContext(s.logger, "verdict ignored; file on screen is not awaiting review", "review_verdict_unplaced",
		logging.Path(path),
		logging.String(logging.FieldVerdict, event.Kind.String()),
		logging.String(logging.FieldImpact, "no file changed"),
	)
	return -1, false
}

func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func (s *Session) interrupt(summary Summary, worklist []string) Summary {
	s.setState(StateInterrupted)
	summary.Outcome = OutcomeInterrupted
	summary.Remaining = len(worklist)
	s.logger.Info("review interrupted",
		logging.String(logging.FieldEventType, "review_interrupted"),
		logging.Int("decided", summary.Decided()),
		logging.Int("remaining", summary.Remaining),
	)
	return summary
}

func (s *Session) worklist(ctx context.Context) ([]string, error) {
	var paths []string
	for path, err := range s.store.ListAirlock(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list airlock: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *Session) setState(next State) {
	if next == s.state {
		return
	}
	s.logger.Debug("review state", logging.String("from", s.state.String()), logging.String("to", next.String()))
	s.state = next
	if s.onState != nil {
		s.onState(next)
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}
