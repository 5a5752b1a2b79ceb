package bulkedit

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

type (
	// Submitter hands an encoded change-set over to the endpoint persisting it.
	// A nil error means every change was saved.
	Submitter interface {
		Submit(ctx context.Context, form url.Values) (Outcome, error)
	}

	// SubmitterFunc adapts a function to the Submitter interface.
	SubmitterFunc func(ctx context.Context, form url.Values) (Outcome, error)

	// SubmissionError is returned when the submission failed or did not save every change.
	// Pending changes are kept so the save can be retried.
	SubmissionError struct {
		Outcome Outcome
		Err     error
	}
)

func (fn SubmitterFunc) Submit(ctx context.Context, form url.Values) (Outcome, error) {
	return fn(ctx, form)
}

// ErrorPrefix starts the notice of a failed save.
const ErrorPrefix = "Error saving changes: "

func (err *SubmissionError) Error() string {
	return "submitting changes: " + err.Reason()
}

// Reason is the failure as shown to the user, without any "Error saving changes: " prefix.
func (err *SubmissionError) Reason() string {
	if err.Err != nil {
		return strings.TrimPrefix(err.Err.Error(), ErrorPrefix)
	}
	return err.Outcome.Message()
}

func (err *SubmissionError) Unwrap() error { return err.Err }

// IsSubmissionError reports whether the cause of err is a *SubmissionError.
func IsSubmissionError(err error) bool {
	_, ok := errors.Cause(err).(*SubmissionError)
	return ok
}

// Session is the controller of one bulk-edit view: it owns the view's Tracker and drives the save.
type Session struct {
	ID        uuid.UUID
	names     FormNames
	tracker   *Tracker
	submitter Submitter
	view      View
	logger    core.Logger
}

// NewSession starts a bulk-edit session over the `baseline` captured when the view loaded.
// view may be nil.
func NewSession(names FormNames, baseline *Snapshot, submitter Submitter, view View, logger core.Logger) *Session {
	return &Session{
		ID:        uuid.New(),
		names:     names,
		tracker:   NewTracker(baseline, view),
		submitter: submitter,
		view:      view,
		logger:    logger,
	}
}

func (s *Session) Tracker() *Tracker { return s.tracker }

// OnFieldEdited records the value currently entered for (entityID, field).
// Fields missing from the baseline are compared against the empty string.
func (s *Session) OnFieldEdited(entityID, field, current string) {
	orig, _ := s.tracker.Baseline(entityID, field)
	s.tracker.RecordEdit(entityID, field, current, orig)
}

// OnSaveRequested submits all pending changes at once.
// Nothing is submitted when there are no pending changes: ErrNoPendingChanges is returned and the view notified.
// The tracker is reset only when the submission saved every change.
func (s *Session) OnSaveRequested(ctx context.Context) (Outcome, error) {
	records, err := s.tracker.Serialize()
	if err != nil {
		s.notify(LevelInfo, NoChangesMessage)
		return Outcome{}, err
	}

	form := Encode(records, s.names)
	s.logger.Debug(fmt.Sprintf("bulkedit[%s]: submitting %d changes", s.ID, len(records)))

	outcome, err := s.submitter.Submit(ctx, form)
	if err == nil && !outcome.Succeeded() {
		err = &SubmissionError{Outcome: outcome}
	} else if err != nil && !IsSubmissionError(err) {
		err = &SubmissionError{Outcome: outcome, Err: err}
	}
	if err != nil {
		s.logger.Warn(fmt.Sprintf("bulkedit[%s]: save failed, keeping %d changes", s.ID, len(records)), err)
		s.notify(LevelDanger, ErrorPrefix+errors.Cause(err).(*SubmissionError).Reason())
		return outcome, errors.WithStack(err)
	}

	s.tracker.CommitAndReset()
	s.notify(outcome.Level(), outcome.MessageFor(s.names))
	return outcome, nil
}

func (s *Session) notify(level Level, msg string) {
	if s.view != nil {
		s.view.Notify(level, msg)
	}
}
