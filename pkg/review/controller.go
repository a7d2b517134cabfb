package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jh125486/batchreview/pkg/contextlog"
)

// ViewMode is the axis the review screen is pivoted on.
type ViewMode string

const (
	// TalentMode fixes a talent and lists the batch's assignments.
	TalentMode ViewMode = "talent"
	// AssignmentMode fixes an assignment and lists the roster.
	AssignmentMode ViewMode = "assignment"
)

var (
	ErrNoSelection  = errors.New("no talent and assignment selected")
	ErrNoSubmission = errors.New("talent has not submitted the assignment")
)

type (
	// Session is the grader's selection state on the review screen.
	Session struct {
		BatchID    string    `json:"batch_id"`
		Selection  Selection `json:"selection"`
		Mode       ViewMode  `json:"mode"`
		DetailOpen bool      `json:"detail_open"`
	}

	// View is what the review screen renders for the current session. Only
	// the projection matching the session mode is populated.
	View struct {
		Session     Session         `json:"session"`
		Assignments *AssignmentView `json:"assignments,omitempty"`
		Talents     *TalentView     `json:"talents,omitempty"`
		History     []Submission    `json:"history,omitempty"`
	}

	// Controller orchestrates a review session: it owns the selection state,
	// the current matrix snapshot and the detail panel history.
	Controller struct {
		backend Backend

		mu      sync.Mutex
		session Session
		matrix  *Matrix
		view    View
		history []Submission
		gen     uint64
	}
)

// NewController starts a session for a batch in talent mode. Call Refresh to
// load the batch.
func NewController(backend Backend, batchID string) *Controller {
	c := &Controller{
		backend: backend,
		session: Session{BatchID: batchID, Mode: TalentMode},
	}
	c.project()
	return c
}

// Refresh fetches assignments and roster concurrently and replaces the matrix.
// A refresh superseded by a later one discards its result.
func (c *Controller) Refresh(ctx context.Context) error {
	start := time.Now()
	c.mu.Lock()
	c.gen++
	gen := c.gen
	batchID := c.session.BatchID
	c.mu.Unlock()

	var (
		assignments []Assignment
		talents     []Talent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if assignments, err = c.backend.AssignmentsWithSubmissions(gctx, batchID); err != nil {
			return fmt.Errorf("failed to fetch assignments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if talents, err = c.backend.BatchTalents(gctx, batchID); err != nil {
			return fmt.Errorf("failed to fetch talents: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	m := Build(assignments, talents)

	l := contextlog.From(ctx)
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		l.DebugContext(ctx, "Discarding superseded refresh", slog.String("batch_id", batchID))
		return nil
	}
	c.matrix = m
	c.defaultSelection()
	c.project()
	c.mu.Unlock()

	l.InfoContext(ctx, "Rebuilt submission matrix",
		slog.String("batch_id", batchID),
		slog.Int("assignments", len(assignments)),
		slog.Int("talents", len(talents)),
		slog.Int("cells", m.Len()),
		slog.Duration("duration", time.Since(start)),
	)

	return c.reloadHistory(ctx)
}

// SelectTalent changes the selected talent.
func (c *Controller) SelectTalent(ctx context.Context, id string) (View, error) {
	c.mu.Lock()
	c.session.Selection.TalentID = id
	c.history = nil
	c.project()
	c.mu.Unlock()
	return c.viewAfterReload(ctx)
}

// SelectAssignment changes the selected assignment.
func (c *Controller) SelectAssignment(ctx context.Context, id string) (View, error) {
	c.mu.Lock()
	c.session.Selection.AssignmentID = id
	c.history = nil
	c.project()
	c.mu.Unlock()
	return c.viewAfterReload(ctx)
}

// ToggleView switches between talent mode and assignment mode.
func (c *Controller) ToggleView(ctx context.Context) (View, error) {
	c.mu.Lock()
	if c.session.Mode == TalentMode {
		c.session.Mode = AssignmentMode
	} else {
		c.session.Mode = TalentMode
	}
	c.project()
	c.mu.Unlock()
	return c.viewAfterReload(ctx)
}

// OpenDetail opens the detail panel and loads the selected pair's history.
func (c *Controller) OpenDetail(ctx context.Context) (View, error) {
	c.mu.Lock()
	c.session.DetailOpen = true
	c.mu.Unlock()
	return c.viewAfterReload(ctx)
}

// CloseDetail closes the detail panel.
func (c *Controller) CloseDetail() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.DetailOpen = false
	c.history = nil
	c.view.History = nil
	c.view.Session = c.session
	return c.view
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Matrix returns the current matrix snapshot.
func (c *Controller) Matrix() *Matrix {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matrix
}

// DraftScore scores the selected submission from the grader's in-progress
// ratings without submitting anything.
func (c *Controller) DraftScore(ctx context.Context, ratings []ConceptRating) (ScoreBreakdown, error) {
	a, s, err := c.selectedSubmission()
	if err != nil {
		return ScoreBreakdown{}, err
	}
	concepts, err := c.backend.ConceptsForAssignment(ctx, a.ID)
	if err != nil {
		return ScoreBreakdown{}, fmt.Errorf("failed to fetch concepts: %w", err)
	}
	return Evaluate(AlignRatings(concepts, ratings), DefaultMaxScorePerConcept, a.MaxScore(), s.SubmittedOn, a.DueDate), nil
}

// SubmitGrade grades the selected submission and rebuilds the matrix. On
// failure the previous matrix stays in place and a *SubmitError is returned.
func (c *Controller) SubmitGrade(ctx context.Context, grade GradePayload) error {
	a, s, err := c.selectedSubmission()
	if err != nil {
		return NewSubmitError(ErrValidationRejected, err)
	}
	concepts, err := c.backend.ConceptsForAssignment(ctx, a.ID)
	if err != nil {
		return AsSubmitError(fmt.Errorf("failed to fetch concepts: %w", err))
	}
	if err := ValidateGrade(grade, a, concepts); err != nil {
		return err
	}

	l := contextlog.From(ctx).With(
		slog.String("assignment_id", a.ID),
		slog.String("talent_id", s.TalentID),
		slog.String("submission_id", s.ID),
	)
	if err := c.backend.SubmitGrade(ctx, a.ID, s.TalentID, s.ID, grade); err != nil {
		se := AsSubmitError(err)
		l.WarnContext(ctx, "Grade submission failed", slog.String("kind", se.Kind.Error()), slog.Any("error", se.Err))
		return se
	}
	l.InfoContext(ctx, "Grade submitted",
		slog.Float64("score", grade.Score),
		slog.Bool("accepted", grade.IsAccepted),
	)

	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("grade submitted but refresh failed: %w", err)
	}
	return nil
}

func (c *Controller) selectedSubmission() (Assignment, Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel := c.session.Selection
	a, ok := c.matrix.Assignment(sel.AssignmentID)
	if !ok {
		return Assignment{}, Submission{}, ErrNoSelection
	}
	cell, ok := c.matrix.Cell(sel.AssignmentID, sel.TalentID)
	if !ok {
		return Assignment{}, Submission{}, ErrNoSelection
	}
	if !cell.Present() {
		return Assignment{}, Submission{}, ErrNoSubmission
	}
	return a, *cell.Submission, nil
}

// defaultSelection picks the first talent and assignment when the selection
// is empty or no longer part of the matrix. Callers hold c.mu.
func (c *Controller) defaultSelection() {
	sel := &c.session.Selection
	if _, ok := c.matrix.Talent(sel.TalentID); !ok {
		sel.TalentID = ""
		if len(c.matrix.talents) > 0 {
			sel.TalentID = c.matrix.talents[0].ID
		}
	}
	if _, ok := c.matrix.Assignment(sel.AssignmentID); !ok {
		sel.AssignmentID = ""
		if len(c.matrix.assignments) > 0 {
			sel.AssignmentID = c.matrix.assignments[0].ID
		}
	}
}

// project re-runs the projection for the current mode. Callers hold c.mu.
func (c *Controller) project() {
	v := View{Session: c.session, History: c.history}
	switch c.session.Mode {
	case AssignmentMode:
		tv := ProjectByTalent(c.matrix, c.session.Selection)
		v.Talents = &tv
	default:
		av := ProjectByAssignment(c.matrix, c.session.Selection)
		v.Assignments = &av
	}
	c.view = v
}

func (c *Controller) viewAfterReload(ctx context.Context) (View, error) {
	err := c.reloadHistory(ctx)
	return c.View(), err
}

// reloadHistory re-fetches the detail panel history when it is open. A
// result for a selection that changed meanwhile is dropped.
func (c *Controller) reloadHistory(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	if !sess.DetailOpen || sess.Selection.AssignmentID == "" || sess.Selection.TalentID == "" {
		return nil
	}

	history, err := c.backend.SubmissionHistory(ctx, sess.Selection.AssignmentID, sess.Selection.TalentID)
	if err != nil {
		return fmt.Errorf("failed to fetch submission history: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Selection != sess.Selection || !c.session.DetailOpen {
		return nil
	}
	c.history = history
	c.view.History = history
	c.view.Session = c.session
	return nil
}
