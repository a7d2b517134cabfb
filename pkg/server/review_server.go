package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/jh125486/batchreview/pkg/api"
	"github.com/jh125486/batchreview/pkg/contextlog"
	mw "github.com/jh125486/batchreview/pkg/middleware"
	"github.com/jh125486/batchreview/pkg/openai"
	"github.com/jh125486/batchreview/pkg/review"
	"github.com/jh125486/batchreview/pkg/storage"
)

// ReviewServer implements the ReviewService over a review backend.
type ReviewServer struct {
	api.UnimplementedReviewServiceHandler
	backend  review.Backend
	remarker openai.Remarker
}

var _ api.ReviewServiceHandler = (*ReviewServer)(nil)

// NewReviewServer creates a ReviewServer. remarker may be nil.
func NewReviewServer(backend review.Backend, remarker openai.Remarker) *ReviewServer {
	return &ReviewServer{
		backend:  backend,
		remarker: remarker,
	}
}

// errorCode maps domain errors onto connect codes.
func errorCode(err error) connect.Code {
	switch {
	case errors.Is(err, review.ErrValidationRejected):
		return connect.CodeInvalidArgument
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, review.ErrNoSelection):
		return connect.CodeNotFound
	case errors.Is(err, review.ErrNoSubmission):
		return connect.CodeFailedPrecondition
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeInternal
	}
}

func toConnectError(err error) error {
	return connect.NewError(errorCode(err), err)
}

// required checks field/value pairs and reports every empty field.
func required(pairs ...string) error {
	var errs []error
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			errs = append(errs, fmt.Errorf("%s is required", pairs[i]))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

// ListAssignments returns the batch assignments with their latest submissions.
func (s *ReviewServer) ListAssignments(
	ctx context.Context,
	req *connect.Request[api.ListAssignmentsRequest],
) (*connect.Response[api.ListAssignmentsResponse], error) {
	if err := required("batch_id", req.Msg.BatchID); err != nil {
		return nil, err
	}
	assignments, err := s.backend.AssignmentsWithSubmissions(ctx, req.Msg.BatchID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListAssignmentsResponse{Assignments: assignments}), nil
}

// ListTalents returns the batch roster.
func (s *ReviewServer) ListTalents(
	ctx context.Context,
	req *connect.Request[api.ListTalentsRequest],
) (*connect.Response[api.ListTalentsResponse], error) {
	if err := required("batch_id", req.Msg.BatchID); err != nil {
		return nil, err
	}
	talents, err := s.backend.BatchTalents(ctx, req.Msg.BatchID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListTalentsResponse{Talents: talents}), nil
}

// ListConcepts returns the assignment's concepts in rating order.
func (s *ReviewServer) ListConcepts(
	ctx context.Context,
	req *connect.Request[api.ListConceptsRequest],
) (*connect.Response[api.ListConceptsResponse], error) {
	if err := required("assignment_id", req.Msg.AssignmentID); err != nil {
		return nil, err
	}
	concepts, err := s.backend.ConceptsForAssignment(ctx, req.Msg.AssignmentID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListConceptsResponse{Concepts: concepts}), nil
}

// GetSubmissionHistory returns every attempt, latest first.
func (s *ReviewServer) GetSubmissionHistory(
	ctx context.Context,
	req *connect.Request[api.GetSubmissionHistoryRequest],
) (*connect.Response[api.GetSubmissionHistoryResponse], error) {
	if err := required(
		"assignment_id", req.Msg.AssignmentID,
		"talent_id", req.Msg.TalentID,
	); err != nil {
		return nil, err
	}
	history, err := s.backend.SubmissionHistory(ctx, req.Msg.AssignmentID, req.Msg.TalentID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetSubmissionHistoryResponse{Submissions: review.MarkLatest(history)}), nil
}

// SubmitGrade validates and records a grade.
func (s *ReviewServer) SubmitGrade(
	ctx context.Context,
	req *connect.Request[api.SubmitGradeRequest],
) (*connect.Response[api.SubmitGradeResponse], error) {
	msg := req.Msg
	if err := required(
		"assignment_id", msg.AssignmentID,
		"talent_id", msg.TalentID,
		"submission_id", msg.SubmissionID,
	); err != nil {
		return nil, err
	}

	l := contextlog.From(ctx).With(
		slog.String("assignment_id", msg.AssignmentID),
		slog.String("talent_id", msg.TalentID),
		slog.String("submission_id", msg.SubmissionID),
	)

	assignment, err := s.assignment(ctx, msg.BatchID, msg.AssignmentID)
	if err != nil {
		return nil, toConnectError(err)
	}
	concepts, err := s.backend.ConceptsForAssignment(ctx, msg.AssignmentID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := review.ValidateGrade(msg.Grade, assignment, concepts); err != nil {
		l.InfoContext(ctx, "Rejected grade", slog.Any("error", err))
		return nil, toConnectError(err)
	}

	if err := s.backend.SubmitGrade(ctx, msg.AssignmentID, msg.TalentID, msg.SubmissionID, msg.Grade); err != nil {
		l.ErrorContext(ctx, "Failed to store grade", slog.Any("error", err))
		return nil, toConnectError(fmt.Errorf("failed to store grade: %w", err))
	}

	l.InfoContext(ctx, "Stored grade",
		slog.Float64("score", msg.Grade.Score),
		slog.Bool("accepted", msg.Grade.IsAccepted),
		slog.Int("ratings", len(msg.Grade.ConceptRatings)),
		slog.String("ip", mw.ClientIP(ctx, req)),
	)

	return connect.NewResponse(&api.SubmitGradeResponse{
		Message: "Grade submitted successfully",
	}), nil
}

// assignment resolves the graded assignment. Without a batch only its ID is
// known and the question maximum is not checked.
func (s *ReviewServer) assignment(ctx context.Context, batchID, assignmentID string) (review.Assignment, error) {
	if batchID == "" {
		return review.Assignment{ID: assignmentID}, nil
	}
	assignments, err := s.backend.AssignmentsWithSubmissions(ctx, batchID)
	if err != nil {
		return review.Assignment{}, err
	}
	for _, a := range assignments {
		if a.ID == assignmentID {
			return a, nil
		}
	}
	return review.Assignment{}, fmt.Errorf("assignment %q in batch %q: %w", assignmentID, batchID, storage.ErrNotFound)
}

// session opens a fresh review session on the batch with the requested
// selection applied.
func (s *ReviewServer) session(ctx context.Context, batchID, talentID, assignmentID string) (*review.Controller, error) {
	c := review.NewController(s.backend, batchID)
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	if talentID != "" {
		if _, err := c.SelectTalent(ctx, talentID); err != nil {
			return nil, err
		}
	}
	if assignmentID != "" {
		if _, err := c.SelectAssignment(ctx, assignmentID); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// GetBatchReview builds both projections of the batch for one selection.
func (s *ReviewServer) GetBatchReview(
	ctx context.Context,
	req *connect.Request[api.GetBatchReviewRequest],
) (*connect.Response[api.GetBatchReviewResponse], error) {
	msg := req.Msg
	if err := required("batch_id", msg.BatchID); err != nil {
		return nil, err
	}
	c, err := s.session(ctx, msg.BatchID, msg.TalentID, msg.AssignmentID)
	if err != nil {
		return nil, toConnectError(err)
	}

	m := c.Matrix()
	sel := c.View().Session.Selection
	return connect.NewResponse(&api.GetBatchReviewResponse{
		Selection:   sel,
		Assignments: review.ProjectByAssignment(m, sel),
		Talents:     review.ProjectByTalent(m, sel),
	}), nil
}

// ScoreSubmission drafts the score of a talent's latest submission.
func (s *ReviewServer) ScoreSubmission(
	ctx context.Context,
	req *connect.Request[api.ScoreSubmissionRequest],
) (*connect.Response[api.ScoreSubmissionResponse], error) {
	msg := req.Msg
	if err := required(
		"batch_id", msg.BatchID,
		"assignment_id", msg.AssignmentID,
		"talent_id", msg.TalentID,
	); err != nil {
		return nil, err
	}
	c, err := s.session(ctx, msg.BatchID, msg.TalentID, msg.AssignmentID)
	if err != nil {
		return nil, toConnectError(err)
	}
	breakdown, err := c.DraftScore(ctx, msg.Ratings)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ScoreSubmissionResponse{Breakdown: breakdown}), nil
}

// DraftRemarks asks the configured model for faculty remarks.
func (s *ReviewServer) DraftRemarks(
	ctx context.Context,
	req *connect.Request[api.DraftRemarksRequest],
) (*connect.Response[api.DraftRemarksResponse], error) {
	if s.remarker == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, errors.New("remarks drafting is not configured"))
	}
	msg := req.Msg
	if len(msg.Ratings) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, openai.ErrNoRatings)
	}

	drafted, err := s.remarker.DraftRemarks(ctx, openai.RemarksRequest{
		AssignmentTitle: msg.AssignmentTitle,
		Concepts:        msg.Concepts,
		Ratings:         msg.Ratings,
		Accepted:        msg.Accepted,
		Notes:           msg.Notes,
	})
	if err != nil {
		contextlog.From(ctx).ErrorContext(ctx, "failed to draft remarks", slog.Any("error", err))
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to draft remarks"))
	}

	return connect.NewResponse(&api.DraftRemarksResponse{
		Remarks:  drafted.Remarks,
		Strength: drafted.Strength,
		Weakness: drafted.Weakness,
		Flagged:  drafted.Flagged,
	}), nil
}
