package api

import (
	"github.com/jh125486/batchreview/pkg/review"
)

type (
	ListAssignmentsRequest struct {
		BatchID string `json:"batch_id"`
	}
	ListAssignmentsResponse struct {
		Assignments []review.Assignment `json:"assignments"`
	}

	ListTalentsRequest struct {
		BatchID string `json:"batch_id"`
	}
	ListTalentsResponse struct {
		Talents []review.Talent `json:"talents"`
	}

	ListConceptsRequest struct {
		AssignmentID string `json:"assignment_id"`
	}
	ListConceptsResponse struct {
		Concepts []review.Concept `json:"concepts"`
	}

	GetSubmissionHistoryRequest struct {
		AssignmentID string `json:"assignment_id"`
		TalentID     string `json:"talent_id"`
	}
	GetSubmissionHistoryResponse struct {
		Submissions []review.Submission `json:"submissions"`
	}

	// SubmitGradeRequest grades one submission. When BatchID is set the score
	// is also checked against the assignment's question maximum.
	SubmitGradeRequest struct {
		BatchID      string              `json:"batch_id,omitempty"`
		AssignmentID string              `json:"assignment_id"`
		TalentID     string              `json:"talent_id"`
		SubmissionID string              `json:"submission_id"`
		Grade        review.GradePayload `json:"grade"`
	}
	SubmitGradeResponse struct {
		Message string `json:"message"`
	}

	// GetBatchReviewRequest builds both projections for a selection. Empty
	// IDs default to the first talent and assignment of the batch.
	GetBatchReviewRequest struct {
		BatchID      string `json:"batch_id"`
		TalentID     string `json:"talent_id,omitempty"`
		AssignmentID string `json:"assignment_id,omitempty"`
	}
	GetBatchReviewResponse struct {
		Selection   review.Selection      `json:"selection"`
		Assignments review.AssignmentView `json:"assignments"`
		Talents     review.TalentView     `json:"talents"`
	}

	ScoreSubmissionRequest struct {
		BatchID      string                 `json:"batch_id"`
		AssignmentID string                 `json:"assignment_id"`
		TalentID     string                 `json:"talent_id"`
		Ratings      []review.ConceptRating `json:"ratings"`
	}
	ScoreSubmissionResponse struct {
		Breakdown review.ScoreBreakdown `json:"breakdown"`
	}

	DraftRemarksRequest struct {
		AssignmentTitle string                 `json:"assignment_title,omitempty"`
		Concepts        []review.Concept       `json:"concepts"`
		Ratings         []review.ConceptRating `json:"ratings"`
		Accepted        bool                   `json:"accepted"`
		Notes           string                 `json:"notes,omitempty"`
	}
	DraftRemarksResponse struct {
		Remarks  string `json:"remarks"`
		Strength string `json:"strength,omitempty"`
		Weakness string `json:"weakness,omitempty"`
		Flagged  bool   `json:"flagged,omitempty"`
	}
)
