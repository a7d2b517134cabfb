package review

import "context"

type (
	// AssignmentSource fetches a batch's assignments, each carrying the latest
	// submission of every talent who submitted.
	AssignmentSource interface {
		AssignmentsWithSubmissions(ctx context.Context, batchID string) ([]Assignment, error)
	}

	// TalentRoster fetches the talents enrolled in a batch.
	TalentRoster interface {
		BatchTalents(ctx context.Context, batchID string) ([]Talent, error)
	}

	// ConceptSource fetches the ordered concepts rated for an assignment.
	ConceptSource interface {
		ConceptsForAssignment(ctx context.Context, assignmentID string) ([]Concept, error)
	}

	// SubmissionHistory fetches every attempt of a talent at an assignment,
	// most recent first with the first one flagged as latest.
	SubmissionHistory interface {
		SubmissionHistory(ctx context.Context, assignmentID, talentID string) ([]Submission, error)
	}

	// GradeSubmitter records a grading action.
	GradeSubmitter interface {
		SubmitGrade(ctx context.Context, assignmentID, talentID, submissionID string, grade GradePayload) error
	}

	// Backend is everything a review session talks to.
	Backend interface {
		AssignmentSource
		TalentRoster
		ConceptSource
		SubmissionHistory
		GradeSubmitter
	}
)

// MarkLatest flags the first entry of a most-recent-first history.
func MarkLatest(history []Submission) []Submission {
	for i := range history {
		history[i].IsLatest = i == 0
	}
	return history
}
