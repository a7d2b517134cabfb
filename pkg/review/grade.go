package review

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/go-playground/validator/v10"
)

// GradePayload is the grading action submitted for one submission.
type GradePayload struct {
	FacultyRemarks   string          `json:"faculty_remarks"              validate:"required,max=4000"`
	Score            float64         `json:"score"                        validate:"gte=0"`
	IsAccepted       bool            `json:"is_accepted"`
	ConceptRatings   []ConceptRating `json:"concept_ratings"              validate:"dive"`
	FacultyVoiceNote string          `json:"faculty_voice_note,omitempty" validate:"omitempty,url"`
}

// Kinds of grade submission failures.
var (
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrValidationRejected = errors.New("validation rejected")
	ErrServer             = errors.New("server error")
)

// SubmitError is returned by a failed grade submission. errors.Is matches
// both its Kind and the underlying cause.
type SubmitError struct {
	Kind error
	Err  error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit grade: %v: %v", e.Kind, e.Err)
}

func (e *SubmitError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// NewSubmitError wraps err with a failure kind.
func NewSubmitError(kind, err error) *SubmitError {
	return &SubmitError{Kind: kind, Err: err}
}

// AsSubmitError normalizes any grade submission failure into a SubmitError.
// Errors that already carry a kind keep it, transport failures become
// ErrNetworkUnavailable and everything else ErrServer.
func AsSubmitError(err error) *SubmitError {
	if err == nil {
		return nil
	}
	var se *SubmitError
	if errors.As(err, &se) {
		return se
	}

	var (
		netErr net.Error
		urlErr *url.Error
		valErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &valErr):
		return NewSubmitError(ErrValidationRejected, err)
	case errors.As(err, &netErr), errors.As(err, &urlErr),
		errors.Is(err, context.DeadlineExceeded):
		return NewSubmitError(ErrNetworkUnavailable, err)
	default:
		return NewSubmitError(ErrServer, err)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateGrade checks a payload against the assignment being graded and its
// concept list. Every concept must be rated exactly once.
func ValidateGrade(p GradePayload, a Assignment, concepts []Concept) error {
	if err := validate.Struct(p); err != nil {
		return NewSubmitError(ErrValidationRejected, err)
	}
	if a.QuestionScore != nil && p.Score > *a.QuestionScore {
		return NewSubmitError(ErrValidationRejected,
			fmt.Errorf("score %.2f exceeds question maximum %.2f", p.Score, *a.QuestionScore))
	}

	known := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		known[c.ID] = false
	}
	for _, r := range p.ConceptRatings {
		rated, ok := known[r.ProgrammingConceptModuleID]
		switch {
		case !ok:
			return NewSubmitError(ErrValidationRejected,
				fmt.Errorf("unknown concept %q", r.ProgrammingConceptModuleID))
		case rated:
			return NewSubmitError(ErrValidationRejected,
				fmt.Errorf("concept %q rated twice", r.ProgrammingConceptModuleID))
		}
		known[r.ProgrammingConceptModuleID] = true
	}
	for _, c := range concepts {
		if !known[c.ID] {
			return NewSubmitError(ErrValidationRejected, fmt.Errorf("concept %q not rated", c.ID))
		}
	}

	return nil
}

// AlignRatings orders ratings by the concept list. A concept without a rating
// gets a nil score so that scoring fails closed.
func AlignRatings(concepts []Concept, ratings []ConceptRating) []ConceptRating {
	byConcept := make(map[string]ConceptRating, len(ratings))
	for _, r := range ratings {
		if _, dup := byConcept[r.ProgrammingConceptModuleID]; !dup {
			byConcept[r.ProgrammingConceptModuleID] = r
		}
	}
	out := make([]ConceptRating, len(concepts))
	for i, c := range concepts {
		r, ok := byConcept[c.ID]
		if !ok {
			r = ConceptRating{ProgrammingConceptModuleID: c.ID}
		}
		out[i] = r
	}
	return out
}
