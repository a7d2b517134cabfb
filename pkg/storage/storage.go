// Package storage persists batches, rosters, assignments and submissions for
// the review service.
package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jh125486/batchreview/pkg/review"
)

// ErrNotFound is returned when the addressed batch, assignment or submission
// does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the interface for persistent storage behind a review session.
type Storage interface {
	review.Backend
	// Import upserts every batch of the snapshot.
	Import(ctx context.Context, snap *Snapshot) error
	Close() error
}

type (
	// Snapshot is a portable dump of one or more batches.
	Snapshot struct {
		Batches []Batch `json:"batches" yaml:"batches"`
	}

	// Batch holds a roster with every assignment issued to it. Assignment
	// submissions carry all attempts, not only the latest.
	Batch struct {
		ID          string                      `json:"id"                 yaml:"id"`
		Talents     []review.Talent             `json:"talents"            yaml:"talents"`
		Assignments []review.Assignment         `json:"assignments"        yaml:"assignments"`
		Concepts    map[string][]review.Concept `json:"concepts,omitempty" yaml:"concepts,omitempty"`
	}
)

// Batch returns the batch with the given ID.
func (s *Snapshot) Batch(id string) (*Batch, bool) {
	for i := range s.Batches {
		if s.Batches[i].ID == id {
			return &s.Batches[i], true
		}
	}
	return nil, false
}

// BatchForAssignment returns the batch that issued the assignment.
func (s *Snapshot) BatchForAssignment(assignmentID string) (*Batch, bool) {
	for i := range s.Batches {
		if _, ok := s.Batches[i].assignment(assignmentID); ok {
			return &s.Batches[i], true
		}
	}
	return nil, false
}

// Upsert replaces the batch with the same ID or appends it.
func (s *Snapshot) Upsert(b Batch) {
	if existing, ok := s.Batch(b.ID); ok {
		*existing = b
		return
	}
	s.Batches = append(s.Batches, b)
}

func (b *Batch) assignment(id string) (*review.Assignment, bool) {
	for i := range b.Assignments {
		if b.Assignments[i].ID == id {
			return &b.Assignments[i], true
		}
	}
	return nil, false
}

// LatestAssignments returns the batch assignments with only the most recent
// submission per talent. Ties on submission time go to the higher ID, as in
// History.
func (b *Batch) LatestAssignments() []review.Assignment {
	out := make([]review.Assignment, 0, len(b.Assignments))
	for _, a := range b.Assignments {
		subs := a.Submissions
		latest := make(map[string]int)
		var order []string
		for i, s := range subs {
			j, seen := latest[s.TalentID]
			if !seen {
				order = append(order, s.TalentID)
				latest[s.TalentID] = i
				continue
			}
			c := s.SubmittedOn.Compare(subs[j].SubmittedOn)
			if c > 0 || c == 0 && cmp.Compare(s.ID, subs[j].ID) > 0 {
				latest[s.TalentID] = i
			}
		}

		a.Submissions = nil
		for _, tid := range order {
			s := subs[latest[tid]]
			s.ConceptRatings = slices.Clone(s.ConceptRatings)
			a.Submissions = append(a.Submissions, s)
		}
		out = append(out, a)
	}
	return out
}

// History returns every attempt of the talent at the assignment, most recent
// first.
func (b *Batch) History(assignmentID, talentID string) []review.Submission {
	a, ok := b.assignment(assignmentID)
	if !ok {
		return nil
	}
	var history []review.Submission
	for _, s := range a.Submissions {
		if s.TalentID == talentID {
			s.ConceptRatings = slices.Clone(s.ConceptRatings)
			history = append(history, s)
		}
	}
	slices.SortStableFunc(history, func(x, y review.Submission) int {
		if c := y.SubmittedOn.Compare(x.SubmittedOn); c != 0 {
			return c
		}
		return cmp.Compare(y.ID, x.ID)
	})
	return review.MarkLatest(history)
}

// ApplyGrade records a grading action against the addressed submission.
func (b *Batch) ApplyGrade(assignmentID, talentID, submissionID string, grade review.GradePayload) error {
	a, ok := b.assignment(assignmentID)
	if !ok {
		return fmt.Errorf("assignment %q: %w", assignmentID, ErrNotFound)
	}
	for i := range a.Submissions {
		s := &a.Submissions[i]
		if s.ID != submissionID || s.TalentID != talentID {
			continue
		}
		applyGrade(s, grade)
		return nil
	}
	return fmt.Errorf("submission %q of talent %q: %w", submissionID, talentID, ErrNotFound)
}

func applyGrade(s *review.Submission, grade review.GradePayload) {
	score := grade.Score
	s.IsChecked = true
	s.IsAccepted = grade.IsAccepted
	s.Score = &score
	s.FacultyRemarks = grade.FacultyRemarks
	s.FacultyVoiceNote = grade.FacultyVoiceNote
	s.ConceptRatings = slices.Clone(grade.ConceptRatings)
}

// Stats summarizes a batch for logging.
func (b *Batch) Stats() (talents, assignments, submissions int) {
	for _, a := range b.Assignments {
		submissions += len(a.Submissions)
	}
	return len(b.Talents), len(b.Assignments), submissions
}
