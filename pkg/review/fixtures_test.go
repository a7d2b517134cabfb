package review_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jh125486/batchreview/pkg/review"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func submission(id, talentID string, checked, accepted bool, on time.Time) review.Submission {
	return review.Submission{
		ID:          id,
		TalentID:    talentID,
		IsChecked:   checked,
		IsAccepted:  accepted,
		SubmittedOn: on,
	}
}

// batchFixture has three talents and three assignments:
//
//	         a1 (due 5)   a2 (due 1)   a3 (due 10)
//	alice    unchecked    completed    absent
//	bob      rejected     absent       unchecked
//	carol    absent       completed    completed
func batchFixture() ([]review.Assignment, []review.Talent) {
	talents := []review.Talent{
		{ID: "alice", FirstName: "Alice", LastName: "Ng"},
		{ID: "bob", FirstName: "Bob"},
		{ID: "carol", LastName: "Diaz"},
	}
	assignments := []review.Assignment{
		{
			ID: "a1", Title: "Linked lists", DueDate: day(5), AssignedDate: day(1), QuestionScore: ptr(100.0),
			Submissions: []review.Submission{
				submission("s-a1-alice", "alice", false, false, day(4)),
				submission("s-a1-bob", "bob", true, false, day(6)),
			},
		},
		{
			ID: "a2", Title: "Stacks", DueDate: day(1), AssignedDate: day(3), QuestionScore: ptr(50.0),
			Submissions: []review.Submission{
				submission("s-a2-alice", "alice", true, true, day(1)),
				submission("s-a2-carol", "carol", true, true, day(1)),
			},
		},
		{
			ID: "a3", Title: "Queues", DueDate: day(10), AssignedDate: day(2),
			Submissions: []review.Submission{
				submission("s-a3-bob", "bob", false, false, day(9)),
				submission("s-a3-carol", "carol", true, true, day(8)),
			},
		},
	}
	return assignments, talents
}

func ids[T interface{ review.Assignment | review.Talent }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := any(it).(type) {
		case review.Assignment:
			out = append(out, v.ID)
		case review.Talent:
			out = append(out, v.ID)
		}
	}
	return out
}

// fakeBackend serves a batch fixture from memory. Grades are applied to the
// stored submissions so a refresh sees them.
type fakeBackend struct {
	mu          sync.Mutex
	assignments []review.Assignment
	talents     []review.Talent
	concepts    map[string][]review.Concept
	history     map[review.CellKey][]review.Submission

	assignmentsErr error
	submitErr      error
	// beforeAssignments runs at the start of every assignments fetch.
	beforeAssignments func(call int)
	assignmentCalls   int
	historyCalls      int
	graded            []review.GradePayload
}

func newFakeBackend() *fakeBackend {
	assignments, talents := batchFixture()
	return &fakeBackend{
		assignments: assignments,
		talents:     talents,
		concepts: map[string][]review.Concept{
			"a1": {{ID: "c1", Name: "Pointers"}, {ID: "c2", Name: "Iteration"}},
		},
		history: map[review.CellKey][]review.Submission{
			{AssignmentID: "a1", TalentID: "alice"}: {
				submission("s-a1-alice", "alice", false, false, day(4)),
				submission("s-a1-alice-0", "alice", true, false, day(3)),
			},
		},
	}
}

func (f *fakeBackend) AssignmentsWithSubmissions(_ context.Context, _ string) ([]review.Assignment, error) {
	f.mu.Lock()
	f.assignmentCalls++
	call := f.assignmentCalls
	hook := f.beforeAssignments
	f.mu.Unlock()
	if hook != nil {
		hook(call)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignmentsErr != nil {
		return nil, f.assignmentsErr
	}
	out := make([]review.Assignment, len(f.assignments))
	for i, a := range f.assignments {
		a.Submissions = append([]review.Submission(nil), a.Submissions...)
		out[i] = a
	}
	return out, nil
}

func (f *fakeBackend) BatchTalents(_ context.Context, _ string) ([]review.Talent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]review.Talent(nil), f.talents...), nil
}

func (f *fakeBackend) ConceptsForAssignment(_ context.Context, assignmentID string) ([]review.Concept, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.concepts[assignmentID], nil
}

func (f *fakeBackend) SubmissionHistory(_ context.Context, assignmentID, talentID string) ([]review.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	h := append([]review.Submission(nil), f.history[review.CellKey{AssignmentID: assignmentID, TalentID: talentID}]...)
	return review.MarkLatest(h), nil
}

func (f *fakeBackend) SubmitGrade(_ context.Context, assignmentID, talentID, submissionID string, grade review.GradePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	for ai := range f.assignments {
		if f.assignments[ai].ID != assignmentID {
			continue
		}
		for si := range f.assignments[ai].Submissions {
			s := &f.assignments[ai].Submissions[si]
			if s.ID == submissionID && s.TalentID == talentID {
				s.IsChecked = true
				s.IsAccepted = grade.IsAccepted
				s.Score = ptr(grade.Score)
				f.graded = append(f.graded, grade)
				return nil
			}
		}
	}
	return errors.New("submission not found")
}
