package review_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jh125486/batchreview/pkg/review"
)

func TestProjectByAssignment(t *testing.T) {
	t.Parallel()

	assignments, talents := batchFixture()
	m := review.Build(assignments, talents)

	tests := []struct {
		name          string
		sel           review.Selection
		wantPending   []string
		wantUnchecked []string
		wantCompleted []string
		wantAll       []string
		wantFocus     review.Category
	}{
		{
			name:          "alice",
			sel:           review.Selection{TalentID: "alice", AssignmentID: "a2"},
			wantPending:   []string{"a3"},
			wantUnchecked: []string{"a1"},
			wantCompleted: []string{"a2"},
			wantAll:       []string{"a2", "a3", "a1"},
			wantFocus:     review.Completed,
		},
		{
			name:          "bob_rejected_is_pending",
			sel:           review.Selection{TalentID: "bob", AssignmentID: "a1"},
			wantPending:   []string{"a2", "a1"},
			wantUnchecked: []string{"a3"},
			wantCompleted: []string{},
			wantAll:       []string{"a2", "a3", "a1"},
			wantFocus:     review.Pending,
		},
		{
			name:          "carol_no_assignment_selected",
			sel:           review.Selection{TalentID: "carol"},
			wantPending:   []string{"a1"},
			wantUnchecked: []string{},
			wantCompleted: []string{"a2", "a3"},
			wantAll:       []string{"a2", "a3", "a1"},
		},
		{
			name:          "unknown_talent",
			sel:           review.Selection{TalentID: "dave", AssignmentID: "a1"},
			wantPending:   []string{},
			wantUnchecked: []string{},
			wantCompleted: []string{},
			wantAll:       []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := review.ProjectByAssignment(m, tt.sel)
			assert.Equal(t, tt.wantPending, ids(v.Pending))
			assert.Equal(t, tt.wantUnchecked, ids(v.Unchecked))
			assert.Equal(t, tt.wantCompleted, ids(v.Completed))
			assert.Equal(t, tt.wantAll, ids(v.All))
			assert.Equal(t, tt.wantFocus, v.Focus)
		})
	}
}

func TestProjectByTalent(t *testing.T) {
	t.Parallel()

	assignments, talents := batchFixture()
	m := review.Build(assignments, talents)

	tests := []struct {
		name          string
		sel           review.Selection
		wantPending   []string
		wantUnchecked []string
		wantCompleted []string
		wantFocus     review.Category
	}{
		{
			name:          "a1",
			sel:           review.Selection{AssignmentID: "a1", TalentID: "alice"},
			wantPending:   []string{"bob", "carol"},
			wantUnchecked: []string{"alice"},
			wantCompleted: []string{},
			wantFocus:     review.Unchecked,
		},
		{
			name:          "a2_roster_order",
			sel:           review.Selection{AssignmentID: "a2", TalentID: "bob"},
			wantPending:   []string{"bob"},
			wantUnchecked: []string{},
			wantCompleted: []string{"alice", "carol"},
			wantFocus:     review.Pending,
		},
		{
			name:          "unknown_assignment",
			sel:           review.Selection{AssignmentID: "a9"},
			wantPending:   []string{},
			wantUnchecked: []string{},
			wantCompleted: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := review.ProjectByTalent(m, tt.sel)
			assert.Equal(t, tt.wantPending, ids(v.Pending))
			assert.Equal(t, tt.wantUnchecked, ids(v.Unchecked))
			assert.Equal(t, tt.wantCompleted, ids(v.Completed))
			assert.Equal(t, tt.wantFocus, v.Focus)
		})
	}
}

func TestProject_NilMatrix(t *testing.T) {
	t.Parallel()

	av := review.ProjectByAssignment(nil, review.Selection{TalentID: "alice"})
	assert.NotNil(t, av.Pending)
	assert.Empty(t, av.Pending)
	assert.Empty(t, av.Unchecked)
	assert.Empty(t, av.Completed)
	assert.Empty(t, av.All)

	tv := review.ProjectByTalent(nil, review.Selection{AssignmentID: "a1"})
	assert.NotNil(t, tv.Pending)
	assert.Empty(t, tv.Pending)
	assert.Empty(t, tv.Unchecked)
	assert.Empty(t, tv.Completed)
}

func TestProjectByAssignment_DueDateOrder(t *testing.T) {
	t.Parallel()

	assignments := []review.Assignment{
		{ID: "mar05", DueDate: day(5)},
		{ID: "mar01", DueDate: day(1)},
		{ID: "mar10", DueDate: day(10)},
		{ID: "mar05-b", DueDate: day(5)},
	}
	m := review.Build(assignments, []review.Talent{{ID: "t1"}})

	v := review.ProjectByAssignment(m, review.Selection{TalentID: "t1"})
	assert.Equal(t, []string{"mar01", "mar05", "mar05-b", "mar10"}, ids(v.Pending))
}

func TestProjectByAssignment_AllByAssignedDateDescending(t *testing.T) {
	t.Parallel()

	assignments := []review.Assignment{
		{ID: "old", AssignedDate: day(1)},
		{ID: "new", AssignedDate: day(9)},
		{ID: "mid", AssignedDate: day(4)},
		{ID: "mid-b", AssignedDate: day(4)},
	}
	m := review.Build(assignments, []review.Talent{{ID: "t1"}})

	v := review.ProjectByAssignment(m, review.Selection{TalentID: "t1"})
	assert.Equal(t, []string{"new", "mid", "mid-b", "old"}, ids(v.All))
}

// randomBatch generates a batch where every talent has a random cell state
// for every assignment.
func randomBatch(r *rand.Rand, nAssignments, nTalents int) ([]review.Assignment, []review.Talent) {
	talents := make([]review.Talent, nTalents)
	for i := range talents {
		talents[i] = review.Talent{ID: fmt.Sprintf("t%d", i)}
	}
	assignments := make([]review.Assignment, nAssignments)
	for i := range assignments {
		a := review.Assignment{
			ID:           fmt.Sprintf("a%d", i),
			DueDate:      day(1 + r.IntN(28)),
			AssignedDate: day(1 + r.IntN(28)),
		}
		for _, tal := range talents {
			switch r.IntN(4) {
			case 0:
				// absent
			case 1:
				a.Submissions = append(a.Submissions, submission(a.ID+tal.ID, tal.ID, false, r.IntN(2) == 0, day(2)))
			case 2:
				a.Submissions = append(a.Submissions, submission(a.ID+tal.ID, tal.ID, true, false, day(2)))
			case 3:
				a.Submissions = append(a.Submissions, submission(a.ID+tal.ID, tal.ID, true, true, day(2)))
			}
		}
		assignments[i] = a
	}
	return assignments, talents
}

func TestProject_PartitionInvariant(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(7, 11))
	for round := range 25 {
		assignments, talents := randomBatch(r, 1+r.IntN(8), 1+r.IntN(8))
		m := review.Build(assignments, talents)

		for _, a := range assignments {
			v := review.ProjectByTalent(m, review.Selection{AssignmentID: a.ID})
			got := append(append(ids(v.Pending), ids(v.Unchecked)...), ids(v.Completed)...)
			assert.ElementsMatch(t, ids(talents), got, "round %d assignment %s", round, a.ID)
		}
		for _, tal := range talents {
			v := review.ProjectByAssignment(m, review.Selection{TalentID: tal.ID})
			got := append(append(ids(v.Pending), ids(v.Unchecked)...), ids(v.Completed)...)
			assert.ElementsMatch(t, ids(assignments), got, "round %d talent %s", round, tal.ID)
			assert.ElementsMatch(t, ids(assignments), ids(v.All), "round %d talent %s", round, tal.ID)
		}
	}
}

func TestProject_ViewsAgree(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(3, 5))
	assignments, talents := randomBatch(r, 6, 6)
	m := review.Build(assignments, talents)

	for _, a := range assignments {
		for _, tal := range talents {
			sel := review.Selection{TalentID: tal.ID, AssignmentID: a.ID}
			assert.Equal(t,
				review.ProjectByAssignment(m, sel).Focus,
				review.ProjectByTalent(m, sel).Focus,
				"pair %s/%s", a.ID, tal.ID)
		}
	}
}
