package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jh125486/batchreview/pkg/contextlog"
	"github.com/jh125486/batchreview/pkg/review"
	"github.com/jh125486/batchreview/pkg/storage"
)

const snapshotYAML = `
batches:
  - id: batch-1
    talents:
      - id: t1
        first_name: Ada
        last_name: Lovelace
      - id: t2
        first_name: Alan
        last_name: Turing
    assignments:
      - id: a1
        title: Linked lists
        due_date: 2024-03-05T12:00:00Z
        assigned_date: 2024-03-01T12:00:00Z
        question_score: 100
        submissions:
          - id: s1
            talent_id: t1
            batch_topic_assignment_id: a1
            submitted_on: 2024-03-02T12:00:00Z
            is_checked: true
          - id: s2
            talent_id: t1
            batch_topic_assignment_id: a1
            submitted_on: 2024-03-04T12:00:00Z
          - id: s3
            talent_id: t2
            batch_topic_assignment_id: a1
            submitted_on: 2024-03-03T12:00:00Z
      - id: a2
        title: Trees
        due_date: 2024-03-09T12:00:00Z
        assigned_date: 2024-03-04T12:00:00Z
    concepts:
      a1:
        - id: c1
          name: Pointers
        - id: c2
          name: Iteration
`

func testSnapshot(t *testing.T) *storage.Snapshot {
	t.Helper()
	snap, err := storage.DecodeSnapshot(strings.NewReader(snapshotYAML))
	require.NoError(t, err)
	return snap
}

func TestDecodeSnapshot(t *testing.T) {
	t.Parallel()

	snap := testSnapshot(t)
	require.Len(t, snap.Batches, 1)
	b := snap.Batches[0]
	assert.Equal(t, "batch-1", b.ID)
	assert.Len(t, b.Talents, 2)
	require.Len(t, b.Assignments, 2)
	assert.Equal(t, 100.0, b.Assignments[0].MaxScore())
	assert.Nil(t, b.Assignments[1].QuestionScore)
	assert.Equal(t, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), b.Assignments[0].DueDate.UTC())
	assert.Len(t, b.Concepts["a1"], 2)

	empty, err := storage.DecodeSnapshot(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Batches)

	_, err = storage.DecodeSnapshot(strings.NewReader("batches: {"))
	assert.Error(t, err)
}

func TestBatch_LatestAssignments(t *testing.T) {
	t.Parallel()

	b, ok := testSnapshot(t).Batch("batch-1")
	require.True(t, ok)

	got := b.LatestAssignments()
	require.Len(t, got, 2)
	require.Len(t, got[0].Submissions, 2)
	assert.Equal(t, "s2", got[0].Submissions[0].ID)
	assert.Equal(t, "s3", got[0].Submissions[1].ID)
	assert.Empty(t, got[1].Submissions)

	// The batch itself keeps every attempt.
	assert.Len(t, b.Assignments[0].Submissions, 3)
}

func TestBatch_History(t *testing.T) {
	t.Parallel()

	b, ok := testSnapshot(t).Batch("batch-1")
	require.True(t, ok)

	history := b.History("a1", "t1")
	require.Len(t, history, 2)
	assert.Equal(t, "s2", history[0].ID)
	assert.True(t, history[0].IsLatest)
	assert.Equal(t, "s1", history[1].ID)
	assert.False(t, history[1].IsLatest)

	assert.Empty(t, b.History("a1", "nobody"))
	assert.Empty(t, b.History("missing", "t1"))
}

func TestBatch_LatestMatchesHistoryOnTies(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	b := storage.Batch{
		ID:      "batch-1",
		Talents: []review.Talent{{ID: "t1"}},
		Assignments: []review.Assignment{{
			ID: "a1",
			Submissions: []review.Submission{
				{ID: "s2", TalentID: "t1", SubmittedOn: at},
				{ID: "s1", TalentID: "t1", SubmittedOn: at},
				{ID: "s0", TalentID: "t1", SubmittedOn: at.Add(-time.Hour)},
			},
		}},
	}

	latest := b.LatestAssignments()
	require.Len(t, latest, 1)
	require.Len(t, latest[0].Submissions, 1)
	history := b.History("a1", "t1")
	require.Len(t, history, 3)

	assert.Equal(t, "s2", latest[0].Submissions[0].ID)
	assert.Equal(t, history[0].ID, latest[0].Submissions[0].ID)
	assert.True(t, history[0].IsLatest)
}

func TestBatch_ApplyGrade(t *testing.T) {
	t.Parallel()

	grade := review.GradePayload{
		FacultyRemarks: "Clean",
		Score:          85,
		IsAccepted:     true,
		ConceptRatings: []review.ConceptRating{review.Rating("c1", 9), review.Rating("c2", 8)},
	}

	tests := []struct {
		name         string
		assignmentID string
		talentID     string
		submissionID string
		wantErr      bool
	}{
		{name: "graded", assignmentID: "a1", talentID: "t1", submissionID: "s2"},
		{name: "unknown_assignment", assignmentID: "zz", talentID: "t1", submissionID: "s2", wantErr: true},
		{name: "wrong_talent", assignmentID: "a1", talentID: "t2", submissionID: "s2", wantErr: true},
		{name: "unknown_submission", assignmentID: "a1", talentID: "t1", submissionID: "s9", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, ok := testSnapshot(t).Batch("batch-1")
			require.True(t, ok)

			err := b.ApplyGrade(tt.assignmentID, tt.talentID, tt.submissionID, grade)
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrNotFound)
				return
			}
			require.NoError(t, err)
			s := b.History("a1", "t1")[0]
			assert.True(t, s.IsChecked)
			assert.True(t, s.IsAccepted)
			require.NotNil(t, s.Score)
			assert.Equal(t, 85.0, *s.Score)
			assert.Equal(t, "Clean", s.FacultyRemarks)
			assert.Len(t, s.ConceptRatings, 2)
		})
	}
}

func TestSnapshot_Upsert(t *testing.T) {
	t.Parallel()

	snap := testSnapshot(t)
	snap.Upsert(storage.Batch{ID: "batch-2"})
	snap.Upsert(storage.Batch{ID: "batch-1", Talents: []review.Talent{{ID: "t9"}}})

	require.Len(t, snap.Batches, 2)
	b, ok := snap.Batch("batch-1")
	require.True(t, ok)
	assert.Equal(t, []review.Talent{{ID: "t9"}}, b.Talents)

	_, ok = snap.BatchForAssignment("a1")
	assert.False(t, ok)
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(snapshotYAML), 0o600))
	return path
}

func TestNewFileStorage(t *testing.T) {
	t.Parallel()
	ctx := contextlog.With(t.Context(), contextlog.DiscardLogger())

	_, err := storage.NewFileStorage(ctx, "")
	assert.Error(t, err)

	fresh := filepath.Join(t.TempDir(), "new.yaml")
	s, err := storage.NewFileStorage(ctx, fresh)
	require.NoError(t, err)
	assert.FileExists(t, fresh)
	_, err = s.BatchTalents(ctx, "batch-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("batches: {"), 0o600))
	_, err = storage.NewFileStorage(ctx, bad)
	assert.Error(t, err)
}

func TestFileStorage_Backend(t *testing.T) {
	t.Parallel()
	ctx := contextlog.With(t.Context(), contextlog.DiscardLogger())

	s, err := storage.NewFileStorage(ctx, writeSnapshot(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	talents, err := s.BatchTalents(ctx, "batch-1")
	require.NoError(t, err)
	assert.Len(t, talents, 2)

	assignments, err := s.AssignmentsWithSubmissions(ctx, "batch-1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Len(t, assignments[0].Submissions, 2)

	concepts, err := s.ConceptsForAssignment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []review.Concept{{ID: "c1", Name: "Pointers"}, {ID: "c2", Name: "Iteration"}}, concepts)

	concepts, err = s.ConceptsForAssignment(ctx, "a2")
	require.NoError(t, err)
	assert.Empty(t, concepts)

	_, err = s.ConceptsForAssignment(ctx, "zz")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	history, err := s.SubmissionHistory(ctx, "a1", "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].IsLatest)

	_, err = s.AssignmentsWithSubmissions(ctx, "batch-9")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFileStorage_SubmitGradePersists(t *testing.T) {
	t.Parallel()
	ctx := contextlog.With(t.Context(), contextlog.DiscardLogger())
	path := writeSnapshot(t)

	s, err := storage.NewFileStorage(ctx, path)
	require.NoError(t, err)

	grade := review.GradePayload{
		FacultyRemarks:   "Resubmit with tests",
		Score:            40,
		FacultyVoiceNote: "https://cdn.example.com/v.ogg",
	}
	require.NoError(t, s.SubmitGrade(ctx, "a1", "t2", "s3", grade))
	assert.ErrorIs(t, s.SubmitGrade(ctx, "a1", "t2", "s1", grade), storage.ErrNotFound)

	reopened, err := storage.NewFileStorage(ctx, path)
	require.NoError(t, err)
	history, err := reopened.SubmissionHistory(ctx, "a1", "t2")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsChecked)
	assert.False(t, history[0].IsAccepted)
	require.NotNil(t, history[0].Score)
	assert.Equal(t, 40.0, *history[0].Score)
	assert.Equal(t, "https://cdn.example.com/v.ogg", history[0].FacultyVoiceNote)
}

func TestFileStorage_SubmitGradeWriteFailureKeepsState(t *testing.T) {
	t.Parallel()
	ctx := contextlog.With(t.Context(), contextlog.DiscardLogger())
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.Mkdir(dir, 0o700))
	path := filepath.Join(dir, "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(snapshotYAML), 0o600))

	s, err := storage.NewFileStorage(ctx, path)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	grade := review.GradePayload{FacultyRemarks: "Well done", Score: 90, IsAccepted: true}
	require.Error(t, s.SubmitGrade(ctx, "a1", "t1", "s2", grade))

	history, err := s.SubmissionHistory(ctx, "a1", "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "s2", history[0].ID)
	assert.False(t, history[0].IsChecked)
	assert.False(t, history[0].IsAccepted)
	assert.Nil(t, history[0].Score)
	assert.Empty(t, history[0].FacultyRemarks)

	assignments, err := s.AssignmentsWithSubmissions(ctx, "batch-1")
	require.NoError(t, err)
	assert.False(t, assignments[0].Submissions[0].IsChecked)
}

func TestFileStorage_Import(t *testing.T) {
	t.Parallel()
	ctx := contextlog.With(t.Context(), contextlog.DiscardLogger())
	path := filepath.Join(t.TempDir(), "import.yaml")

	s, err := storage.NewFileStorage(ctx, path)
	require.NoError(t, err)
	assert.Error(t, s.Import(ctx, nil))
	require.NoError(t, s.Import(ctx, testSnapshot(t)))

	snap, err := storage.LoadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, snap.Batches, 1)
	talents, assignments, submissions := snap.Batches[0].Stats()
	assert.Equal(t, 2, talents)
	assert.Equal(t, 2, assignments)
	assert.Equal(t, 3, submissions)
}
