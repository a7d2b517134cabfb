package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jh125486/batchreview/pkg/contextlog"
	"github.com/jh125486/batchreview/pkg/review"
)

// FileStorage implements Storage over a YAML snapshot file. Grades are
// written back to the file.
type FileStorage struct {
	path string
	mu   sync.RWMutex
	snap Snapshot
}

// DecodeSnapshot reads a YAML snapshot.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// LoadSnapshot reads a YAML snapshot from path.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	return DecodeSnapshot(f)
}

// NewFileStorage opens the snapshot at path, creating an empty one if the
// file does not exist.
func NewFileStorage(ctx context.Context, path string) (*FileStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}

	s := &FileStorage{path: path}
	snap, err := LoadSnapshot(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.flush(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		s.snap = *snap
	}

	contextlog.From(ctx).InfoContext(ctx, "Opened snapshot storage",
		slog.String("path", path),
		slog.Int("batches", len(s.snap.Batches)),
	)

	return s, nil
}

// AssignmentsWithSubmissions returns the batch assignments with the latest
// submission per talent.
func (s *FileStorage) AssignmentsWithSubmissions(_ context.Context, batchID string) ([]review.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.snap.Batch(batchID)
	if !ok {
		return nil, fmt.Errorf("batch %q: %w", batchID, ErrNotFound)
	}
	return b.LatestAssignments(), nil
}

// BatchTalents returns the batch roster.
func (s *FileStorage) BatchTalents(_ context.Context, batchID string) ([]review.Talent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.snap.Batch(batchID)
	if !ok {
		return nil, fmt.Errorf("batch %q: %w", batchID, ErrNotFound)
	}
	return slices.Clone(b.Talents), nil
}

// ConceptsForAssignment returns the concepts rated for the assignment.
func (s *FileStorage) ConceptsForAssignment(_ context.Context, assignmentID string) ([]review.Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.snap.BatchForAssignment(assignmentID)
	if !ok {
		return nil, fmt.Errorf("assignment %q: %w", assignmentID, ErrNotFound)
	}
	return slices.Clone(b.Concepts[assignmentID]), nil
}

// SubmissionHistory returns every attempt of the talent at the assignment.
func (s *FileStorage) SubmissionHistory(_ context.Context, assignmentID, talentID string) ([]review.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.snap.BatchForAssignment(assignmentID)
	if !ok {
		return nil, fmt.Errorf("assignment %q: %w", assignmentID, ErrNotFound)
	}
	return b.History(assignmentID, talentID), nil
}

// SubmitGrade applies the grade and rewrites the snapshot file.
func (s *FileStorage) SubmitGrade(ctx context.Context, assignmentID, talentID, submissionID string, grade review.GradePayload) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.snap.BatchForAssignment(assignmentID)
	if !ok {
		return fmt.Errorf("assignment %q: %w", assignmentID, ErrNotFound)
	}
	a, _ := b.assignment(assignmentID)
	prev := slices.Clone(a.Submissions)
	if err := b.ApplyGrade(assignmentID, talentID, submissionID, grade); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		// Keep memory in line with the file left on disk.
		a.Submissions = prev
		return err
	}

	contextlog.From(ctx).InfoContext(ctx, "Saved grade",
		slog.String("submission_id", submissionID),
		slog.String("path", s.path),
		slog.Duration("duration", time.Since(start)),
	)

	return nil
}

// Import upserts every batch of snap and rewrites the snapshot file.
func (s *FileStorage) Import(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range snap.Batches {
		s.snap.Upsert(b)
	}
	if err := s.flush(); err != nil {
		return err
	}

	contextlog.From(ctx).InfoContext(ctx, "Imported snapshot",
		slog.Int("batches", len(snap.Batches)),
		slog.String("path", s.path),
	)

	return nil
}

// flush writes the snapshot atomically. Callers hold mu.
func (s *FileStorage) flush() error {
	data, err := yaml.Marshal(&s.snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Close is a no-op; every write is flushed immediately.
func (s *FileStorage) Close() error {
	return nil
}
