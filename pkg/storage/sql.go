package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/jh125486/batchreview/pkg/contextlog"
	"github.com/jh125486/batchreview/pkg/review"
)

// SQLStorage implements Storage using SQL database (PostgreSQL)
type SQLStorage struct {
	db *sql.DB
}

// NewSQLStorage creates a new SQL storage instance from a DATABASE_URL.
// It uses the pq driver's NewConnector for proper driver-specific connection handling.
func NewSQLStorage(ctx context.Context, connStr string) (*SQLStorage, error) {
	if connStr == "" {
		return nil, fmt.Errorf("database connection string is required")
	}
	host, dbname := parseConnConfig(connStr)
	l := contextlog.From(ctx).With(
		slog.String("host", host),
		slog.String("database", dbname),
	)

	connector, err := pq.NewConnector(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	db := sql.OpenDB(connector)

	// Configure connection pool for small instances
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			l.ErrorContext(ctx, "failed to close database after ping error", slog.Any("error", closeErr))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	storage := &SQLStorage{db: db}

	if err := storage.ensureTablesExist(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure tables exist: %w", err)
	}

	l.InfoContext(ctx, "Connected to SQL database")

	return storage, nil
}

// parseConnConfig extracts host and database name from a connection config string.
// Supports both URL format (returns key=value pairs) and DSN format (user=... host=... dbname=...).
func parseConnConfig(configStr string) (host, dbname string) {
	config, err := pq.ParseURL(configStr)
	if err != nil {
		config = configStr
	}

	parts := make(map[string]string)
	for pair := range strings.FieldsSeq(config) {
		if key, val, found := strings.Cut(pair, "="); found {
			parts[key] = strings.Trim(val, "'")
		}
	}

	return parts["host"], parts["dbname"]
}

func (s *SQLStorage) ensureTablesExist(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS talents (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT ''
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS batch_talents (
			batch_id TEXT NOT NULL,
			talent_id TEXT NOT NULL REFERENCES talents(id),
			position INT NOT NULL,
			PRIMARY KEY (batch_id, talent_id)
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS assignments (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			due_date TIMESTAMPTZ NOT NULL,
			assigned_date TIMESTAMPTZ NOT NULL,
			question_score FLOAT8
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS concepts (
			assignment_id TEXT NOT NULL REFERENCES assignments(id),
			id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			position INT NOT NULL,
			PRIMARY KEY (assignment_id, id)
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			assignment_id TEXT NOT NULL REFERENCES assignments(id),
			talent_id TEXT NOT NULL,
			is_checked BOOLEAN NOT NULL DEFAULT FALSE,
			is_accepted BOOLEAN NOT NULL DEFAULT FALSE,
			submitted_on TIMESTAMPTZ NOT NULL,
			score FLOAT8,
			faculty_remarks TEXT NOT NULL DEFAULT '',
			faculty_voice_note TEXT NOT NULL DEFAULT '',
			concept_ratings JSONB NOT NULL DEFAULT '[]',
			graded_at TIMESTAMPTZ
		)
		`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_batch ON assignments(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_latest ON submissions(assignment_id, talent_id, submitted_on DESC)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	contextlog.From(ctx).InfoContext(ctx, "Ensured review tables exist")

	return nil
}

// AssignmentsWithSubmissions loads the batch assignments and the latest
// submission of every talent per assignment.
func (s *SQLStorage) AssignmentsWithSubmissions(ctx context.Context, batchID string) ([]review.Assignment, error) {
	start := time.Now()

	const q = `
		SELECT id, title, due_date, assigned_date, question_score
		FROM assignments
		WHERE batch_id = $1
		ORDER BY assigned_date DESC, id
	`
	rows, err := s.db.QueryContext(ctx, q, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var (
		assignments []review.Assignment
		ids         []string
		byID        = make(map[string]int)
	)
	for rows.Next() {
		var (
			a  review.Assignment
			qs sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.DueDate, &a.AssignedDate, &qs); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if qs.Valid {
			a.QuestionScore = &qs.Float64
		}
		byID[a.ID] = len(assignments)
		ids = append(ids, a.ID)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	if len(assignments) == 0 {
		return assignments, nil
	}

	const latestQ = `
		SELECT DISTINCT ON (assignment_id, talent_id)
			id, assignment_id, talent_id, is_checked, is_accepted, submitted_on,
			score, faculty_remarks, faculty_voice_note, concept_ratings
		FROM submissions
		WHERE assignment_id = ANY($1)
		ORDER BY assignment_id, talent_id, submitted_on DESC, id DESC
	`
	subs, err := s.querySubmissions(ctx, latestQ, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		i := byID[sub.BatchTopicAssignmentID]
		assignments[i].Submissions = append(assignments[i].Submissions, sub)
	}

	contextlog.From(ctx).InfoContext(ctx, "Loaded batch assignments",
		slog.String("batch_id", batchID),
		slog.Int("assignments", len(assignments)),
		slog.Int("submissions", len(subs)),
		slog.Duration("duration", time.Since(start)),
	)

	return assignments, nil
}

// BatchTalents loads the batch roster in enrollment order.
func (s *SQLStorage) BatchTalents(ctx context.Context, batchID string) ([]review.Talent, error) {
	const q = `
		SELECT t.id, t.first_name, t.last_name, t.email
		FROM batch_talents bt
		JOIN talents t ON t.id = bt.talent_id
		WHERE bt.batch_id = $1
		ORDER BY bt.position, t.id
	`
	rows, err := s.db.QueryContext(ctx, q, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query talents: %w", err)
	}
	defer rows.Close()

	var talents []review.Talent
	for rows.Next() {
		var t review.Talent
		if err := rows.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Email); err != nil {
			return nil, fmt.Errorf("failed to scan talent: %w", err)
		}
		talents = append(talents, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return talents, nil
}

// ConceptsForAssignment loads the ordered concepts of the assignment.
func (s *SQLStorage) ConceptsForAssignment(ctx context.Context, assignmentID string) ([]review.Concept, error) {
	const q = `SELECT id, name FROM concepts WHERE assignment_id = $1 ORDER BY position, id`
	rows, err := s.db.QueryContext(ctx, q, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query concepts: %w", err)
	}
	defer rows.Close()

	var concepts []review.Concept
	for rows.Next() {
		var c review.Concept
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan concept: %w", err)
		}
		concepts = append(concepts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return concepts, nil
}

// SubmissionHistory loads every attempt of the talent, most recent first.
func (s *SQLStorage) SubmissionHistory(ctx context.Context, assignmentID, talentID string) ([]review.Submission, error) {
	const q = `
		SELECT id, assignment_id, talent_id, is_checked, is_accepted, submitted_on,
			score, faculty_remarks, faculty_voice_note, concept_ratings
		FROM submissions
		WHERE assignment_id = $1 AND talent_id = $2
		ORDER BY submitted_on DESC, id DESC
	`
	history, err := s.querySubmissions(ctx, q, assignmentID, talentID)
	if err != nil {
		return nil, err
	}
	return review.MarkLatest(history), nil
}

func (s *SQLStorage) querySubmissions(ctx context.Context, q string, args ...any) ([]review.Submission, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []review.Submission
	for rows.Next() {
		var (
			sub     review.Submission
			score   sql.NullFloat64
			ratings []byte
		)
		if err := rows.Scan(
			&sub.ID, &sub.BatchTopicAssignmentID, &sub.TalentID,
			&sub.IsChecked, &sub.IsAccepted, &sub.SubmittedOn,
			&score, &sub.FacultyRemarks, &sub.FacultyVoiceNote, &ratings,
		); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		if score.Valid {
			sub.Score = &score.Float64
		}
		if len(ratings) > 0 {
			if err := json.Unmarshal(ratings, &sub.ConceptRatings); err != nil {
				return nil, fmt.Errorf("failed to decode concept ratings of %s: %w", sub.ID, err)
			}
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return subs, nil
}

// SubmitGrade records the grading action on the addressed submission.
func (s *SQLStorage) SubmitGrade(ctx context.Context, assignmentID, talentID, submissionID string, grade review.GradePayload) error {
	start := time.Now()

	ratings, err := json.Marshal(nonNil(grade.ConceptRatings))
	if err != nil {
		return fmt.Errorf("failed to marshal concept ratings: %w", err)
	}

	const q = `
		UPDATE submissions SET
			is_checked = TRUE,
			is_accepted = $1,
			score = $2,
			faculty_remarks = $3,
			faculty_voice_note = $4,
			concept_ratings = $5,
			graded_at = $6
		WHERE id = $7 AND assignment_id = $8 AND talent_id = $9
	`
	res, err := s.db.ExecContext(ctx, q,
		grade.IsAccepted, grade.Score, grade.FacultyRemarks, grade.FacultyVoiceNote, string(ratings), time.Now(),
		submissionID, assignmentID, talentID,
	)
	if err != nil {
		return fmt.Errorf("failed to save grade to database: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to save grade to database: %w", err)
	} else if n == 0 {
		return fmt.Errorf("submission %q of talent %q: %w", submissionID, talentID, ErrNotFound)
	}

	contextlog.From(ctx).InfoContext(ctx, "Saved grade",
		slog.String("submission_id", submissionID),
		slog.Float64("score", grade.Score),
		slog.Bool("accepted", grade.IsAccepted),
		slog.Duration("duration", time.Since(start)),
	)

	return nil
}

// Import upserts every batch of snap in a single transaction.
func (s *SQLStorage) Import(ctx context.Context, snap *Snapshot) (err error) {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				contextlog.From(ctx).ErrorContext(ctx, "failed to roll back import", slog.Any("error", rbErr))
			}
		}
	}()

	for i := range snap.Batches {
		if err = importBatch(ctx, tx, &snap.Batches[i]); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	contextlog.From(ctx).InfoContext(ctx, "Imported snapshot", slog.Int("batches", len(snap.Batches)))

	return nil
}

func importBatch(ctx context.Context, tx *sql.Tx, b *Batch) error {
	const (
		talentQ = `
			INSERT INTO talents (id, first_name, last_name, email) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				email = EXCLUDED.email
		`
		enrollQ = `
			INSERT INTO batch_talents (batch_id, talent_id, position) VALUES ($1, $2, $3)
			ON CONFLICT (batch_id, talent_id) DO UPDATE SET position = EXCLUDED.position
		`
		assignmentQ = `
			INSERT INTO assignments (id, batch_id, title, due_date, assigned_date, question_score)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				batch_id = EXCLUDED.batch_id,
				title = EXCLUDED.title,
				due_date = EXCLUDED.due_date,
				assigned_date = EXCLUDED.assigned_date,
				question_score = EXCLUDED.question_score
		`
		conceptQ = `
			INSERT INTO concepts (assignment_id, id, name, position) VALUES ($1, $2, $3, $4)
			ON CONFLICT (assignment_id, id) DO UPDATE SET
				name = EXCLUDED.name,
				position = EXCLUDED.position
		`
		submissionQ = `
			INSERT INTO submissions (id, assignment_id, talent_id, is_checked, is_accepted, submitted_on,
				score, faculty_remarks, faculty_voice_note, concept_ratings)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				is_checked = EXCLUDED.is_checked,
				is_accepted = EXCLUDED.is_accepted,
				submitted_on = EXCLUDED.submitted_on,
				score = EXCLUDED.score,
				faculty_remarks = EXCLUDED.faculty_remarks,
				faculty_voice_note = EXCLUDED.faculty_voice_note,
				concept_ratings = EXCLUDED.concept_ratings
		`
	)

	for i, t := range b.Talents {
		if _, err := tx.ExecContext(ctx, talentQ, t.ID, t.FirstName, t.LastName, t.Email); err != nil {
			return fmt.Errorf("failed to import talent %s: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, enrollQ, b.ID, t.ID, i); err != nil {
			return fmt.Errorf("failed to enroll talent %s: %w", t.ID, err)
		}
	}

	for _, a := range b.Assignments {
		if _, err := tx.ExecContext(ctx, assignmentQ,
			a.ID, b.ID, a.Title, a.DueDate, a.AssignedDate, nullFloat(a.QuestionScore),
		); err != nil {
			return fmt.Errorf("failed to import assignment %s: %w", a.ID, err)
		}
		for i, c := range b.Concepts[a.ID] {
			if _, err := tx.ExecContext(ctx, conceptQ, a.ID, c.ID, c.Name, i); err != nil {
				return fmt.Errorf("failed to import concept %s: %w", c.ID, err)
			}
		}
		for _, sub := range a.Submissions {
			ratings, err := json.Marshal(nonNil(sub.ConceptRatings))
			if err != nil {
				return fmt.Errorf("failed to marshal concept ratings: %w", err)
			}
			if _, err := tx.ExecContext(ctx, submissionQ,
				sub.ID, a.ID, sub.TalentID, sub.IsChecked, sub.IsAccepted, sub.SubmittedOn,
				nullFloat(sub.Score), sub.FacultyRemarks, sub.FacultyVoiceNote, string(ratings),
			); err != nil {
				return fmt.Errorf("failed to import submission %s: %w", sub.ID, err)
			}
		}
	}

	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nonNil(r []review.ConceptRating) []review.ConceptRating {
	if r == nil {
		return []review.ConceptRating{}
	}
	return r
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	return s.db.Close()
}
