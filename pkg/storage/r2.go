package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/jh125486/batchreview/pkg/contextlog"
	"github.com/jh125486/batchreview/pkg/review"
)

// R2Config holds R2/S3 storage configuration
type R2Config struct {
	// For production R2/Cloudflare
	Endpoint string
	Region   string
	Bucket   string

	// Credentials
	AccessKeyID     string
	SecretAccessKey string

	// Addressing style
	UsePathStyle bool
}

const (
	batchPrefix    = "batches/"
	batchKeyFormat = batchPrefix + "%s.json"
)

// R2Storage implements Storage using Cloudflare R2 (S3-compatible). Each
// batch is one JSON object; grades are read-modify-write under a mutex.
type R2Storage struct {
	maxConcurrentFetches int
	client               *s3.Client
	bucket               string
	mu                   sync.Mutex
}

// This formula allows efficient concurrent object fetches without overwhelming the system,
// providing approximately 4 concurrent requests per available CPU core.
const maxConcurrentMultiplier = 4

// NewR2Storage creates a new R2 storage instance
func NewR2Storage(ctx context.Context, cfg *R2Config) (*R2Storage, error) {
	if cfg.Bucket == "" {
		cfg.Bucket = "batchreview-storage"
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}
	region := cfg.Region
	if cfg.UsePathStyle {
		// LocalStack typically uses us-east-1
		region = "us-east-1"
	}

	style := "virtual-hosted"
	if cfg.UsePathStyle {
		style = "path"
	}
	contextlog.From(ctx).InfoContext(ctx, "Configuring object storage",
		slog.String("addressing", style),
		slog.String("endpoint", cfg.Endpoint),
		slog.String("region", region),
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = &cfg.Endpoint
	})

	storage := &R2Storage{
		maxConcurrentFetches: maxConcurrentMultiplier * runtime.NumCPU(),
		client:               client,
		bucket:               cfg.Bucket,
	}

	if err := storage.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return storage, nil
}

// AssignmentsWithSubmissions loads the batch object and keeps the latest
// submission per talent.
func (r *R2Storage) AssignmentsWithSubmissions(ctx context.Context, batchID string) ([]review.Assignment, error) {
	b, err := r.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return b.LatestAssignments(), nil
}

// BatchTalents loads the batch roster.
func (r *R2Storage) BatchTalents(ctx context.Context, batchID string) ([]review.Talent, error) {
	b, err := r.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return b.Talents, nil
}

// ConceptsForAssignment finds the batch issuing the assignment and returns its concepts.
func (r *R2Storage) ConceptsForAssignment(ctx context.Context, assignmentID string) ([]review.Concept, error) {
	b, err := r.batchForAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return b.Concepts[assignmentID], nil
}

// SubmissionHistory returns every attempt of the talent at the assignment.
func (r *R2Storage) SubmissionHistory(ctx context.Context, assignmentID, talentID string) ([]review.Submission, error) {
	b, err := r.batchForAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return b.History(assignmentID, talentID), nil
}

// SubmitGrade rewrites the batch object holding the submission.
func (r *R2Storage) SubmitGrade(ctx context.Context, assignmentID, talentID, submissionID string, grade review.GradePayload) error {
	start := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.batchForAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if err := b.ApplyGrade(assignmentID, talentID, submissionID, grade); err != nil {
		return err
	}
	if err := r.saveBatch(ctx, b); err != nil {
		return err
	}

	contextlog.From(ctx).InfoContext(ctx, "Saved grade",
		slog.String("submission_id", submissionID),
		slog.String("batch_id", b.ID),
		slog.String("bucket", r.bucket),
		slog.Duration("duration", time.Since(start)),
	)

	return nil
}

// Import writes one object per batch.
func (r *R2Storage) Import(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	wg, ctx := errgroup.WithContext(ctx)
	wg.SetLimit(r.maxConcurrentFetches)
	for i := range snap.Batches {
		b := &snap.Batches[i]
		wg.Go(func() error {
			return r.saveBatch(ctx, b)
		})
	}
	if err := wg.Wait(); err != nil {
		return err
	}

	contextlog.From(ctx).InfoContext(ctx, "Imported snapshot",
		slog.Int("batches", len(snap.Batches)),
		slog.String("bucket", r.bucket),
	)

	return nil
}

func (r *R2Storage) saveBatch(ctx context.Context, b *Batch) error {
	if b.ID == "" {
		return fmt.Errorf("batch ID is required")
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	key := fmt.Sprintf(batchKeyFormat, b.ID)
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &r.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save batch to R2: %w", err)
	}
	return nil
}

func (r *R2Storage) loadBatch(ctx context.Context, batchID string) (*Batch, error) {
	start := time.Now()
	key := fmt.Sprintf(batchKeyFormat, batchID)

	resp, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &r.bucket,
		Key:    &key,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("batch %q: %w", batchID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load batch from R2: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	contextlog.From(ctx).DebugContext(ctx, "Loaded batch",
		slog.String("batch_id", batchID),
		slog.String("bucket", r.bucket),
		slog.Duration("duration", time.Since(start)),
	)

	return &b, nil
}

// collectBatchIDs lists every stored batch ID.
func (r *R2Storage) collectBatchIDs(ctx context.Context) ([]string, error) {
	var ids []string
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: &r.bucket,
		Prefix: aws.String(batchPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			id, ok := strings.CutSuffix(strings.TrimPrefix(*obj.Key, batchPrefix), ".json")
			if !ok || id == "" {
				continue
			}
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// batchForAssignment scans every batch object concurrently.
func (r *R2Storage) batchForAssignment(ctx context.Context, assignmentID string) (*Batch, error) {
	ids, err := r.collectBatchIDs(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		found []*Batch
	)
	wg, gctx := errgroup.WithContext(ctx)
	wg.SetLimit(r.maxConcurrentFetches)
	for _, id := range ids {
		wg.Go(func() error {
			b, err := r.loadBatch(gctx, id)
			if err != nil {
				contextlog.From(ctx).WarnContext(ctx, "Failed to load batch",
					slog.String("batch_id", id),
					slog.Any("error", err),
				)
				return nil // Don't fail entire scan on single error
			}
			if _, ok := b.assignment(assignmentID); !ok {
				return nil
			}
			mu.Lock()
			found = append(found, b)
			mu.Unlock()
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("assignment %q: %w", assignmentID, ErrNotFound)
	}
	slices.SortFunc(found, func(x, y *Batch) int { return strings.Compare(x.ID, y.ID) })
	return found[0], nil
}

// ensureBucketExists checks if the bucket exists and creates it if it doesn't
func (r *R2Storage) ensureBucketExists(ctx context.Context) error {
	// HeadBucket might not work with all S3-compatible services
	_, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  &r.bucket,
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		contextlog.From(ctx).InfoContext(ctx, "Bucket does not exist, attempting to create", slog.String("bucket", r.bucket))

		_, createErr := r.client.CreateBucket(ctx, &s3.CreateBucketInput{
			Bucket: &r.bucket,
		})

		if createErr != nil {
			return fmt.Errorf("failed to create bucket %s: %w", r.bucket, createErr)
		}

		contextlog.From(ctx).InfoContext(ctx, "Successfully created bucket", slog.String("bucket", r.bucket))
		return nil
	}

	contextlog.From(ctx).InfoContext(ctx, "Bucket already exists", slog.String("bucket", r.bucket))
	return nil
}

// Close closes the storage connection (no-op for R2/S3)
func (r *R2Storage) Close() error {
	return nil
}
