// Package client talks to a remote review service. Client satisfies
// review.Backend so a review session can run against the server.
package client

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/jh125486/batchreview/pkg/api"
	"github.com/jh125486/batchreview/pkg/contextlog"
	mw "github.com/jh125486/batchreview/pkg/middleware"
	"github.com/jh125486/batchreview/pkg/review"
	"github.com/jh125486/batchreview/pkg/storage"
)

const defaultTimeout = 30 * time.Second

// Client is a review.Backend backed by the review service.
type Client struct {
	svc api.ReviewServiceClient
	// BatchID scopes grade submissions so the server can check the question maximum.
	BatchID string
}

var _ review.Backend = (*Client)(nil)

// New creates a client for the server at serverURL. A nil httpClient gets
// the TLS 1.2 transport the server expects. version is compared against the
// server's X-Version header.
func New(serverURL, version string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{
		svc: api.NewReviewServiceClient(httpClient, serverURL,
			connect.WithInterceptors(
				mw.PropagateRequestID(),
				mw.WarnVersionMismatch(version),
			),
		),
	}
}

// NewHTTPClient returns an HTTP client using the TLS settings the server expects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: defaultTLSTransport(),
		Timeout:   defaultTimeout,
	}
}

// defaultTLSTransport clones http.DefaultTransport with a TLS config that mirrors the
// server's downgraded TLS settings so clients can communicate through strict proxies.
func defaultTLSTransport() *http.Transport {
	if transport, ok := http.DefaultTransport.(*http.Transport); ok {
		clone := transport.Clone()
		clone.TLSClientConfig = clientTLSConfig()
		return clone
	}
	return &http.Transport{TLSClientConfig: clientTLSConfig()}
}

// clientTLSConfig matches the server TLS policy (TLS 1.2 + modern cipher suites) to keep
// Connect requests compatible with corporate middleboxes that block TLS 1.3.
func clientTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		},
	}
}

// wrap annotates a failed call. NotFound answers also match storage.ErrNotFound.
func wrap(op string, err error) error {
	if connect.CodeOf(err) == connect.CodeNotFound {
		return fmt.Errorf("failed to %s: %w: %w", op, storage.ErrNotFound, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// AssignmentsWithSubmissions implements review.AssignmentSource.
func (c *Client) AssignmentsWithSubmissions(ctx context.Context, batchID string) ([]review.Assignment, error) {
	resp, err := c.svc.ListAssignments(ctx, connect.NewRequest(&api.ListAssignmentsRequest{BatchID: batchID}))
	if err != nil {
		return nil, wrap("list assignments", err)
	}
	return resp.Msg.Assignments, nil
}

// BatchTalents implements review.TalentRoster.
func (c *Client) BatchTalents(ctx context.Context, batchID string) ([]review.Talent, error) {
	resp, err := c.svc.ListTalents(ctx, connect.NewRequest(&api.ListTalentsRequest{BatchID: batchID}))
	if err != nil {
		return nil, wrap("list talents", err)
	}
	return resp.Msg.Talents, nil
}

// ConceptsForAssignment implements review.ConceptSource.
func (c *Client) ConceptsForAssignment(ctx context.Context, assignmentID string) ([]review.Concept, error) {
	resp, err := c.svc.ListConcepts(ctx, connect.NewRequest(&api.ListConceptsRequest{AssignmentID: assignmentID}))
	if err != nil {
		return nil, wrap("list concepts", err)
	}
	return resp.Msg.Concepts, nil
}

// SubmissionHistory implements review.SubmissionHistory.
func (c *Client) SubmissionHistory(ctx context.Context, assignmentID, talentID string) ([]review.Submission, error) {
	resp, err := c.svc.GetSubmissionHistory(ctx, connect.NewRequest(&api.GetSubmissionHistoryRequest{
		AssignmentID: assignmentID,
		TalentID:     talentID,
	}))
	if err != nil {
		return nil, wrap("get submission history", err)
	}
	return resp.Msg.Submissions, nil
}

// SubmitGrade implements review.GradeSubmitter. Failures are *review.SubmitError.
func (c *Client) SubmitGrade(ctx context.Context, assignmentID, talentID, submissionID string, grade review.GradePayload) error {
	resp, err := c.svc.SubmitGrade(ctx, connect.NewRequest(&api.SubmitGradeRequest{
		BatchID:      c.BatchID,
		AssignmentID: assignmentID,
		TalentID:     talentID,
		SubmissionID: submissionID,
		Grade:        grade,
	}))
	if err != nil {
		return SubmitError(err)
	}

	contextlog.From(ctx).DebugContext(ctx, "Server accepted grade",
		slog.String("submission_id", submissionID),
		slog.String("response", resp.Msg.Message),
	)
	return nil
}

// SubmitError classifies a failed SubmitGrade call by its connect code.
// Errors without a code fall back to review.AsSubmitError.
func SubmitError(err error) *review.SubmitError {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return review.AsSubmitError(err)
	}
	switch cerr.Code() {
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded, connect.CodeCanceled:
		return review.NewSubmitError(review.ErrNetworkUnavailable, err)
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeNotFound:
		return review.NewSubmitError(review.ErrValidationRejected, err)
	default:
		return review.NewSubmitError(review.ErrServer, err)
	}
}

// BatchReview fetches both projections of a batch, built by the server.
func (c *Client) BatchReview(ctx context.Context, batchID string, sel review.Selection) (*api.GetBatchReviewResponse, error) {
	resp, err := c.svc.GetBatchReview(ctx, connect.NewRequest(&api.GetBatchReviewRequest{
		BatchID:      batchID,
		TalentID:     sel.TalentID,
		AssignmentID: sel.AssignmentID,
	}))
	if err != nil {
		return nil, wrap("get batch review", err)
	}
	return resp.Msg, nil
}

// ScoreSubmission asks the server to draft a score for the selected pair.
func (c *Client) ScoreSubmission(ctx context.Context, batchID string, sel review.Selection, ratings []review.ConceptRating) (review.ScoreBreakdown, error) {
	resp, err := c.svc.ScoreSubmission(ctx, connect.NewRequest(&api.ScoreSubmissionRequest{
		BatchID:      batchID,
		AssignmentID: sel.AssignmentID,
		TalentID:     sel.TalentID,
		Ratings:      ratings,
	}))
	if err != nil {
		return review.ScoreBreakdown{}, wrap("score submission", err)
	}
	return resp.Msg.Breakdown, nil
}

// DraftRemarks asks the server's model to draft faculty remarks.
func (c *Client) DraftRemarks(ctx context.Context, req *api.DraftRemarksRequest) (*api.DraftRemarksResponse, error) {
	resp, err := c.svc.DraftRemarks(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, wrap("draft remarks", err)
	}
	return resp.Msg, nil
}

// PromptForSubmission asks the grader to confirm a grade before it is sent.
// Returns true if user confirms, false otherwise.
// Uses the provided writer for prompts, or os.Stdout if writer is nil.
// Uses the provided reader for input, or os.Stdin if reader is nil.
// Accepts "y", "Y", "yes", "YES" (case-insensitive, whitespace-trimmed).
func PromptForSubmission(ctx context.Context, w io.Writer, r io.Reader, summary string) bool {
	if w == nil {
		w = os.Stdout
	}
	if r == nil {
		r = os.Stdin
	}

	fmt.Fprintf(w, "\n%s\nSubmit grade? (y/n): ", summary)
	bufReader := bufio.NewReader(r)
	resp, err := bufReader.ReadString('\n')
	if err != nil {
		contextlog.From(ctx).WarnContext(ctx, "Failed to read user input", slog.Any("error", err))
		return false
	}

	resp = strings.TrimSpace(resp)
	resp = strings.ToLower(resp)

	return resp == "y" || resp == "yes"
}
