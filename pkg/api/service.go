package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// ReviewServiceName is the fully-qualified name of the ReviewService service.
const ReviewServiceName = "review.v1.ReviewService"

// Fully-qualified procedure names, usable as HTTP routes.
const (
	ReviewServiceListAssignmentsProcedure      = "/review.v1.ReviewService/ListAssignments"
	ReviewServiceListTalentsProcedure          = "/review.v1.ReviewService/ListTalents"
	ReviewServiceListConceptsProcedure         = "/review.v1.ReviewService/ListConcepts"
	ReviewServiceGetSubmissionHistoryProcedure = "/review.v1.ReviewService/GetSubmissionHistory"
	ReviewServiceSubmitGradeProcedure          = "/review.v1.ReviewService/SubmitGrade"
	ReviewServiceGetBatchReviewProcedure       = "/review.v1.ReviewService/GetBatchReview"
	ReviewServiceScoreSubmissionProcedure      = "/review.v1.ReviewService/ScoreSubmission"
	ReviewServiceDraftRemarksProcedure         = "/review.v1.ReviewService/DraftRemarks"
)

// ReviewServiceHandler is implemented by the server.
type ReviewServiceHandler interface {
	ListAssignments(context.Context, *connect.Request[ListAssignmentsRequest]) (*connect.Response[ListAssignmentsResponse], error)
	ListTalents(context.Context, *connect.Request[ListTalentsRequest]) (*connect.Response[ListTalentsResponse], error)
	ListConcepts(context.Context, *connect.Request[ListConceptsRequest]) (*connect.Response[ListConceptsResponse], error)
	GetSubmissionHistory(context.Context, *connect.Request[GetSubmissionHistoryRequest]) (*connect.Response[GetSubmissionHistoryResponse], error)
	SubmitGrade(context.Context, *connect.Request[SubmitGradeRequest]) (*connect.Response[SubmitGradeResponse], error)
	GetBatchReview(context.Context, *connect.Request[GetBatchReviewRequest]) (*connect.Response[GetBatchReviewResponse], error)
	ScoreSubmission(context.Context, *connect.Request[ScoreSubmissionRequest]) (*connect.Response[ScoreSubmissionResponse], error)
	DraftRemarks(context.Context, *connect.Request[DraftRemarksRequest]) (*connect.Response[DraftRemarksResponse], error)
}

// ReviewServiceClient is a client for the review.v1.ReviewService service.
type ReviewServiceClient = ReviewServiceHandler

// NewReviewServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler.
func NewReviewServiceHandler(svc ReviewServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	handlers := map[string]http.Handler{
		ReviewServiceListAssignmentsProcedure:      connect.NewUnaryHandler(ReviewServiceListAssignmentsProcedure, svc.ListAssignments, opts...),
		ReviewServiceListTalentsProcedure:          connect.NewUnaryHandler(ReviewServiceListTalentsProcedure, svc.ListTalents, opts...),
		ReviewServiceListConceptsProcedure:         connect.NewUnaryHandler(ReviewServiceListConceptsProcedure, svc.ListConcepts, opts...),
		ReviewServiceGetSubmissionHistoryProcedure: connect.NewUnaryHandler(ReviewServiceGetSubmissionHistoryProcedure, svc.GetSubmissionHistory, opts...),
		ReviewServiceSubmitGradeProcedure:          connect.NewUnaryHandler(ReviewServiceSubmitGradeProcedure, svc.SubmitGrade, opts...),
		ReviewServiceGetBatchReviewProcedure:       connect.NewUnaryHandler(ReviewServiceGetBatchReviewProcedure, svc.GetBatchReview, opts...),
		ReviewServiceScoreSubmissionProcedure:      connect.NewUnaryHandler(ReviewServiceScoreSubmissionProcedure, svc.ScoreSubmission, opts...),
		ReviewServiceDraftRemarksProcedure:         connect.NewUnaryHandler(ReviewServiceDraftRemarksProcedure, svc.DraftRemarks, opts...),
	}

	return "/" + ReviewServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

type reviewServiceClient struct {
	listAssignments      *connect.Client[ListAssignmentsRequest, ListAssignmentsResponse]
	listTalents          *connect.Client[ListTalentsRequest, ListTalentsResponse]
	listConcepts         *connect.Client[ListConceptsRequest, ListConceptsResponse]
	getSubmissionHistory *connect.Client[GetSubmissionHistoryRequest, GetSubmissionHistoryResponse]
	submitGrade          *connect.Client[SubmitGradeRequest, SubmitGradeResponse]
	getBatchReview       *connect.Client[GetBatchReviewRequest, GetBatchReviewResponse]
	scoreSubmission      *connect.Client[ScoreSubmissionRequest, ScoreSubmissionResponse]
	draftRemarks         *connect.Client[DraftRemarksRequest, DraftRemarksResponse]
}

func newUnaryClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](httpClient, baseURL+procedure, opts...)
}

// NewReviewServiceClient constructs a client for the review.v1.ReviewService
// service. baseURL is the server root, e.g. https://review.example.com.
func NewReviewServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ReviewServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)

	return &reviewServiceClient{
		listAssignments:      newUnaryClient[ListAssignmentsRequest, ListAssignmentsResponse](httpClient, baseURL, ReviewServiceListAssignmentsProcedure, opts),
		listTalents:          newUnaryClient[ListTalentsRequest, ListTalentsResponse](httpClient, baseURL, ReviewServiceListTalentsProcedure, opts),
		listConcepts:         newUnaryClient[ListConceptsRequest, ListConceptsResponse](httpClient, baseURL, ReviewServiceListConceptsProcedure, opts),
		getSubmissionHistory: newUnaryClient[GetSubmissionHistoryRequest, GetSubmissionHistoryResponse](httpClient, baseURL, ReviewServiceGetSubmissionHistoryProcedure, opts),
		submitGrade:          newUnaryClient[SubmitGradeRequest, SubmitGradeResponse](httpClient, baseURL, ReviewServiceSubmitGradeProcedure, opts),
		getBatchReview:       newUnaryClient[GetBatchReviewRequest, GetBatchReviewResponse](httpClient, baseURL, ReviewServiceGetBatchReviewProcedure, opts),
		scoreSubmission:      newUnaryClient[ScoreSubmissionRequest, ScoreSubmissionResponse](httpClient, baseURL, ReviewServiceScoreSubmissionProcedure, opts),
		draftRemarks:         newUnaryClient[DraftRemarksRequest, DraftRemarksResponse](httpClient, baseURL, ReviewServiceDraftRemarksProcedure, opts),
	}
}

func (c *reviewServiceClient) ListAssignments(ctx context.Context, req *connect.Request[ListAssignmentsRequest]) (*connect.Response[ListAssignmentsResponse], error) {
	return c.listAssignments.CallUnary(ctx, req)
}

func (c *reviewServiceClient) ListTalents(ctx context.Context, req *connect.Request[ListTalentsRequest]) (*connect.Response[ListTalentsResponse], error) {
	return c.listTalents.CallUnary(ctx, req)
}

func (c *reviewServiceClient) ListConcepts(ctx context.Context, req *connect.Request[ListConceptsRequest]) (*connect.Response[ListConceptsResponse], error) {
	return c.listConcepts.CallUnary(ctx, req)
}

func (c *reviewServiceClient) GetSubmissionHistory(ctx context.Context, req *connect.Request[GetSubmissionHistoryRequest]) (*connect.Response[GetSubmissionHistoryResponse], error) {
	return c.getSubmissionHistory.CallUnary(ctx, req)
}

func (c *reviewServiceClient) SubmitGrade(ctx context.Context, req *connect.Request[SubmitGradeRequest]) (*connect.Response[SubmitGradeResponse], error) {
	return c.submitGrade.CallUnary(ctx, req)
}

func (c *reviewServiceClient) GetBatchReview(ctx context.Context, req *connect.Request[GetBatchReviewRequest]) (*connect.Response[GetBatchReviewResponse], error) {
	return c.getBatchReview.CallUnary(ctx, req)
}

func (c *reviewServiceClient) ScoreSubmission(ctx context.Context, req *connect.Request[ScoreSubmissionRequest]) (*connect.Response[ScoreSubmissionResponse], error) {
	return c.scoreSubmission.CallUnary(ctx, req)
}

func (c *reviewServiceClient) DraftRemarks(ctx context.Context, req *connect.Request[DraftRemarksRequest]) (*connect.Response[DraftRemarksResponse], error) {
	return c.draftRemarks.CallUnary(ctx, req)
}

// UnimplementedReviewServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedReviewServiceHandler struct{}

var errUnimplemented = errors.New("not implemented")

func unimplemented(procedure string) error {
	return connect.NewError(connect.CodeUnimplemented, errors.Join(errUnimplemented, errors.New(procedure)))
}

func (UnimplementedReviewServiceHandler) ListAssignments(context.Context, *connect.Request[ListAssignmentsRequest]) (*connect.Response[ListAssignmentsResponse], error) {
	return nil, unimplemented(ReviewServiceListAssignmentsProcedure)
}

func (UnimplementedReviewServiceHandler) ListTalents(context.Context, *connect.Request[ListTalentsRequest]) (*connect.Response[ListTalentsResponse], error) {
	return nil, unimplemented(ReviewServiceListTalentsProcedure)
}

func (UnimplementedReviewServiceHandler) ListConcepts(context.Context, *connect.Request[ListConceptsRequest]) (*connect.Response[ListConceptsResponse], error) {
	return nil, unimplemented(ReviewServiceListConceptsProcedure)
}

func (UnimplementedReviewServiceHandler) GetSubmissionHistory(context.Context, *connect.Request[GetSubmissionHistoryRequest]) (*connect.Response[GetSubmissionHistoryResponse], error) {
	return nil, unimplemented(ReviewServiceGetSubmissionHistoryProcedure)
}

func (UnimplementedReviewServiceHandler) SubmitGrade(context.Context, *connect.Request[SubmitGradeRequest]) (*connect.Response[SubmitGradeResponse], error) {
	return nil, unimplemented(ReviewServiceSubmitGradeProcedure)
}

func (UnimplementedReviewServiceHandler) GetBatchReview(context.Context, *connect.Request[GetBatchReviewRequest]) (*connect.Response[GetBatchReviewResponse], error) {
	return nil, unimplemented(ReviewServiceGetBatchReviewProcedure)
}

func (UnimplementedReviewServiceHandler) ScoreSubmission(context.Context, *connect.Request[ScoreSubmissionRequest]) (*connect.Response[ScoreSubmissionResponse], error) {
	return nil, unimplemented(ReviewServiceScoreSubmissionProcedure)
}

func (UnimplementedReviewServiceHandler) DraftRemarks(context.Context, *connect.Request[DraftRemarksRequest]) (*connect.Response[DraftRemarksResponse], error) {
	return nil, unimplemented(ReviewServiceDraftRemarksProcedure)
}
