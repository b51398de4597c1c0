package handler

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/core/resignation"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const exitInterviewSubmittedMessage = "Exit interview submitted successfully"

// ResignationGrpcHandler は ResignationService の gRPC 実装です。
type ResignationGrpcHandler struct {
	svc resignation.UseCase
}

// NewResignationGrpcHandler は ResignationGrpcHandler を生成します。
func NewResignationGrpcHandler(svc resignation.UseCase) *ResignationGrpcHandler {
	return &ResignationGrpcHandler{svc: svc}
}

// SubmitResignation は従業員の退職申請を受け付けます。
func (h *ResignationGrpcHandler) SubmitResignation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	var intended *time.Time
	if raw := stringField(req, "intendedLastWorkingDay"); raw != "" {
		parsed, err := resignation.ParseDate(raw)
		if err != nil {
			return nil, toStatusError(fmt.Errorf("intendedLastWorkingDay: %v: %w", err, resignation.ErrMissingField))
		}
		intended = &parsed
	}

	created, err := h.svc.Submit(ctx, resignation.SubmitInput{
		Actor:                  actor,
		IntendedLastWorkingDay: intended,
		Reason:                 stringField(req, "reason"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return newResponse(map[string]any{"resignation": resignationValue(created)})
}

// GetMyResignation は呼び出し元の最新の退職申請を返します。
func (h *ResignationGrpcHandler) GetMyResignation(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	found, err := h.svc.GetMyStatus(ctx, actor)
	if err != nil {
		return nil, toStatusError(err)
	}

	return newResponse(map[string]any{"resignation": resignationValue(found)})
}

// ListResignations は退職申請の一覧を返します。
func (h *ResignationGrpcHandler) ListResignations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	in := resignation.ListInput{
		Actor:     actor,
		PageToken: stringField(req, "pageToken"),
	}
	if raw := stringField(req, "status"); raw != "" {
		st := resignation.Status(raw)
		in.Status = &st
	}
	pageSize, err := intField(req, "pageSize")
	if err != nil {
		return nil, toStatusError(fmt.Errorf("pageSize: %w", resignation.ErrInvalidPageSize))
	}
	in.PageSize = pageSize

	result, err := h.svc.List(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(result.Resignations))
	for _, r := range result.Resignations {
		items = append(items, resignationValue(r))
	}

	return newResponse(map[string]any{
		"resignations":  items,
		"nextPageToken": result.NextPageToken,
	})
}

// ApproveResignation は Pending の申請を承認します。
func (h *ResignationGrpcHandler) ApproveResignation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	approved, err := h.svc.Approve(ctx, resignation.ApproveInput{
		Actor:    actor,
		ID:       stringField(req, "id"),
		ExitDate: stringField(req, "exitDate"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return newResponse(map[string]any{"resignation": resignationValue(approved)})
}

// RejectResignation は Pending の申請を却下します。
func (h *ResignationGrpcHandler) RejectResignation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	rejected, err := h.svc.Reject(ctx, resignation.RejectInput{
		Actor: actor,
		ID:    stringField(req, "id"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return newResponse(map[string]any{"resignation": resignationValue(rejected)})
}

// SubmitExitInterview は承認済み申請の退職面談を記録します。
func (h *ResignationGrpcHandler) SubmitExitInterview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	updated, err := h.svc.SubmitExitInterview(ctx, resignation.ExitInterviewInput{
		Actor: actor,
		ID:    stringField(req, "id"),
		Responses: resignation.ExitInterviewResponses{
			CultureRating:      stringField(req, "cultureRating"),
			ManagementFeedback: stringField(req, "managementFeedback"),
			Suggestions:        stringField(req, "suggestions"),
		},
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return newResponse(map[string]any{
		"msg":         exitInterviewSubmittedMessage,
		"resignation": resignationValue(updated),
	})
}

func requireActor(ctx context.Context) (resignation.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return resignation.Actor{}, status.Error(codes.Unauthenticated, "caller identity is required")
	}
	return actor, nil
}

func newResponse(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

func resignationValue(r *resignation.Resignation) map[string]any {
	if r == nil {
		return nil
	}

	out := map[string]any{
		"id":                     r.ID,
		"employeeId":             r.EmployeeID,
		"employeeUsername":       r.EmployeeUsername,
		"submissionDate":         r.SubmissionDate.UTC().Format(time.RFC3339),
		"intendedLastWorkingDay": r.IntendedLastWorkingDay.Format(resignation.DateLayout),
		"reason":                 r.Reason,
		"status":                 string(r.Status),
		"exitInterviewCompleted": r.ExitInterviewCompleted,
		"exitDate":               nil,
		"exitInterviewResponses": nil,
	}
	if r.ExitDate != nil {
		out["exitDate"] = r.ExitDate.Format(resignation.DateLayout)
	}
	if r.ExitInterviewResponses != nil {
		out["exitInterviewResponses"] = map[string]any{
			"cultureRating":      r.ExitInterviewResponses.CultureRating,
			"managementFeedback": r.ExitInterviewResponses.ManagementFeedback,
			"suggestions":        r.ExitInterviewResponses.Suggestions,
		}
	}
	return out
}

// stringField は文字列・数値・真偽値のフィールドを文字列として返します。
func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(kind.StringValue)
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(kind.BoolValue)
	default:
		return ""
	}
}

func intField(s *structpb.Struct, key string) (int, error) {
	if s == nil {
		return 0, nil
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return int(n), nil
	case *structpb.Value_StringValue:
		if strings.TrimSpace(kind.StringValue) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(kind.StringValue))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

var _ ResignationServiceServer = (*ResignationGrpcHandler)(nil)
