package handler

import (
	"context"
	"errors"

	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/core/resignation"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain は ErrorInfo の domain に設定する値です。
const ErrorDomain = "resignation.v1"

type errorRule struct {
	target error
	code   codes.Code
	reason string
}

var errorRules = []errorRule{
	{resignation.ErrMissingField, codes.InvalidArgument, "MISSING_FIELD"},
	{resignation.ErrWeekendNotAllowed, codes.InvalidArgument, "WEEKEND_NOT_ALLOWED"},
	{resignation.ErrHolidayNotAllowed, codes.InvalidArgument, "HOLIDAY_NOT_ALLOWED"},
	{resignation.ErrInvalidExitDate, codes.InvalidArgument, "INVALID_EXIT_DATE"},
	{resignation.ErrInvalidID, codes.InvalidArgument, "INVALID_ID"},
	{resignation.ErrInvalidStatus, codes.InvalidArgument, "INVALID_STATUS"},
	{resignation.ErrInvalidPageSize, codes.InvalidArgument, "INVALID_PAGE_SIZE"},
	{resignation.ErrInvalidPageToken, codes.InvalidArgument, "INVALID_PAGE_TOKEN"},
	{resignation.ErrDuplicateActiveRequest, codes.AlreadyExists, "DUPLICATE_ACTIVE_REQUEST"},
	{resignation.ErrInvalidStateTransition, codes.FailedPrecondition, "INVALID_STATE_TRANSITION"},
	{resignation.ErrInterviewNotYetEligible, codes.FailedPrecondition, "INTERVIEW_NOT_YET_ELIGIBLE"},
	{resignation.ErrInterviewAlreadyCompleted, codes.FailedPrecondition, "INTERVIEW_ALREADY_COMPLETED"},
	{resignation.ErrNotFoundOrUnauthorized, codes.NotFound, "NOT_FOUND_OR_UNAUTHORIZED"},
	{resignation.ErrResignationNotFound, codes.NotFound, "RESIGNATION_NOT_FOUND"},
	{resignation.ErrInvalidActor, codes.Unauthenticated, "INVALID_ACTOR"},
	{resignation.ErrForbiddenRole, codes.PermissionDenied, "FORBIDDEN_ROLE"},
	{resignation.ErrStatusChangedConcurrently, codes.Aborted, "STATUS_CHANGED_CONCURRENTLY"},
}

func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}

	for _, rule := range errorRules {
		if !errors.Is(err, rule.target) {
			continue
		}

		info := &errdetails.ErrorInfo{Reason: rule.reason, Domain: ErrorDomain}
		var transitionErr *resignation.StateTransitionError
		if errors.As(err, &transitionErr) {
			info.Metadata = map[string]string{"current_status": string(transitionErr.Current)}
		}

		st := status.New(rule.code, err.Error())
		if detailed, detailErr := st.WithDetails(info); detailErr == nil {
			st = detailed
		}
		return st.Err()
	}

	return status.Error(codes.Internal, err.Error())
}

// ErrorReason は status エラーに付与された ErrorInfo の reason を返します。
func ErrorReason(err error) (reason string, metadata map[string]string) {
	st, ok := status.FromError(err)
	if !ok {
		return "", nil
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			return info.GetReason(), info.GetMetadata()
		}
	}
	return "", nil
}
