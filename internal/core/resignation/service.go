package resignation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DateLayout は日付の入出力形式です。
const DateLayout = "2006-01-02"

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// Service は退職申請のライフサイクルを管理するユースケースです。
type Service struct {
	repo      Repository
	validator *Validator
	notifier  Notifier
	clock     Clock
	tx        TransactionManager
	hrAddress string
	logger    *zap.Logger
}

// UseCase は退職申請ユースケースの公開インターフェースです。
type UseCase interface {
	Submit(ctx context.Context, in SubmitInput) (*Resignation, error)
	GetMyStatus(ctx context.Context, actor Actor) (*Resignation, error)
	List(ctx context.Context, in ListInput) (*ListResult, error)
	Approve(ctx context.Context, in ApproveInput) (*Resignation, error)
	Reject(ctx context.Context, in RejectInput) (*Resignation, error)
	SubmitExitInterview(ctx context.Context, in ExitInterviewInput) (*Resignation, error)
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService は Service を生成します。hrAddress は申請受付通知の宛先です。
func NewService(repo Repository, validator *Validator, notifier Notifier, clock Clock, tx TransactionManager, hrAddress string, opts ...Option) *Service {
	if validator == nil {
		validator = NewValidator(nil, 0, nil)
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:      repo,
		validator: validator,
		notifier:  notifier,
		clock:     clock,
		tx:        tx,
		hrAddress: strings.TrimSpace(hrAddress),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitInput は退職申請時の入力です。
type SubmitInput struct {
	Actor                  Actor
	IntendedLastWorkingDay *time.Time
	Reason                 string
}

// ListInput は一覧取得時の入力です。
type ListInput struct {
	Actor     Actor
	Status    *Status
	PageSize  int
	PageToken string
}

// ListResult は一覧取得結果を表します。
type ListResult struct {
	Resignations  []*Resignation
	NextPageToken string
}

// ApproveInput は承認時の入力です。ExitDate は YYYY-MM-DD 形式です。
type ApproveInput struct {
	Actor    Actor
	ID       string
	ExitDate string
}

// RejectInput は却下時の入力です。
type RejectInput struct {
	Actor Actor
	ID    string
}

// ExitInterviewInput は退職面談の提出内容です。
type ExitInterviewInput struct {
	Actor     Actor
	ID        string
	Responses ExitInterviewResponses
}

// Submit は適格性を検証したうえで新しい退職申請を Pending で作成します。
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Resignation, error) {
	actor, err := requireRole(in.Actor, RoleEmployee)
	if err != nil {
		return nil, err
	}

	candidate := Candidate{
		EmployeeID:             actor.ID,
		CountryCode:            actor.CountryCode,
		IntendedLastWorkingDay: in.IntendedLastWorkingDay,
		Reason:                 in.Reason,
	}
	if err := s.validator.Validate(ctx, candidate, s.activeLookup(actor.ID)); err != nil {
		return nil, err
	}

	var created *Resignation
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Create(txCtx, &Resignation{
			EmployeeID:             actor.ID,
			EmployeeUsername:       actor.Username,
			SubmissionDate:         s.clock.Now(),
			IntendedLastWorkingDay: *normalizeDate(in.IntendedLastWorkingDay),
			Reason:                 strings.TrimSpace(in.Reason),
			Status:                 StatusPending,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info("resignation submitted",
		zap.String("resignation_id", created.ID),
		zap.String("employee_id", created.EmployeeID))

	if s.hrAddress == "" {
		s.logger.Warn("hr address is not configured, skipping submission notice",
			zap.String("resignation_id", created.ID))
	} else {
		s.notifier.Notify(ctx, submittedNotice(s.hrAddress, created))
	}

	return created, nil
}

// GetMyStatus は操作者の最新の退職申請を返します。
func (s *Service) GetMyStatus(ctx context.Context, actor Actor) (*Resignation, error) {
	actor, err := requireRole(actor, RoleEmployee)
	if err != nil {
		return nil, err
	}

	var result *Resignation
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindLatestByEmployee(txCtx, actor.ID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// List は退職申請を提出日の新しい順に返します。
func (s *Service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	if _, err := requireRole(in.Actor, RoleHR); err != nil {
		return nil, err
	}

	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var statusPtr *Status
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status := *in.Status
		statusPtr = &status
	}

	var (
		resignations []*Resignation
		nextToken    string
	)
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, token, err := s.repo.List(txCtx, ListFilter{Status: statusPtr, Limit: limit, Offset: offset})
		if err != nil {
			return err
		}
		resignations = found
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListResult{Resignations: resignations, NextPageToken: nextToken}, nil
}

// Approve は Pending の申請を承認し退職日を設定します。
func (s *Service) Approve(ctx context.Context, in ApproveInput) (*Resignation, error) {
	if _, err := requireRole(in.Actor, RoleHR); err != nil {
		return nil, err
	}

	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.ExitDate) == "" {
		return nil, ErrInvalidExitDate
	}

	approved, err := s.decide(ctx, id, func(r *Resignation) error {
		exitDate, err := s.parseExitDate(in.ExitDate)
		if err != nil {
			return err
		}
		r.Status = StatusApproved
		r.ExitDate = &exitDate
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("resignation approved",
		zap.String("resignation_id", approved.ID),
		zap.String("exit_date", approved.ExitDate.Format(DateLayout)))
	s.notifier.Notify(ctx, approvedNotice(approved))

	return approved, nil
}

// Reject は Pending の申請を却下します。
func (s *Service) Reject(ctx context.Context, in RejectInput) (*Resignation, error) {
	if _, err := requireRole(in.Actor, RoleHR); err != nil {
		return nil, err
	}

	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	rejected, err := s.decide(ctx, id, func(r *Resignation) error {
		r.Status = StatusRejected
		r.ExitDate = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("resignation rejected", zap.String("resignation_id", rejected.ID))
	s.notifier.Notify(ctx, rejectedNotice(rejected))

	return rejected, nil
}

// SubmitExitInterview は承認済み申請の退職面談を一度だけ記録します。
func (s *Service) SubmitExitInterview(ctx context.Context, in ExitInterviewInput) (*Resignation, error) {
	actor, err := requireRole(in.Actor, RoleEmployee)
	if err != nil {
		return nil, err
	}

	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, ErrNotFoundOrUnauthorized
	}

	responses := ExitInterviewResponses{
		CultureRating:      strings.TrimSpace(in.Responses.CultureRating),
		ManagementFeedback: strings.TrimSpace(in.Responses.ManagementFeedback),
		Suggestions:        strings.TrimSpace(in.Responses.Suggestions),
	}

	var updated *Resignation
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		current, err := s.repo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			if errors.Is(err, ErrResignationNotFound) {
				return ErrNotFoundOrUnauthorized
			}
			return err
		}
		if err := checkInterviewEligible(current, actor.ID); err != nil {
			return err
		}

		next := current.Clone()
		next.ExitInterviewCompleted = true
		next.ExitInterviewResponses = &responses

		result, err := s.repo.Update(txCtx, next, UpdateGuard{Status: StatusApproved, InterviewCompleted: false})
		if errors.Is(err, ErrStatusChangedConcurrently) {
			fresh, findErr := s.repo.FindByID(txCtx, id)
			if findErr != nil {
				return findErr
			}
			if err := checkInterviewEligible(fresh, actor.ID); err != nil {
				return err
			}
			return ErrStatusChangedConcurrently
		}
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info("exit interview completed", zap.String("resignation_id", updated.ID))
	return updated, nil
}

// decide は Pending の申請に apply を適用して保存します。apply は状態の確認後に呼ばれます。
// 同時に別の判断が確定していた場合は最新の状態で StateTransitionError を返します。
func (s *Service) decide(ctx context.Context, id string, apply func(*Resignation) error) (*Resignation, error) {
	var updated *Resignation
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		current, err := s.repo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusPending {
			return newStateTransitionError(current.Status)
		}

		next := current.Clone()
		if err := apply(next); err != nil {
			return err
		}

		result, err := s.repo.Update(txCtx, next, UpdateGuard{Status: StatusPending})
		if errors.Is(err, ErrStatusChangedConcurrently) {
			fresh, findErr := s.repo.FindByID(txCtx, id)
			if findErr != nil {
				return findErr
			}
			if fresh.Status != StatusPending {
				return newStateTransitionError(fresh.Status)
			}
			return err
		}
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) activeLookup(employeeID string) ActiveLookup {
	return func(ctx context.Context) (*Resignation, error) {
		var existing *Resignation
		err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
			found, err := s.repo.FindActiveByEmployee(txCtx, employeeID)
			if err != nil && !errors.Is(err, ErrResignationNotFound) {
				return err
			}
			existing = found
			return nil
		})
		return existing, err
	}
}

func (s *Service) parseExitDate(raw string) (time.Time, error) {
	exitDate, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, ErrInvalidExitDate
	}

	today := *normalizeDate(ptrTime(s.clock.Now().UTC()))
	if !exitDate.After(today) {
		return time.Time{}, ErrInvalidExitDate
	}
	return exitDate, nil
}

func checkInterviewEligible(r *Resignation, actorID string) error {
	if r.EmployeeID != actorID {
		return ErrNotFoundOrUnauthorized
	}
	if r.Status != StatusApproved {
		return ErrInterviewNotYetEligible
	}
	if r.ExitInterviewCompleted {
		return ErrInterviewAlreadyCompleted
	}
	return nil
}

// ParseDate は YYYY-MM-DD もしくは RFC3339 の文字列を UTC の日付へ変換します。
func ParseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	if t, err := time.ParseInLocation(DateLayout, trimmed, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid format, expected YYYY-MM-DD")
	}
	return *normalizeDate(&t), nil
}

func requireRole(actor Actor, role Role) (Actor, error) {
	actor.ID = strings.TrimSpace(actor.ID)
	if actor.ID == "" {
		return Actor{}, ErrInvalidActor
	}
	if actor.Role != role {
		return Actor{}, ErrForbiddenRole
	}
	actor.CountryCode = strings.ToUpper(strings.TrimSpace(actor.CountryCode))
	if actor.CountryCode == "" {
		actor.CountryCode = DefaultCountryCode
	}
	return actor, nil
}

func normalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return "", ErrResignationNotFound
	}
	return parsed.String(), nil
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	normalized := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &normalized
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
