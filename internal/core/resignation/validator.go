package resignation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultHolidayTimeout は祝日判定の既定タイムアウトです。
const DefaultHolidayTimeout = 5 * time.Second

var errHolidayOracleMissing = errors.New("holiday oracle is not configured")

// Candidate は作成前の退職申請です。
type Candidate struct {
	EmployeeID             string
	CountryCode            string
	IntendedLastWorkingDay *time.Time
	Reason                 string
}

// ActiveLookup は従業員の有効な申請を取得します。存在しない場合は nil を返します。
type ActiveLookup func(ctx context.Context) (*Resignation, error)

// Validator は退職申請を作成してよいかを判定します。
//
// 祝日判定に失敗した場合は祝日ではないものとして扱い (fail-open)、
// WARN ログと FailOpenCount で運用者へ知らせます。
type Validator struct {
	oracle   HolidayOracle
	timeout  time.Duration
	logger   *zap.Logger
	failOpen atomic.Int64
}

// NewValidator は Validator を生成します。timeout が 0 以下の場合は既定値を使います。
func NewValidator(oracle HolidayOracle, timeout time.Duration, logger *zap.Logger) *Validator {
	if timeout <= 0 {
		timeout = DefaultHolidayTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{oracle: oracle, timeout: timeout, logger: logger}
}

// Validate は次の順に検査し、最初に失敗した理由を返します。
// 必須項目、週末、祝日、有効な申請の重複。lookup は最後の検査でのみ呼び出されます。
func (v *Validator) Validate(ctx context.Context, c Candidate, lookup ActiveLookup) error {
	if c.IntendedLastWorkingDay == nil || c.IntendedLastWorkingDay.IsZero() {
		return fmt.Errorf("intended_last_working_day: %w", ErrMissingField)
	}
	if strings.TrimSpace(c.Reason) == "" {
		return fmt.Errorf("reason: %w", ErrMissingField)
	}

	day := *normalizeDate(c.IntendedLastWorkingDay)
	if isWeekend(day) {
		return ErrWeekendNotAllowed
	}

	if v.isHoliday(ctx, day, c.CountryCode) {
		return ErrHolidayNotAllowed
	}

	if lookup == nil {
		return nil
	}
	existing, err := lookup(ctx)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status.IsActive() {
		return ErrDuplicateActiveRequest
	}

	return nil
}

// FailOpenCount は祝日判定を fail-open で通過させた回数を返します。
func (v *Validator) FailOpenCount() int64 {
	return v.failOpen.Load()
}

func (v *Validator) isHoliday(ctx context.Context, day time.Time, countryCode string) bool {
	holiday, err := v.queryOracle(ctx, day, countryCode)
	if err != nil {
		v.failOpen.Add(1)
		v.logger.Warn("holiday check failed, allowing submission",
			zap.String("date", day.Format(DateLayout)),
			zap.String("country_code", countryCode),
			zap.Error(err))
		return false
	}
	return holiday
}

type oracleResult struct {
	holiday bool
	err     error
}

func (v *Validator) queryOracle(ctx context.Context, day time.Time, countryCode string) (bool, error) {
	if v.oracle == nil {
		return false, errHolidayOracleMissing
	}

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	done := make(chan oracleResult, 1)
	go func() {
		holiday, err := v.oracle.IsHoliday(callCtx, day, countryCode)
		done <- oracleResult{holiday: holiday, err: err}
	}()

	select {
	case res := <-done:
		return res.holiday, res.err
	case <-callCtx.Done():
		return false, fmt.Errorf("holiday oracle: %w", callCtx.Err())
	}
}

func isWeekend(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}
