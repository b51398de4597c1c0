package resignation

import (
	"context"
	"time"
)

// Repository は退職申請永続化の抽象です。
//
// Create は従業員ごとの有効な申請 (Pending / Approved) の一意性を原子的に保証し、
// 違反時は ErrDuplicateActiveRequest を返さなければなりません。
type Repository interface {
	Create(ctx context.Context, r *Resignation) (*Resignation, error)
	Update(ctx context.Context, r *Resignation, guard UpdateGuard) (*Resignation, error)
	FindByID(ctx context.Context, id string) (*Resignation, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Resignation, error)
	FindActiveByEmployee(ctx context.Context, employeeID string) (*Resignation, error)
	FindLatestByEmployee(ctx context.Context, employeeID string) (*Resignation, error)
	List(ctx context.Context, filter ListFilter) ([]*Resignation, string, error)
}

// UpdateGuard は更新時に永続化済みの値が満たすべき条件です。
// 条件を満たさない場合、Update は ErrStatusChangedConcurrently を返します。
type UpdateGuard struct {
	Status             Status
	InterviewCompleted bool
}

// ListFilter は一覧取得用フィルタです。
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// HolidayOracle は指定日が祝日かどうかを判定します。
type HolidayOracle interface {
	IsHoliday(ctx context.Context, date time.Time, countryCode string) (bool, error)
}

// Notice は送信依頼する通知です。
type Notice struct {
	Recipient string
	Subject   string
	Body      string
}

// Notifier は通知送信の抽象です。送信結果は呼び出し元へ返しません。
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notice) {}
