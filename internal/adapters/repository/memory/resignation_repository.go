package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/core/resignation"
)

// ResignationRepository はプロセス内で退職申請を保持する実装です。
// 全操作を単一のミューテックスで直列化し、有効な申請の一意性を保証します。
type ResignationRepository struct {
	mu           sync.Mutex
	resignations map[string]*resignation.Resignation
	active       map[string]string
	newID        func() string
}

// NewResignationRepository は ResignationRepository を生成します。
func NewResignationRepository() *ResignationRepository {
	return &ResignationRepository{
		resignations: make(map[string]*resignation.Resignation),
		active:       make(map[string]string),
		newID:        func() string { return uuid.NewString() },
	}
}

// Create は退職申請を保存します。
func (r *ResignationRepository) Create(_ context.Context, res *resignation.Resignation) (*resignation.Resignation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.Status.IsActive() {
		if _, exists := r.active[res.EmployeeID]; exists {
			return nil, resignation.ErrDuplicateActiveRequest
		}
	}

	stored := res.Clone()
	stored.ID = r.newID()
	r.resignations[stored.ID] = stored
	if stored.Status.IsActive() {
		r.active[stored.EmployeeID] = stored.ID
	}
	return stored.Clone(), nil
}

// Update は guard を満たす場合に限り退職申請を更新します。
func (r *ResignationRepository) Update(_ context.Context, res *resignation.Resignation, guard resignation.UpdateGuard) (*resignation.Resignation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.resignations[res.ID]
	if !ok {
		return nil, resignation.ErrResignationNotFound
	}
	if current.Status != guard.Status || current.ExitInterviewCompleted != guard.InterviewCompleted {
		return nil, resignation.ErrStatusChangedConcurrently
	}

	if res.Status.IsActive() {
		if id, exists := r.active[res.EmployeeID]; exists && id != res.ID {
			return nil, resignation.ErrDuplicateActiveRequest
		}
	}

	stored := res.Clone()
	r.resignations[stored.ID] = stored
	if stored.Status.IsActive() {
		r.active[stored.EmployeeID] = stored.ID
	} else if r.active[stored.EmployeeID] == stored.ID {
		delete(r.active, stored.EmployeeID)
	}
	return stored.Clone(), nil
}

// FindByID は ID で退職申請を取得します。
func (r *ResignationRepository) FindByID(_ context.Context, id string) (*resignation.Resignation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found, ok := r.resignations[id]
	if !ok {
		return nil, resignation.ErrResignationNotFound
	}
	return found.Clone(), nil
}

// FindByIDForUpdate は FindByID と同じです。競合は Update の guard で検出します。
func (r *ResignationRepository) FindByIDForUpdate(ctx context.Context, id string) (*resignation.Resignation, error) {
	return r.FindByID(ctx, id)
}

// FindActiveByEmployee は従業員の有効な退職申請を取得します。
func (r *ResignationRepository) FindActiveByEmployee(_ context.Context, employeeID string) (*resignation.Resignation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.active[employeeID]
	if !ok {
		return nil, resignation.ErrResignationNotFound
	}
	return r.resignations[id].Clone(), nil
}

// FindLatestByEmployee は提出日が最も新しい退職申請を取得します。
func (r *ResignationRepository) FindLatestByEmployee(_ context.Context, employeeID string) (*resignation.Resignation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *resignation.Resignation
	for _, res := range r.resignations {
		if res.EmployeeID != employeeID {
			continue
		}
		if latest == nil || newerThan(res, latest) {
			latest = res
		}
	}
	if latest == nil {
		return nil, resignation.ErrResignationNotFound
	}
	return latest.Clone(), nil
}

// List は退職申請を提出日の新しい順に取得します。
func (r *ResignationRepository) List(_ context.Context, filter resignation.ListFilter) ([]*resignation.Resignation, string, error) {
	if filter.Limit <= 0 {
		return nil, "", resignation.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", resignation.ErrInvalidPageToken
	}

	r.mu.Lock()
	matched := make([]*resignation.Resignation, 0, len(r.resignations))
	for _, res := range r.resignations {
		if filter.Status != nil && res.Status != *filter.Status {
			continue
		}
		matched = append(matched, res.Clone())
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		return newerThan(matched[i], matched[j])
	})

	if filter.Offset >= len(matched) {
		return []*resignation.Resignation{}, "", nil
	}

	end := filter.Offset + filter.Limit
	var nextToken string
	if end < len(matched) {
		nextToken = strconv.Itoa(end)
	} else {
		end = len(matched)
	}

	return matched[filter.Offset:end], nextToken, nil
}

func newerThan(a, b *resignation.Resignation) bool {
	if !a.SubmissionDate.Equal(b.SubmissionDate) {
		return a.SubmissionDate.After(b.SubmissionDate)
	}
	return a.ID > b.ID
}
