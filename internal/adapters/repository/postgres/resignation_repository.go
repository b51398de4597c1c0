package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/core/resignation"
	pgdb "github.com/ogurasousui/resignation-grpc-clean-arch/internal/platform/db/postgres"
)

const (
	resignationUniqueViolationCode      = "23505"
	resignationInvalidTextRepresentCode = "22P02"

	activeResignationIndex = "resignations_one_active_per_employee"
)

const resignationColumns = `id, employee_id, employee_username, submission_date, intended_last_working_day, reason, status,
               exit_date, exit_interview_completed, culture_rating, management_feedback, suggestions`

// ResignationRepository は PostgreSQL を利用した退職申請永続化の実装です。
// 有効な申請の一意性は部分ユニークインデックスで保証します。
type ResignationRepository struct {
	pool pgdb.Queryer
}

// NewResignationRepository は ResignationRepository を生成します。
func NewResignationRepository(pool pgdb.Queryer) *ResignationRepository {
	return &ResignationRepository{pool: pool}
}

// Create は退職申請を新規作成します。
func (r *ResignationRepository) Create(ctx context.Context, res *resignation.Resignation) (*resignation.Resignation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO resignations (employee_id, employee_username, submission_date, intended_last_working_day, reason, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+resignationColumns,
		res.EmployeeID,
		res.EmployeeUsername,
		res.SubmissionDate,
		dateValue(res.IntendedLastWorkingDay),
		res.Reason,
		string(res.Status),
	)

	created, err := scanResignation(row)
	if err != nil {
		return nil, translateResignationPgError(err)
	}
	return created, nil
}

// Update は guard に一致する行だけを更新します。一致しない場合は ErrStatusChangedConcurrently を返します。
func (r *ResignationRepository) Update(ctx context.Context, res *resignation.Resignation, guard resignation.UpdateGuard) (*resignation.Resignation, error) {
	var cultureRating, managementFeedback, suggestions any
	if res.ExitInterviewResponses != nil {
		cultureRating = res.ExitInterviewResponses.CultureRating
		managementFeedback = res.ExitInterviewResponses.ManagementFeedback
		suggestions = res.ExitInterviewResponses.Suggestions
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE resignations
           SET status = $1,
               exit_date = $2,
               exit_interview_completed = $3,
               culture_rating = $4,
               management_feedback = $5,
               suggestions = $6
         WHERE id = $7
           AND status = $8
           AND exit_interview_completed = $9
        RETURNING `+resignationColumns,
		string(res.Status),
		nullableDate(res.ExitDate),
		res.ExitInterviewCompleted,
		cultureRating,
		managementFeedback,
		suggestions,
		res.ID,
		string(guard.Status),
		guard.InterviewCompleted,
	)

	updated, err := scanResignation(row)
	if err != nil {
		if errors.Is(err, resignation.ErrResignationNotFound) {
			return nil, resignation.ErrStatusChangedConcurrently
		}
		return nil, translateResignationPgError(err)
	}
	return updated, nil
}

// FindByID は ID で退職申請を取得します。
func (r *ResignationRepository) FindByID(ctx context.Context, id string) (*resignation.Resignation, error) {
	return r.findOne(ctx, `
        SELECT `+resignationColumns+`
          FROM resignations
         WHERE id = $1
    `, id)
}

// FindByIDForUpdate は行ロックを取得したうえで退職申請を取得します。トランザクション内で利用します。
func (r *ResignationRepository) FindByIDForUpdate(ctx context.Context, id string) (*resignation.Resignation, error) {
	return r.findOne(ctx, `
        SELECT `+resignationColumns+`
          FROM resignations
         WHERE id = $1
           FOR UPDATE
    `, id)
}

// FindActiveByEmployee は従業員の有効な (Pending / Approved) 退職申請を取得します。
func (r *ResignationRepository) FindActiveByEmployee(ctx context.Context, employeeID string) (*resignation.Resignation, error) {
	return r.findOne(ctx, `
        SELECT `+resignationColumns+`
          FROM resignations
         WHERE employee_id = $1
           AND status IN ('Pending', 'Approved')
         LIMIT 1
    `, employeeID)
}

// FindLatestByEmployee は提出日が最も新しい退職申請を取得します。
func (r *ResignationRepository) FindLatestByEmployee(ctx context.Context, employeeID string) (*resignation.Resignation, error) {
	return r.findOne(ctx, `
        SELECT `+resignationColumns+`
          FROM resignations
         WHERE employee_id = $1
         ORDER BY submission_date DESC, id DESC
         LIMIT 1
    `, employeeID)
}

// List は退職申請を提出日の新しい順に取得します。
func (r *ResignationRepository) List(ctx context.Context, filter resignation.ListFilter) ([]*resignation.Resignation, string, error) {
	if filter.Limit <= 0 {
		return nil, "", resignation.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", resignation.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 3)
	whereClause := ""
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		whereClause = " WHERE status = $" + strconv.Itoa(len(args))
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + resignationColumns + `
          FROM resignations` + whereClause + `
         ORDER BY submission_date DESC, id DESC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateResignationPgError(err)
	}
	defer rows.Close()

	resignations := make([]*resignation.Resignation, 0, filter.Limit)
	for rows.Next() {
		res, err := scanResignation(rows)
		if err != nil {
			return nil, "", translateResignationPgError(err)
		}
		resignations = append(resignations, res)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateResignationPgError(err)
	}

	var nextToken string
	if len(resignations) == limitWithBuffer {
		resignations = resignations[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return resignations, nextToken, nil
}

func (r *ResignationRepository) findOne(ctx context.Context, query string, args ...any) (*resignation.Resignation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanResignation(exec.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translateResignationPgError(err)
	}
	return found, nil
}

func scanResignation(row pgx.Row) (*resignation.Resignation, error) {
	var (
		id                 string
		employeeID         string
		employeeUsername   string
		submissionDate     time.Time
		intendedLastDay    time.Time
		reason             string
		status             string
		exitDate           sql.NullTime
		interviewCompleted bool
		cultureRating      sql.NullString
		managementFeedback sql.NullString
		suggestions        sql.NullString
	)

	if err := row.Scan(
		&id,
		&employeeID,
		&employeeUsername,
		&submissionDate,
		&intendedLastDay,
		&reason,
		&status,
		&exitDate,
		&interviewCompleted,
		&cultureRating,
		&managementFeedback,
		&suggestions,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, resignation.ErrResignationNotFound
		}
		return nil, err
	}

	var exitPtr *time.Time
	if exitDate.Valid {
		date := dateValue(exitDate.Time.UTC())
		exitPtr = &date
	}

	var responses *resignation.ExitInterviewResponses
	if interviewCompleted {
		responses = &resignation.ExitInterviewResponses{
			CultureRating:      cultureRating.String,
			ManagementFeedback: managementFeedback.String,
			Suggestions:        suggestions.String,
		}
	}

	return &resignation.Resignation{
		ID:                     id,
		EmployeeID:             employeeID,
		EmployeeUsername:       employeeUsername,
		SubmissionDate:         submissionDate.UTC(),
		IntendedLastWorkingDay: dateValue(intendedLastDay.UTC()),
		Reason:                 reason,
		Status:                 resignation.Status(status),
		ExitDate:               exitPtr,
		ExitInterviewCompleted: interviewCompleted,
		ExitInterviewResponses: responses,
	}, nil
}

func translateResignationPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return resignation.ErrResignationNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case resignationUniqueViolationCode:
			if pgErr.ConstraintName == "" || pgErr.ConstraintName == activeResignationIndex {
				return resignation.ErrDuplicateActiveRequest
			}
		case resignationInvalidTextRepresentCode:
			return resignation.ErrResignationNotFound
		}
	}

	return err
}

func dateValue(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return dateValue(*value)
}
