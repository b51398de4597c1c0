package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/core/resignation"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var resignationColumnNames = []string{
	"id", "employee_id", "employee_username", "submission_date", "intended_last_working_day", "reason", "status",
	"exit_date", "exit_interview_completed", "culture_rating", "management_feedback", "suggestions",
}

type stubResignationRow struct {
	scanFn func(dest ...interface{}) error
}

func (s stubResignationRow) Scan(dest ...interface{}) error {
	return s.scanFn(dest...)
}

func TestScanResignation_Success(t *testing.T) {
	t.Parallel()

	submitted := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	intended := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	exit := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)

	row := stubResignationRow{scanFn: func(dest ...interface{}) error {
		if len(dest) != 12 {
			return errors.New("unexpected dest length")
		}
		*(dest[0].(*string)) = "res-1"
		*(dest[1].(*string)) = "emp-1"
		*(dest[2].(*string)) = "alice@example.com"
		*(dest[3].(*time.Time)) = submitted
		*(dest[4].(*time.Time)) = intended
		*(dest[5].(*string)) = "relocation"
		*(dest[6].(*string)) = string(resignation.StatusApproved)

		exitDest := dest[7].(*sql.NullTime)
		exitDest.Time = exit
		exitDest.Valid = true

		*(dest[8].(*bool)) = true

		rating := dest[9].(*sql.NullString)
		rating.String = "5"
		rating.Valid = true
		return nil
	}}

	res, err := scanResignation(row)
	if err != nil {
		t.Fatalf("scanResignation returned error: %v", err)
	}

	if res.ExitDate == nil || !res.ExitDate.Equal(exit) {
		t.Fatalf("expected exit date, got %+v", res.ExitDate)
	}
	if res.ExitInterviewResponses == nil || res.ExitInterviewResponses.CultureRating != "5" {
		t.Fatalf("expected interview responses, got %+v", res.ExitInterviewResponses)
	}
	if res.ExitInterviewResponses.Suggestions != "" {
		t.Fatalf("null column should map to empty string, got %q", res.ExitInterviewResponses.Suggestions)
	}
}

func TestScanResignation_NoRows(t *testing.T) {
	t.Parallel()

	row := stubResignationRow{scanFn: func(dest ...interface{}) error {
		return pgx.ErrNoRows
	}}

	_, err := scanResignation(row)
	if !errors.Is(err, resignation.ErrResignationNotFound) {
		t.Fatalf("expected ErrResignationNotFound, got %v", err)
	}
}

func TestTranslateResignationPgError(t *testing.T) {
	t.Parallel()

	uniqueErr := &pgconn.PgError{Code: resignationUniqueViolationCode, ConstraintName: activeResignationIndex}
	if !errors.Is(translateResignationPgError(uniqueErr), resignation.ErrDuplicateActiveRequest) {
		t.Fatalf("expected unique violation to map to ErrDuplicateActiveRequest")
	}

	otherUnique := &pgconn.PgError{Code: resignationUniqueViolationCode, ConstraintName: "resignations_pkey"}
	if translateResignationPgError(otherUnique) != error(otherUnique) {
		t.Fatalf("unique violation on another constraint should pass through")
	}

	invalidID := &pgconn.PgError{Code: resignationInvalidTextRepresentCode}
	if !errors.Is(translateResignationPgError(invalidID), resignation.ErrResignationNotFound) {
		t.Fatalf("expected invalid uuid to map to ErrResignationNotFound")
	}

	other := errors.New("other")
	if translateResignationPgError(other) != other {
		t.Fatalf("unexpected translation for generic error")
	}
}

func TestResignationRepository_Create_DuplicateActive(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewResignationRepository(mock)

	mock.ExpectQuery("INSERT INTO resignations").
		WithArgs("emp-1", "alice@example.com", pgxmock.AnyArg(), pgxmock.AnyArg(), "relocation", "Pending").
		WillReturnError(&pgconn.PgError{Code: resignationUniqueViolationCode, ConstraintName: activeResignationIndex})

	_, err = repo.Create(context.Background(), &resignation.Resignation{
		EmployeeID:             "emp-1",
		EmployeeUsername:       "alice@example.com",
		SubmissionDate:         time.Now().UTC(),
		IntendedLastWorkingDay: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		Reason:                 "relocation",
		Status:                 resignation.StatusPending,
	})
	if !errors.Is(err, resignation.ErrDuplicateActiveRequest) {
		t.Fatalf("expected ErrDuplicateActiveRequest, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResignationRepository_Create_Success(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewResignationRepository(mock)
	submitted := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	intended := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(resignationColumnNames).
		AddRow("res-1", "emp-1", "alice@example.com", submitted, intended, "relocation", "Pending", nil, false, nil, nil, nil)

	mock.ExpectQuery("INSERT INTO resignations").
		WithArgs("emp-1", "alice@example.com", submitted, intended, "relocation", "Pending").
		WillReturnRows(rows)

	created, err := repo.Create(context.Background(), &resignation.Resignation{
		EmployeeID:             "emp-1",
		EmployeeUsername:       "alice@example.com",
		SubmissionDate:         submitted,
		IntendedLastWorkingDay: intended,
		Reason:                 "relocation",
		Status:                 resignation.StatusPending,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != "res-1" || created.Status != resignation.StatusPending || created.ExitDate != nil {
		t.Fatalf("unexpected created record: %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResignationRepository_Update_GuardMismatch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewResignationRepository(mock)
	exit := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE resignations").
		WithArgs("Approved", exit, false, nil, nil, nil, "res-1", "Pending", false).
		WillReturnRows(pgxmock.NewRows(resignationColumnNames))

	_, err = repo.Update(context.Background(), &resignation.Resignation{
		ID:       "res-1",
		Status:   resignation.StatusApproved,
		ExitDate: &exit,
	}, resignation.UpdateGuard{Status: resignation.StatusPending})
	if !errors.Is(err, resignation.ErrStatusChangedConcurrently) {
		t.Fatalf("expected ErrStatusChangedConcurrently, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResignationRepository_FindByIDForUpdate_LocksRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewResignationRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(resignationColumnNames).
		AddRow("res-1", "emp-1", "alice@example.com", now, now, "relocation", "Pending", nil, false, nil, nil, nil)

	mock.ExpectQuery(`WHERE id = \$1\s+FOR UPDATE`).
		WithArgs("res-1").
		WillReturnRows(rows)

	found, err := repo.FindByIDForUpdate(context.Background(), "res-1")
	if err != nil {
		t.Fatalf("FindByIDForUpdate returned error: %v", err)
	}
	if found.ID != "res-1" {
		t.Fatalf("unexpected record: %+v", found)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResignationRepository_List_WithStatusFilter(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewResignationRepository(mock)
	status := resignation.StatusPending
	now := time.Now().UTC()

	rows := pgxmock.NewRows(resignationColumnNames).
		AddRow("res-1", "emp-1", "a@example.com", now, now, "r1", "Pending", nil, false, nil, nil, nil).
		AddRow("res-2", "emp-2", "b@example.com", now, now, "r2", "Pending", nil, false, nil, nil, nil).
		AddRow("res-3", "emp-3", "c@example.com", now, now, "r3", "Pending", nil, false, nil, nil, nil)

	mock.ExpectQuery(`FROM resignations WHERE status = \$1\s+ORDER BY submission_date DESC, id DESC\s+LIMIT \$2\s+OFFSET \$3`).
		WithArgs("Pending", 3, 0).
		WillReturnRows(rows)

	resignations, nextToken, err := repo.List(context.Background(), resignation.ListFilter{
		Status: &status,
		Limit:  2,
		Offset: 0,
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(resignations) != 2 {
		t.Fatalf("expected 2 resignations, got %d", len(resignations))
	}
	if nextToken != "2" {
		t.Fatalf("expected next token '2', got %s", nextToken)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResignationRepository_FindLatestByEmployee_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewResignationRepository(mock)

	mock.ExpectQuery(`ORDER BY submission_date DESC, id DESC\s+LIMIT 1`).
		WithArgs("emp-1").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.FindLatestByEmployee(context.Background(), "emp-1"); !errors.Is(err, resignation.ErrResignationNotFound) {
		t.Fatalf("expected ErrResignationNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
