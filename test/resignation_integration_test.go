//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	repo "github.com/ogurasousui/resignation-grpc-clean-arch/internal/adapters/repository/postgres"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/core/resignation"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/platform/config"
	pg "github.com/ogurasousui/resignation-grpc-clean-arch/internal/platform/db/postgres"
)

const migrationsDir = "../assets/migrations"

func setup(t *testing.T) (*resignation.Service, *repo.ResignationRepository) {
	t.Helper()

	cfg, err := config.Load(configPathFromEnv())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if err := resetMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	resignationRepo := repo.NewResignationRepository(pool)
	svc := resignation.NewService(
		resignationRepo,
		resignation.NewValidator(noHolidays{}, time.Second, nil),
		nil,
		stubClock{now: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)},
		pg.NewTransactionManager(pool),
		"hr-team@example.com",
	)
	return svc, resignationRepo
}

func TestResignationLifecycleIntegration(t *testing.T) {
	svc, resignationRepo := setup(t)
	ctx := context.Background()

	employee := resignation.Actor{ID: "emp-1", Username: "alice", Role: resignation.RoleEmployee, CountryCode: "IND"}
	hr := resignation.Actor{ID: "hr-1", Username: "hr", Role: resignation.RoleHR}
	lastDay := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	created, err := svc.Submit(ctx, resignation.SubmitInput{Actor: employee, IntendedLastWorkingDay: &lastDay, Reason: "relocation"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	if _, err := svc.Submit(ctx, resignation.SubmitInput{Actor: employee, IntendedLastWorkingDay: &lastDay, Reason: "again"}); !errors.Is(err, resignation.ErrDuplicateActiveRequest) {
		t.Fatalf("expected ErrDuplicateActiveRequest, got %v", err)
	}

	approved, err := svc.Approve(ctx, resignation.ApproveInput{Actor: hr, ID: created.ID, ExitDate: "2026-11-30"})
	if err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	if approved.ExitDate == nil || approved.ExitDate.Format(resignation.DateLayout) != "2026-11-30" {
		t.Fatalf("unexpected exit date: %v", approved.ExitDate)
	}

	if _, err := svc.Reject(ctx, resignation.RejectInput{Actor: hr, ID: created.ID}); !errors.Is(err, resignation.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}

	done, err := svc.SubmitExitInterview(ctx, resignation.ExitInterviewInput{
		Actor:     employee,
		ID:        created.ID,
		Responses: resignation.ExitInterviewResponses{CultureRating: "4", ManagementFeedback: "fine", Suggestions: "none"},
	})
	if err != nil {
		t.Fatalf("SubmitExitInterview error: %v", err)
	}
	if !done.ExitInterviewCompleted {
		t.Fatalf("interview not recorded: %+v", done)
	}

	found, err := resignationRepo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if found.ExitInterviewResponses == nil || found.ExitInterviewResponses.CultureRating != "4" {
		t.Fatalf("responses not persisted: %+v", found)
	}

	if _, err := svc.GetMyStatus(ctx, resignation.Actor{ID: "emp-unknown", Role: resignation.RoleEmployee}); !errors.Is(err, resignation.ErrResignationNotFound) {
		t.Fatalf("expected ErrResignationNotFound, got %v", err)
	}
}

func TestConcurrentSubmitIntegration(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	employee := resignation.Actor{ID: "emp-race", Username: "racer", Role: resignation.RoleEmployee}
	lastDay := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, resignation.SubmitInput{Actor: employee, IntendedLastWorkingDay: &lastDay, Reason: "race"})
			if err != nil && !errors.Is(err, resignation.ErrDuplicateActiveRequest) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one active request, got %d", succeeded)
	}
}

func TestConcurrentDecisionIntegration(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	employee := resignation.Actor{ID: "emp-decide", Username: "bob", Role: resignation.RoleEmployee}
	hr := resignation.Actor{ID: "hr-1", Role: resignation.RoleHR}
	lastDay := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	created, err := svc.Submit(ctx, resignation.SubmitInput{Actor: employee, IntendedLastWorkingDay: &lastDay, Reason: "race"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.Approve(ctx, resignation.ApproveInput{Actor: hr, ID: created.ID, ExitDate: "2026-11-30"})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = svc.Reject(ctx, resignation.RejectInput{Actor: hr, ID: created.ID})
	}()
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, resignation.ErrInvalidStateTransition):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one decision to win, got %d (%v)", winners, errs)
	}
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "../assets/local.yaml"
}

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}

type noHolidays struct{}

func (noHolidays) IsHoliday(context.Context, time.Time, string) (bool, error) {
	return false, nil
}
