package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/sokoflow/commerce-api/internal/application/service"
	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
)

func TestTransactionScope_StageErrorRollsBackDomainWrites(t *testing.T) {
	gdb, mock := newGormMock(t)
	svc := service.NewIdempotencyService(NewIdempotencyRepository(gdb), NewGormTransactionScope(gdb), time.Minute)
	eventRepo := NewEventRepository(gdb)

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE "idempotency_keys" SET (.+) WHERE key = \$\d AND \(locked_at IS NULL OR locked_at < \$\d\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM "idempotency_keys" WHERE key = \$1`).
		WillReturnRows(keyRows("tok-1", enum.RecoveryPointStarted, &now))

	// The stage's domain write lands inside the transaction and must be
	// rolled back when the stage fails, with no recovery-point advance.
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "events"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	mock.ExpectExec(`UPDATE "idempotency_keys" SET (.+) WHERE key = \$\d`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stageErr := errors.New("carrier label unavailable")
	_, err := svc.WorkStage(context.Background(), newKeyRecord("tok-1"), func(txCtx context.Context) (*service.StageResult, error) {
		if err := eventRepo.Append(txCtx, &entity.Event{Name: "order.return_requested", Payload: "{}"}); err != nil {
			return nil, err
		}
		return nil, stageErr
	})
	if !errors.Is(err, stageErr) {
		t.Fatalf("expected the stage error, got %v", err)
	}
}

func TestTransactionScope_StageWritesAndAdvanceShareOneTransaction(t *testing.T) {
	gdb, mock := newGormMock(t)
	svc := service.NewIdempotencyService(NewIdempotencyRepository(gdb), NewGormTransactionScope(gdb), time.Minute)
	eventRepo := NewEventRepository(gdb)

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE "idempotency_keys" SET (.+) WHERE key = \$\d AND \(locked_at IS NULL OR locked_at < \$\d\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM "idempotency_keys" WHERE key = \$1`).
		WillReturnRows(keyRows("tok-1", enum.RecoveryPointStarted, &now))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "events"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "idempotency_keys" SET (.+) WHERE key = \$\d AND recovery_point = \$\d`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM "idempotency_keys" WHERE key = \$1`).
		WillReturnRows(keyRows("tok-1", enum.RecoveryPointReturnRequested, nil))
	mock.ExpectCommit()

	rec, err := svc.WorkStage(context.Background(), newKeyRecord("tok-1"), func(txCtx context.Context) (*service.StageResult, error) {
		if err := eventRepo.Append(txCtx, &entity.Event{Name: "order.return_requested", Payload: "{}"}); err != nil {
			return nil, err
		}
		return &service.StageResult{NextPoint: enum.RecoveryPointReturnRequested}, nil
	})
	if err != nil {
		t.Fatalf("WorkStage: %v", err)
	}
	if rec.RecoveryPoint != enum.RecoveryPointReturnRequested {
		t.Fatalf("unexpected recovery point: %s", rec.RecoveryPoint)
	}
}
