package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func TestTxManagerBegin(t *testing.T) {
	tests := []struct {
		name     string
		beginErr error
		finish   func(t *testing.T, tx *Tx)
		expect   func(m pgxmock.PgxPoolIface)
	}{
		{
			name: "commit",
			expect: func(m pgxmock.PgxPoolIface) {
				m.ExpectBeginTx(writeTxOptions)
				m.ExpectCommit()
			},
			finish: func(t *testing.T, tx *Tx) {
				if err := tx.Commit(context.Background()); err != nil {
					t.Fatalf("commit failed: %v", err)
				}
			},
		},
		{
			name: "rollback",
			expect: func(m pgxmock.PgxPoolIface) {
				m.ExpectBeginTx(writeTxOptions)
				m.ExpectRollback()
			},
			finish: func(t *testing.T, tx *Tx) {
				if err := tx.Rollback(context.Background()); err != nil {
					t.Fatalf("rollback failed: %v", err)
				}
			},
		},
		{
			name: "statement through inTx",
			expect: func(m pgxmock.PgxPoolIface) {
				m.ExpectBeginTx(writeTxOptions)
				m.ExpectExec("UPDATE ledgers").WithArgs("l1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				m.ExpectCommit()
			},
			finish: func(t *testing.T, tx *Tx) {
				tag, err := inTx(tx).Exec(context.Background(), "UPDATE ledgers SET deleted_at = NULL WHERE id = $1", "l1")
				if err != nil || tag.RowsAffected() != 1 {
					t.Fatalf("exec through transaction failed: %v", err)
				}
				if err := tx.Commit(context.Background()); err != nil {
					t.Fatalf("commit failed: %v", err)
				}
			},
		},
		{
			name:     "begin error",
			beginErr: errors.New("begin failed"),
			expect: func(m pgxmock.PgxPoolIface) {
				m.ExpectBeginTx(writeTxOptions).WillReturnError(errors.New("begin failed"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPool := newMockPool(t)
			tt.expect(mockPool)

			manager := newTxManagerWithPool(mockPool)
			tx, err := manager.Begin(context.Background())
			if tt.beginErr != nil {
				if err == nil || err.Error() != tt.beginErr.Error() {
					t.Fatalf("expected begin error, got err=%v tx=%v", err, tx)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			tt.finish(t, tx.(*Tx))
			assertExpectations(t, mockPool)
		})
	}
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func assertExpectations(t *testing.T, pool pgxmock.PgxPoolIface) {
	t.Helper()
	if err := pool.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations were not met: %v", err)
	}
}
