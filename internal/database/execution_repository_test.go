package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jonesrussell/goharvest/internal/database"
)

func TestExecutionRepository_MarkCancelled(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := database.NewExecutionRepository(sqlxDB)
	ctx := context.Background()

	testCases := []struct {
		name      string
		setupMock func()
		want      bool
	}{
		{
			name: "running execution is transitioned",
			setupMock: func() {
				mock.ExpectExec("UPDATE executions").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: true,
		},
		{
			name: "terminal execution is left alone",
			setupMock: func() {
				mock.ExpectExec("UPDATE executions").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			want: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			transitioned, err := repo.MarkCancelled(ctx, "exec-1", time.Now())
			if err != nil {
				t.Fatalf("MarkCancelled() unexpected error: %v", err)
			}
			if transitioned != tc.want {
				t.Errorf("MarkCancelled() = %v, want %v", transitioned, tc.want)
			}

			if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
				t.Errorf("unfulfilled expectations: %v", expectErr)
			}
		})
	}
}
