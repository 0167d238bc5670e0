package directory

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestTouchUpserts(t *testing.T) {
	repo, mock := newMock(t)
	seen := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_directory")).
		WithArgs(int64(42), int64(7), "ada", "Ada", 1, seen).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Touch(context.Background(), Entry{ChatID: 42, UserID: 7, Username: "ada", FirstName: "Ada", Commands: 1, LastSeen: seen})
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTouchWrapsError(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_directory")).WillReturnError(sql.ErrConnDone)
	if err := repo.Touch(context.Background(), Entry{ChatID: 1}); !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("err = %v", err)
	}
}

func TestStats(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(statsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"chats", "commands"}).AddRow(3, 17))
	st, err := repo.Stats(context.Background())
	if err != nil || st.Chats != 3 || st.Commands != 17 {
		t.Fatalf("stats = %+v, %v", st, err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(statsQuery)).WillReturnError(sql.ErrConnDone)
	if _, err := repo.Stats(context.Background()); !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
