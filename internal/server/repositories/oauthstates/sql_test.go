package oauthstates

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db), mock, db
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT key, state, expires_at FROM oauth_state WHERE key = \$1$`).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "state", "expires_at"}).AddRow("k1", "sealed", int64(9000)))

	got, err := repo.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.State != "sealed" || !got.ExpiresAt.Equal(time.UnixMilli(9000)) {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM oauth_state`).WithArgs("k").WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), "k"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestSet_Upserts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+oauth_state\s*\(key,\s*state,\s*expires_at\).*ON\s+CONFLICT\s*\(key\)\s*DO\s+UPDATE`
	mock.ExpectExec(q).WithArgs("k", "v", int64(123)).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Set(context.Background(), &models.OAuthState{Key: "k", State: "v", ExpiresAt: time.UnixMilli(123)}); err != nil {
		t.Fatalf("Set error: %v", err)
	}
}

func TestDeleteAndClear(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM oauth_state WHERE key = \$1$`).WithArgs("k").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE FROM oauth_state$`).WillReturnResult(sqlmock.NewResult(0, 4))

	if err := repo.Delete(context.Background(), "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Clear(context.Background()); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM oauth_state WHERE expires_at <= \$1$`).
		WithArgs(int64(5000)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteExpired(context.Background(), time.UnixMilli(5000))
	if err != nil || n != 2 {
		t.Fatalf("expected 2, nil; got %d, %v", n, err)
	}
}

func TestDeleteExpired_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM oauth_state`).WillReturnError(errors.New("db down"))

	_, err := repo.DeleteExpired(context.Background(), time.Now())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
