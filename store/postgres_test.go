package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/rushteam/movierec/core"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresReplace(t *testing.T) {
	s, mock := newMockStore(t)
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM movies_recommendations").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectPrepare("INSERT INTO movies_recommendations")
	mock.ExpectExec("INSERT INTO movies_recommendations").
		WithArgs(int64(7), int64(101), createdAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO movies_recommendations").
		WithArgs(int64(7), int64(102), createdAt).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	if err := s.Replace(context.Background(), 7, []int64{101, 102}, createdAt); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresReplaceEmptyClearsOnly(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM movies_recommendations").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := s.Replace(context.Background(), 7, nil, time.Now()); err != nil {
		t.Fatalf("Replace with empty list: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresReplaceInsertFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	createdAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM movies_recommendations").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("INSERT INTO movies_recommendations")
	mock.ExpectExec("INSERT INTO movies_recommendations").
		WithArgs(int64(7), int64(101), createdAt).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.Replace(context.Background(), 7, []int64{101, 102}, createdAt)
	if !core.IsRefreshFailed(err) {
		t.Fatalf("expected REFRESH_FAILED, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresLastRefreshTime(t *testing.T) {
	s, mock := newMockStore(t)
	last := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT MAX\\(created_at\\) FROM movies_recommendations").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(last))

	got, ok, err := s.LastRefreshTime(context.Background(), 7)
	if err != nil {
		t.Fatalf("LastRefreshTime: %v", err)
	}
	if !ok || !got.Equal(last) {
		t.Errorf("got (%v, %v), want (%v, true)", got, ok, last)
	}
}

func TestPostgresLastRefreshTimeNoHistory(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT MAX\\(created_at\\) FROM movies_recommendations").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	_, ok, err := s.LastRefreshTime(context.Background(), 7)
	if err != nil {
		t.Fatalf("LastRefreshTime: %v", err)
	}
	if ok {
		t.Error("expected ok=false for user with no refresh history")
	}
}

func TestPostgresHighRatedMovieIDs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT DISTINCT movie_id FROM movies_ratings").
		WillReturnRows(sqlmock.NewRows([]string{"movie_id"}).
			AddRow(int64(11)).
			AddRow(int64(12)))

	ids, err := s.HighRatedMovieIDs(context.Background(), []int64{1, 2}, 4.0)
	if err != nil {
		t.Fatalf("HighRatedMovieIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 11 || ids[1] != 12 {
		t.Errorf("got %v, want [11 12]", ids)
	}
}

func TestPostgresHighRatedMovieIDsEmptyUsers(t *testing.T) {
	s, _ := newMockStore(t)

	ids, err := s.HighRatedMovieIDs(context.Background(), nil, 4.0)
	if err != nil {
		t.Fatalf("HighRatedMovieIDs: %v", err)
	}
	if ids != nil {
		t.Errorf("expected nil for empty user list, got %v", ids)
	}
}

func TestPostgresFavoriteMovieIDs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT movie_id FROM movies_favorites").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id"}).
			AddRow(int64(10)).
			AddRow(int64(11)))

	ids, err := s.FavoriteMovieIDs(context.Background(), 7)
	if err != nil {
		t.Fatalf("FavoriteMovieIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 11 {
		t.Errorf("got %v, want [10 11]", ids)
	}
}

func TestPostgresFeatureRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT movie_id, title, features FROM movies_preprocessed").
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "title", "features"}).
			AddRow(int64(10), "Heat", []byte(`{"action":1,"drama":0.5}`)))

	rows, err := s.FeatureRows(context.Background(), []int64{10})
	if err != nil {
		t.Fatalf("FeatureRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Features["action"] != 1 || rows[0].Features["drama"] != 0.5 {
		t.Errorf("unexpected features: %v", rows[0].Features)
	}
}
