package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/rushteam/movierec/core"
)

// PostgresStore 是关系库实现：收藏、评分、推荐集直接落在行表上。
//
// 表结构（与离线侧共享）：
//
//	movies_preprocessed    (movie_id BIGINT PRIMARY KEY, title TEXT, features JSONB)
//	movies_favorites       (user_id BIGINT, movie_id BIGINT, created_at TIMESTAMPTZ)
//	movies_ratings         (user_id BIGINT, movie_id BIGINT, rating DOUBLE PRECISION)
//	movies_recommendations (user_id BIGINT, movie_id BIGINT, created_at TIMESTAMPTZ)
//
// Replace 的原子性由数据库事务保证：delete + insert 同一事务提交，
// 失败即整体回滚，读者不会看到新旧混合的行。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 用已建好的连接创建存储。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore 按 DSN 建连（driver: lib/pq）。
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Close() error { return s.db.Close() }

// FeatureRows 实现 core.FeatureStore。
func (s *PostgresStore) FeatureRows(ctx context.Context, movieIDs []int64) ([]core.FeatureRow, error) {
	if len(movieIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT movie_id, title, features FROM movies_preprocessed WHERE movie_id = ANY($1)`,
		pq.Array(movieIDs))
	if err != nil {
		return nil, fmt.Errorf("store: query feature rows: %w", err)
	}
	defer rows.Close()

	var out []core.FeatureRow
	for rows.Next() {
		var (
			row core.FeatureRow
			raw []byte
		)
		if err := rows.Scan(&row.MovieID, &row.Title, &raw); err != nil {
			return nil, fmt.Errorf("store: scan feature row: %w", err)
		}
		if err := json.Unmarshal(raw, &row.Features); err != nil {
			return nil, fmt.Errorf("store: parse features for movie %d: %w", row.MovieID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// FavoriteMovieIDs 实现 core.FavoriteStore。
func (s *PostgresStore) FavoriteMovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT movie_id FROM movies_favorites WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: query favorites: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsFavorite 实现 core.FavoriteStore。
func (s *PostgresStore) IsFavorite(ctx context.Context, userID, movieID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM movies_favorites WHERE user_id = $1 AND movie_id = $2)`,
		userID, movieID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: query is favorite: %w", err)
	}
	return exists, nil
}

// HighRatedMovieIDs 实现 core.RatingStore（DISTINCT 在 SQL 侧完成）。
func (s *PostgresStore) HighRatedMovieIDs(ctx context.Context, userIDs []int64, threshold float64) ([]int64, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT movie_id FROM movies_ratings WHERE user_id = ANY($1) AND rating >= $2`,
		pq.Array(userIDs), threshold)
	if err != nil {
		return nil, fmt.Errorf("store: query high rated movies: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Replace 实现 core.RecommendationStore：事务内 delete-then-insert，
// 整代共享同一个 createdAt。列表为空时只清空不插入。
func (s *PostgresStore) Replace(ctx context.Context, userID int64, movieIDs []int64, createdAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return refreshFailed("begin tx", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM movies_recommendations WHERE user_id = $1`, userID); err != nil {
		tx.Rollback()
		return refreshFailed("delete recommendations", err)
	}

	if len(movieIDs) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO movies_recommendations (user_id, movie_id, created_at) VALUES ($1, $2, $3)`)
		if err != nil {
			tx.Rollback()
			return refreshFailed("prepare insert", err)
		}
		for _, movieID := range movieIDs {
			if _, err := stmt.ExecContext(ctx, userID, movieID, createdAt); err != nil {
				stmt.Close()
				tx.Rollback()
				return refreshFailed("insert recommendation", err)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return refreshFailed("commit", err)
	}
	return nil
}

// MovieIDs 实现 core.RecommendationStore。
func (s *PostgresStore) MovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT movie_id FROM movies_recommendations WHERE user_id = $1 ORDER BY movie_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: query recommendations: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LastRefreshTime 实现 core.RecommendationStore。
func (s *PostgresStore) LastRefreshTime(ctx context.Context, userID int64) (time.Time, bool, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM movies_recommendations WHERE user_id = $1`, userID).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("store: query last refresh time: %w", err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}
	return last.Time, true, nil
}

func refreshFailed(op string, err error) error {
	return &core.DomainError{
		Module:  core.ModuleStore,
		Code:    core.ErrorCodeRefreshFailed,
		Message: fmt.Sprintf("store: %s: %v", op, err),
	}
}

var (
	_ core.FeatureStore        = (*PostgresStore)(nil)
	_ core.FavoriteStore       = (*PostgresStore)(nil)
	_ core.RatingStore         = (*PostgresStore)(nil)
	_ core.RecommendationStore = (*PostgresStore)(nil)
)
