package store

import (
	"context"
	"encoding/json"

	"github.com/rushteam/movierec/core"
)

// KVFavoriteStore 把 core.Store 适配为用户收藏存储。
// 每个用户一个 JSON 数组文档。
type KVFavoriteStore struct {
	store core.Store
}

func NewKVFavoriteStore(s core.Store) *KVFavoriteStore {
	return &KVFavoriteStore{store: s}
}

// FavoriteMovieIDs 实现 core.FavoriteStore。无收藏返回空列表。
func (a *KVFavoriteStore) FavoriteMovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	data, err := a.store.Get(ctx, userFavoritesKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// IsFavorite 实现 core.FavoriteStore。
func (a *KVFavoriteStore) IsFavorite(ctx context.Context, userID, movieID int64) (bool, error) {
	ids, err := a.FavoriteMovieIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == movieID {
			return true, nil
		}
	}
	return false, nil
}

// PutFavorites 整体写入用户收藏快照（同步任务使用）。
func (a *KVFavoriteStore) PutFavorites(ctx context.Context, userID int64, movieIDs []int64) error {
	data, err := json.Marshal(movieIDs)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, userFavoritesKey(userID), data)
}

var _ core.FavoriteStore = (*KVFavoriteStore)(nil)

// KVRatingStore 把 core.Store 适配为用户评分存储。
// 每个用户一个 JSON 文档：map[movie_id]rating。
type KVRatingStore struct {
	store core.Store
}

func NewKVRatingStore(s core.Store) *KVRatingStore {
	return &KVRatingStore{store: s}
}

// HighRatedMovieIDs 实现 core.RatingStore：给定用户集合中评分 >= threshold
// 的电影 ID 并集（去重）。单个用户文档缺失按"无评分"处理。
func (a *KVRatingStore) HighRatedMovieIDs(ctx context.Context, userIDs []int64, threshold float64) ([]int64, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = userRatingsKey(id)
	}

	kvs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var out []int64
	for _, uid := range userIDs {
		data, ok := kvs[userRatingsKey(uid)]
		if !ok {
			continue
		}
		var ratings map[int64]float64
		if err := json.Unmarshal(data, &ratings); err != nil {
			continue
		}
		for movieID, rating := range ratings {
			if rating < threshold {
				continue
			}
			if _, dup := seen[movieID]; dup {
				continue
			}
			seen[movieID] = struct{}{}
			out = append(out, movieID)
		}
	}
	return out, nil
}

// PutRatings 整体写入用户评分快照（同步任务使用）。
func (a *KVRatingStore) PutRatings(ctx context.Context, userID int64, ratings map[int64]float64) error {
	data, err := json.Marshal(ratings)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, userRatingsKey(userID), data)
}

var _ core.RatingStore = (*KVRatingStore)(nil)
