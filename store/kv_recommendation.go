package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rushteam/movierec/core"
)

// KVRecommendationStore 把 core.Store 适配为推荐集持久化。
//
// 一个用户的一代推荐是单 key 下的一个 JSON 文档（ID 列表 + 共享的
// CreatedAt）。Replace 是一次单键写入：要么整代换入，要么保持原状，
// 不需要额外的事务机制就满足替换原子性。
type KVRecommendationStore struct {
	store core.Store
}

func NewKVRecommendationStore(s core.Store) *KVRecommendationStore {
	return &KVRecommendationStore{store: s}
}

// Replace 实现 core.RecommendationStore。
// movieIDs 为空时写入空文档：推荐被清空，但"上次刷新时间"得以保留，
// 冷却窗口照常生效。
func (a *KVRecommendationStore) Replace(ctx context.Context, userID int64, movieIDs []int64, createdAt time.Time) error {
	if movieIDs == nil {
		movieIDs = []int64{}
	}
	set := core.RecommendationSet{
		UserID:    userID,
		MovieIDs:  movieIDs,
		CreatedAt: createdAt,
	}
	data, err := json.Marshal(set)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, userRecsKey(userID), data); err != nil {
		return &core.DomainError{
			Module:  core.ModuleStore,
			Code:    core.ErrorCodeRefreshFailed,
			Message: "store: replace recommendations: " + err.Error(),
		}
	}
	return nil
}

// MovieIDs 实现 core.RecommendationStore。无推荐返回空列表。
func (a *KVRecommendationStore) MovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	set, err := a.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, nil
	}
	return set.MovieIDs, nil
}

// LastRefreshTime 实现 core.RecommendationStore。
func (a *KVRecommendationStore) LastRefreshTime(ctx context.Context, userID int64) (time.Time, bool, error) {
	set, err := a.load(ctx, userID)
	if err != nil {
		return time.Time{}, false, err
	}
	if set == nil {
		return time.Time{}, false, nil
	}
	return set.CreatedAt, true, nil
}

func (a *KVRecommendationStore) load(ctx context.Context, userID int64) (*core.RecommendationSet, error) {
	data, err := a.store.Get(ctx, userRecsKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var set core.RecommendationSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

var _ core.RecommendationStore = (*KVRecommendationStore)(nil)
