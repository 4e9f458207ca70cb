package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
)

// FavoriteFilter 过滤掉用户已经收藏的电影：给用户推荐他收藏过的片子没有意义。
//
// 排除集优先用 rctx.Favorites 的请求内快照（与兴趣向量基于同一份收藏，
// 保证自洽）；快照缺失时回退到 FavoriteStore 逐条查询。
type FavoriteFilter struct {
	// Store 是收藏存储（可选，快照缺失时的回退路径）
	Store core.FavoriteStore
}

// NewFavoriteFilter 创建一个收藏排除过滤器。
func NewFavoriteFilter(store core.FavoriteStore) *FavoriteFilter {
	return &FavoriteFilter{Store: store}
}

func (f *FavoriteFilter) Name() string {
	return "filter.favorites"
}

func (f *FavoriteFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil {
		return false, nil
	}

	// 请求内快照
	for _, id := range rctx.Favorites {
		if item.ID == id {
			return true, nil
		}
	}
	if len(rctx.Favorites) > 0 {
		return false, nil
	}

	// 回退：快照为空且有存储时逐条确认
	if f.Store != nil && rctx.UserID != 0 {
		fav, err := f.Store.IsFavorite(ctx, rctx.UserID, item.ID)
		if err != nil {
			return false, err
		}
		return fav, nil
	}

	return false, nil
}
