package core

import "context"

// GoodRatingThreshold 是"好评"的默认评分阈值。
const GoodRatingThreshold = 4.0

// RatingStore 是用户评分关系的领域接口。
type RatingStore interface {
	// HighRatedMovieIDs 返回给定用户集合中评分 >= threshold 的电影 ID（去重）。
	// 返回顺序由实现决定，调用方不得依赖。
	HighRatedMovieIDs(ctx context.Context, userIDs []int64, threshold float64) ([]int64, error)
}

// FavoriteStore 是用户收藏关系的领域接口。
// 收藏集既是兴趣向量的输入，也是推荐结果的排除集。
type FavoriteStore interface {
	// FavoriteMovieIDs 返回用户收藏的电影 ID 列表。
	FavoriteMovieIDs(ctx context.Context, userID int64) ([]int64, error)

	// IsFavorite 判断电影是否在用户收藏中。
	IsFavorite(ctx context.Context, userID, movieID int64) (bool, error)
}
