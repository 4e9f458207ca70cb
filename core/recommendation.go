package core

import (
	"context"
	"time"
)

// RecommendationSet 是一个用户的一"代"推荐：一次刷新产出的整批电影 ID，
// 共享同一个 CreatedAt 时间戳。任一时刻每个用户至多存活一代。
type RecommendationSet struct {
	UserID    int64     `json:"user_id"`
	MovieIDs  []int64   `json:"movie_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// RecommendationStore 是推荐集持久化的领域接口。
//
// 一致性要求：
//   - Replace 是原子替换：删旧 + 插新是一个事务单元，失败时回滚到替换前状态，
//     读者永远看不到新旧混合的结果
//   - movieIDs 为空时仍然执行清空（推荐被清掉），但不插入任何行
//
// 实现：
//   - store.KVRecommendationStore：整代推荐存为单 key JSON 文档，单键写入天然原子
//   - store.PostgresStore：行表 + 事务内 delete-then-insert
type RecommendationStore interface {
	// Replace 用新的一代推荐整体替换用户当前推荐集。
	Replace(ctx context.Context, userID int64, movieIDs []int64, createdAt time.Time) error

	// MovieIDs 读取用户当前持久化的推荐电影 ID 列表。
	// 无推荐时返回空列表而非错误。
	MovieIDs(ctx context.Context, userID int64) ([]int64, error)

	// LastRefreshTime 返回用户当前推荐集的 CreatedAt。
	// 从未刷新过时 ok 为 false。
	LastRefreshTime(ctx context.Context, userID int64) (t time.Time, ok bool, err error)
}
