package core

import "context"

// FeatureRow 是一部电影的预处理特征行，由上游特征工程产出，入库后不可变。
//
// 标识与展示字段（MovieID、Title）显式建模为结构体字段，永远不参与
// 兴趣向量的数值聚合；Features 的 key 为特征名，列序由聚合阶段按
// 特征名字典序固定，保证同样输入得到同样的向量。
type FeatureRow struct {
	MovieID  int64              `json:"movie_id"`
	Title    string             `json:"title"`
	Features map[string]float64 `json:"features"`
}

// FeatureStore 是电影特征行的领域接口。
//
// 实现：
//   - store.KVFeatureStore（core.Store 之上的 JSON 文档）
//   - store.PostgresStore（预处理特征表）
//   - feature.FeastStore（Feast 在线特征库）
type FeatureStore interface {
	// FeatureRows 批量获取特征行。
	// 库中不存在的 movie_id 被静默丢弃，返回行数可能小于入参数量。
	FeatureRows(ctx context.Context, movieIDs []int64) ([]FeatureRow, error)
}
