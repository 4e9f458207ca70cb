package core

import "github.com/rushteam/movierec/pkg/utils"

// RecommendContext 承载一次推荐请求的用户信息，贯穿整个 Pipeline 透传。
//
// 所有字段均为请求私有：兴趣向量在每次请求时重算，不做持久化；
// 收藏快照在请求开始时读取一次，后续节点（召回排除、过滤）共享同一份，
// 避免同一请求内多次读取收藏导致前后不一致。
type RecommendContext struct {
	UserID int64
	Scene  string

	// Favorites 是用户收藏电影 ID 的请求内快照，兼做过滤排除集。
	Favorites []int64

	// InterestVector 是收藏电影特征行的按列均值，列序为特征名字典序。
	// 由 feature.Aggregator 计算后写入，召回节点以它为近邻查询点。
	InterestVector []float64

	// FeatureNames 是 InterestVector 的列名（字典序），用于调试与一致性校验。
	FeatureNames []string

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数
	Params map[string]any
}

// FavoriteSet 将收藏快照转为 set，便于 O(1) 排除判断。
func (rctx *RecommendContext) FavoriteSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(rctx.Favorites))
	for _, id := range rctx.Favorites {
		set[id] = struct{}{}
	}
	return set
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
