package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
)

// DefaultMaxRecommendations 是一代推荐的默认上限。
const DefaultMaxRecommendations = 30

// CapNode 是确定性截断节点：先按电影 ID 升序排序，再截取前 Max 个。
//
// 先排序再截断不是多余动作：召回集合做过排除后顺序没有保证，
// 任意截断会让同样输入在两次运行间产出不同结果。按 ID 排序是
// 文档化的稳定选择规则，保证结果可复现。
//
// 使用场景：
//   - 刷新推荐前的最终截断（默认 30）
//   - 配合 FilterNode 使用，放在 Pipeline 末端
type CapNode struct {
	// Max 要保留的电影数量上限
	// 如果 Max <= 0，使用 DefaultMaxRecommendations
	Max int
}

func (n *CapNode) Name() string {
	return "rerank.cap"
}

func (n *CapNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *CapNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	max := n.Max
	if max <= 0 {
		max = DefaultMaxRecommendations
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}
