package recall

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/knn"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
)

// DefaultKs 是自适应检索的默认邻域宽度序列。
var DefaultKs = []int{5, 10, 15, 20, 25, 30, 35, 40, 45, 50}

// DefaultMinCandidates 是接受一次召回所需的最小去重候选数。
const DefaultMinCandidates = 20

// SimilarUsers 是基于相似用户好评的自适应召回源。
//
// 算法：按 Ks 升序逐档扩大邻域。每档 k 先查近邻索引取 k 个最相似用户，
// 再取这批用户好评（评分 >= RatingThreshold）过的电影 ID 去重累积；
// 候选数达到 MinCandidates 即停。最大 k 仍不达标时返回空结果，
// 语义是"信号不足"而非错误。
//
// 扩档的动机：收藏稀疏的用户在小邻域里往往凑不够好评候选，
// 逐步放宽邻域用精度换召回，直到候选池可用。
type SimilarUsers struct {
	// Index 是近邻索引句柄；同一次请求只取一次快照，保证各档 k 查的是同一人群。
	Index *knn.Handle

	// Ratings 提供"这批用户好评过哪些电影"的查询。
	Ratings core.RatingStore

	// Ks 邻域宽度序列（升序）；为空时使用 DefaultKs。
	Ks []int

	// MinCandidates 最小候选数阈值；<=0 时使用 DefaultMinCandidates。
	MinCandidates int

	// RatingThreshold 好评阈值；<=0 时使用 core.GoodRatingThreshold。
	RatingThreshold float64
}

func (r *SimilarUsers) Name() string        { return "recall.similar_users" }
func (r *SimilarUsers) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *SimilarUsers) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *SimilarUsers) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Index == nil || r.Ratings == nil || rctx == nil {
		return nil, nil
	}
	if len(rctx.InterestVector) == 0 {
		// 兴趣向量由聚合阶段写入；没有向量就没有查询点
		return nil, nil
	}

	idx := r.Index.Index()
	if idx == nil || idx.Size() == 0 {
		return nil, nil
	}

	ks := r.Ks
	if len(ks) == 0 {
		ks = DefaultKs
	}
	minCandidates := r.MinCandidates
	if minCandidates <= 0 {
		minCandidates = DefaultMinCandidates
	}
	threshold := r.RatingThreshold
	if threshold <= 0 {
		threshold = core.GoodRatingThreshold
	}

	// 去重累积候选，保留首次出现顺序，保证同输入下结果可复现
	seen := make(map[int64]struct{})
	var ordered []int64
	usedK := 0

	for _, k := range ks {
		neighbors, err := idx.Query(rctx.InterestVector, k)
		if err != nil {
			return nil, err
		}

		userIDs := make([]int64, 0, len(neighbors))
		for _, nb := range neighbors {
			userIDs = append(userIDs, nb.UserID)
		}

		movieIDs, err := r.Ratings.HighRatedMovieIDs(ctx, userIDs, threshold)
		if err != nil {
			return nil, fmt.Errorf("recall: high rated movies for %d neighbors: %w", len(neighbors), err)
		}

		for _, id := range movieIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}

		usedK = k
		if len(ordered) >= minCandidates {
			break
		}
		if k >= idx.Size() {
			// 邻域已覆盖全量人群，继续扩 k 不会带来新候选
			break
		}
	}

	if len(ordered) < minCandidates {
		// 信号不足：返回空结果由上层降级，不作为错误
		rctx.PutLabel("no_signal", utils.Label{Value: "true", Source: "recall"})
		return nil, nil
	}

	out := make([]*core.Item, 0, len(ordered))
	for _, id := range ordered {
		it := core.NewItem(id)
		it.PutLabel("recall_source", utils.Label{Value: "similar_users", Source: "recall"})
		it.PutLabel("recall_k", utils.Label{Value: strconv.Itoa(usedK), Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
