package feature

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/movierec/core"
)

// Aggregator 把用户的收藏电影集合聚合为单个兴趣向量。
//
// 算法（对拟合阶段与请求阶段完全一致）：
//  1. 按收藏 ID 批量取特征行，库中不存在的 ID 静默丢弃
//  2. 标识/展示字段（movie_id、title）不参与聚合
//  3. 特征名按字典序排序，固定列序：列序是设计不变式，不是运行时排序的副作用
//  4. 对每列求算术平均，得到一行向量
//
// 纯函数语义：除读存储外无副作用，同样输入必得同样输出。
type Aggregator struct {
	Store core.FeatureStore
}

func NewAggregator(store core.FeatureStore) *Aggregator {
	return &Aggregator{Store: store}
}

// BuildInterestVector 构建兴趣向量，返回向量与对应的特征名（字典序）。
//
// 错误：
//   - 有效特征行不足 1 行时返回 INSUFFICIENT_DATA
//   - 存储查询失败返回 LOOKUP_FAILURE
func (a *Aggregator) BuildInterestVector(ctx context.Context, movieIDs []int64) ([]float64, []string, error) {
	if len(movieIDs) == 0 {
		return nil, nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInsufficientData,
			"feature: no favorite movies to aggregate")
	}

	rows, err := a.Store.FeatureRows(ctx, movieIDs)
	if err != nil {
		return nil, nil, &core.DomainError{
			Module:  core.ModuleFeature,
			Code:    core.ErrorCodeLookupFailure,
			Message: fmt.Sprintf("feature: fetch feature rows: %v", err),
		}
	}
	if len(rows) < 1 {
		return nil, nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInsufficientData,
			"feature: no feature rows found for favorites")
	}

	// 收集特征名并集，字典序固定列序
	nameSet := make(map[string]struct{})
	for _, row := range rows {
		for name := range row.Features {
			nameSet[name] = struct{}{}
		}
	}
	if len(nameSet) == 0 {
		return nil, nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInsufficientData,
			"feature: feature rows carry no numeric columns")
	}

	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Strings(names)

	// 按列求均值；个别行缺失某列时按 0 参与（上游保证同构 schema，这里只兜底）
	vec := make([]float64, len(names))
	for _, row := range rows {
		for i, name := range names {
			vec[i] += row.Features[name]
		}
	}
	n := float64(len(rows))
	for i := range vec {
		vec[i] /= n
	}

	return vec, names, nil
}
