package knn

import (
	"math"
	"sort"

	"github.com/rushteam/movierec/core"
)

// Metric 是距离度量类型。
type Metric string

const (
	// MetricEuclidean 欧氏距离，离线画像拟合阶段的默认度量。
	MetricEuclidean Metric = "euclidean"
	// MetricCosine 余弦距离（1 - 余弦相似度）。
	MetricCosine Metric = "cosine"
)

// ValidateMetric 验证距离度量类型。
func ValidateMetric(m Metric) bool {
	switch m {
	case MetricEuclidean, MetricCosine:
		return true
	default:
		return false
	}
}

// Neighbor 是一次近邻查询的单条结果。
type Neighbor struct {
	UserID   int64
	Distance float64
}

// Index 是在全量用户兴趣向量上拟合的精确近邻索引。
//
// 设计要点：
//   - Fit 之后只读：Query 绝不修改人群快照，可被所有并发请求共享
//   - 精确暴力检索：人群规模为全站用户数，逐行扫描在该量级下足够快，
//     且结果可复现（不引入近似索引的随机性）
//   - 确定性：距离相同时按 UserID 升序稳定排序
type Index struct {
	metric   Metric
	dim      int
	profiles []core.UserProfile
}

// Option 是 Fit 的配置选项。
type Option func(*Index)

// WithMetric 指定距离度量；必须与离线画像拟合阶段所用度量一致。
func WithMetric(m Metric) Option {
	return func(idx *Index) {
		if ValidateMetric(m) {
			idx.metric = m
		}
	}
}

// Fit 在给定的用户画像人群上拟合索引。
// 入参切片会被拷贝，调用方之后对原切片的修改不影响索引。
func Fit(profiles []core.UserProfile, opts ...Option) *Index {
	idx := &Index{metric: MetricEuclidean}
	for _, opt := range opts {
		opt(idx)
	}

	idx.profiles = make([]core.UserProfile, len(profiles))
	copy(idx.profiles, profiles)
	if len(idx.profiles) > 0 {
		idx.dim = len(idx.profiles[0].Vector)
	}
	return idx
}

// Size 返回人群规模。
func (idx *Index) Size() int {
	return len(idx.profiles)
}

// Dim 返回向量维度。
func (idx *Index) Dim() int {
	return idx.dim
}

// Metric 返回索引使用的距离度量。
func (idx *Index) Metric() Metric {
	return idx.metric
}

// Query 返回与给定向量最近的 k 个用户，按距离升序、距离相同按 UserID 升序。
// k 超出人群规模时收敛到人群规模（有界近邻数），而非报错。
func (idx *Index) Query(vec []float64, k int) ([]Neighbor, error) {
	if len(idx.profiles) == 0 {
		return nil, nil
	}
	if len(vec) != idx.dim {
		return nil, core.NewDomainError(core.ModuleKNN, core.ErrorCodeInvalidInput, "knn: query vector dimension mismatch")
	}
	if k < 1 {
		k = 1
	}
	if k > len(idx.profiles) {
		k = len(idx.profiles)
	}

	neighbors := make([]Neighbor, 0, len(idx.profiles))
	for _, p := range idx.profiles {
		var dist float64
		switch idx.metric {
		case MetricCosine:
			dist = 1.0 - cosineSimilarity(vec, p.Vector)
		default:
			dist = euclideanDistance(vec, p.Vector)
		}
		neighbors = append(neighbors, Neighbor{UserID: p.UserID, Distance: dist})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].UserID < neighbors[j].UserID
	})

	return neighbors[:k], nil
}

// 相似度计算函数

// cosineSimilarity 计算余弦相似度
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// euclideanDistance 计算欧氏距离
func euclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}

	return math.Sqrt(sum)
}
