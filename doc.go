// Package movierec 是一个电影推荐流水线（Movie Recommender）。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → ReRank）
// - 自适应召回: 相似用户邻域按 k 逐档扩大，候选凑够即停
// - 降级优先: 冷却中 / 数据不足 / 刷新失败都不破坏已有推荐集
package movierec

import "github.com/rushteam/movierec/pipeline"

// 轻量 facade：便于用户直接 import "movierec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)
