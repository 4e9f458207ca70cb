package config

import (
	"fmt"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/filter"
	"github.com/rushteam/movierec/knn"
	"github.com/rushteam/movierec/pkg/conv"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/recall"
	"github.com/rushteam/movierec/rerank"
)

// Deps 是 Node 构建所需的运行时依赖。
// 配置文件只描述结构和参数，存储和索引句柄由进程侧注入。
type Deps struct {
	Index     *knn.Handle
	Ratings   core.RatingStore
	Favorites core.FavoriteStore
}

// DefaultFactory 返回一个包含所有内置 Node 的默认工厂。
func DefaultFactory(deps Deps) *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	// 注册 Recall Nodes
	factory.Register("recall.fanout", func(config map[string]interface{}) (pipeline.Node, error) {
		return buildFanoutNode(deps, config)
	})
	factory.Register("recall.similar_users", func(config map[string]interface{}) (pipeline.Node, error) {
		return buildSimilarUsersSource(deps, config)
	})

	// 注册 Filter Nodes
	factory.Register("filter", func(config map[string]interface{}) (pipeline.Node, error) {
		return buildFilterNode(deps, config)
	})

	// 注册 ReRank Nodes
	factory.Register("rerank.cap", buildCapNode)

	return factory
}

func buildFanoutNode(deps Deps, config map[string]interface{}) (pipeline.Node, error) {
	sourcesConfig, ok := config["sources"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}

	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]interface{})
		if !ok {
			continue
		}
		sourceType := conv.ConfigGet[string](sourceMap, "type", "")
		switch sourceType {
		case "similar_users":
			src, err := buildSimilarUsersSource(deps, sourceMap)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}

	fanout := &recall.Fanout{
		Sources: sources,
		Dedup:   conv.ConfigGet[bool](config, "dedup", true),
	}
	if sec := conv.ConfigGetInt64(config, "timeout", 0); sec > 0 {
		fanout.Timeout = time.Duration(sec) * time.Second
	}
	if n := conv.ConfigGetInt64(config, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}

	return fanout, nil
}

func buildSimilarUsersSource(deps Deps, config map[string]interface{}) (*recall.SimilarUsers, error) {
	src := &recall.SimilarUsers{
		Index:           deps.Index,
		Ratings:         deps.Ratings,
		RatingThreshold: conv.ConfigGetFloat64(config, "rating_threshold", core.GoodRatingThreshold),
	}
	if ks := conv.SliceAnyToInt(config["ks"]); len(ks) > 0 {
		src.Ks = ks
	}
	if n := conv.ConfigGetInt64(config, "min_candidates", 0); n > 0 {
		src.MinCandidates = int(n)
	}
	return src, nil
}

func buildFilterNode(deps Deps, config map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := config["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet[string](filterMap, "type", "")
		switch filterType {
		case "favorites":
			filters = append(filters, &filter.FavoriteFilter{Store: deps.Favorites})

		case "rule":
			expr := conv.ConfigGet[string](filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("rule filter requires expr")
			}
			filters = append(filters, &filter.RuleFilter{Expr: expr})

		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

func buildCapNode(config map[string]interface{}) (pipeline.Node, error) {
	max := int(conv.ConfigGetInt64(config, "max", int64(rerank.DefaultMaxRecommendations)))
	if max <= 0 {
		return nil, fmt.Errorf("cap requires positive max")
	}
	return &rerank.CapNode{Max: max}, nil
}
