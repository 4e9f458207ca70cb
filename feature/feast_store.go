package feature

import (
	"context"
	"strings"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/feast"
)

// FeastStore 把 Feast 在线特征库适配为 core.FeatureStore。
//
// 上游离线任务将电影预处理特征物化到 Feast 在线存储；这里按 movie_id
// 实体批量拉取，组装成 FeatureRow。特征引用形如 "movie_features:budget"，
// 落入特征行时取冒号后的短名作为列名。
type FeastStore struct {
	Client feast.Client

	// FeatureRefs 数值特征引用列表，例如 ["movie_features:budget", "movie_features:popularity"]
	FeatureRefs []string

	// TitleRef 标题特征引用（可选，仅用于展示字段，不参与聚合）
	TitleRef string

	// EntityKey 实体 key 名，默认 "movie_id"
	EntityKey string

	// Project Feast 项目名
	Project string
}

func NewFeastStore(client feast.Client, project string, featureRefs []string) *FeastStore {
	return &FeastStore{
		Client:      client,
		FeatureRefs: featureRefs,
		EntityKey:   "movie_id",
		Project:     project,
	}
}

// FeatureRows 实现 core.FeatureStore。
// Feast 对未知实体返回空值行，这里同样静默丢弃（没有任何数值特征的行不计入）。
func (s *FeastStore) FeatureRows(ctx context.Context, movieIDs []int64) ([]core.FeatureRow, error) {
	if len(movieIDs) == 0 {
		return nil, nil
	}

	entityKey := s.EntityKey
	if entityKey == "" {
		entityKey = "movie_id"
	}

	refs := s.FeatureRefs
	if s.TitleRef != "" {
		refs = append(append([]string{}, s.FeatureRefs...), s.TitleRef)
	}

	entityRows := make([]map[string]interface{}, len(movieIDs))
	for i, id := range movieIDs {
		entityRows[i] = map[string]interface{}{entityKey: id}
	}

	resp, err := s.Client.GetOnlineFeatures(ctx, &feast.GetOnlineFeaturesRequest{
		Features:   refs,
		EntityRows: entityRows,
		Project:    s.Project,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]core.FeatureRow, 0, len(resp.FeatureVectors))
	for i, fv := range resp.FeatureVectors {
		row := core.FeatureRow{
			MovieID:  movieIDs[i],
			Features: make(map[string]float64, len(s.FeatureRefs)),
		}
		for _, ref := range s.FeatureRefs {
			if v, ok := fv.Values[ref].(float64); ok {
				row.Features[shortName(ref)] = v
			}
		}
		if s.TitleRef != "" {
			if t, ok := fv.Values[s.TitleRef].(string); ok {
				row.Title = t
			}
		}
		if len(row.Features) == 0 {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// shortName 取特征引用冒号后的短名："movie_features:budget" -> "budget"。
func shortName(ref string) string {
	if i := strings.LastIndex(ref, ":"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

var _ core.FeatureStore = (*FeastStore)(nil)
