package store

import (
	"context"
	"encoding/json"

	"github.com/rushteam/movierec/core"
)

// KVFeatureStore 把 core.Store 适配为电影特征存储。
// 每部电影一个 JSON 文档，按收藏集 BatchGet，减少网络往返。
type KVFeatureStore struct {
	store core.Store
}

func NewKVFeatureStore(s core.Store) *KVFeatureStore {
	return &KVFeatureStore{store: s}
}

// FeatureRows 实现 core.FeatureStore。
// 不存在或解析失败的 key 被静默丢弃，维持"未知 ID 不计入"的聚合语义。
func (a *KVFeatureStore) FeatureRows(ctx context.Context, movieIDs []int64) ([]core.FeatureRow, error) {
	if len(movieIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(movieIDs))
	for i, id := range movieIDs {
		keys[i] = movieFeatureKey(id)
	}

	kvs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	rows := make([]core.FeatureRow, 0, len(kvs))
	for _, id := range movieIDs {
		data, ok := kvs[movieFeatureKey(id)]
		if !ok {
			continue
		}
		var row core.FeatureRow
		if err := json.Unmarshal(data, &row); err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// PutFeatureRow 写入一部电影的特征行（离线物化任务使用）。
func (a *KVFeatureStore) PutFeatureRow(ctx context.Context, row core.FeatureRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, movieFeatureKey(row.MovieID), data)
}

var _ core.FeatureStore = (*KVFeatureStore)(nil)
