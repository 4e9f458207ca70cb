package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/movierec/core"
)

// KVProfileLoader 从 core.Store 加载用户画像快照（离线任务写入的 JSON 文档）。
type KVProfileLoader struct {
	store core.Store
}

func NewKVProfileLoader(s core.Store) *KVProfileLoader {
	return &KVProfileLoader{store: s}
}

// LoadUserProfiles 实现 core.ProfileLoader。
func (l *KVProfileLoader) LoadUserProfiles(ctx context.Context) ([]core.UserProfile, error) {
	data, err := l.store.Get(ctx, profileSnapshotKey)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var profiles []core.UserProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("store: parse profile snapshot: %w", err)
	}
	return profiles, nil
}

// PutUserProfiles 整体写入画像快照（离线重训任务使用）。
func (l *KVProfileLoader) PutUserProfiles(ctx context.Context, profiles []core.UserProfile) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, profileSnapshotKey, data)
}

var _ core.ProfileLoader = (*KVProfileLoader)(nil)

// FileProfileLoader 从本地 YAML 文件加载用户画像快照。
// 用于开发/测试，或离线任务把快照落盘、服务挂载文件的部署形态。
//
// 文件格式：
//
//	profiles:
//	  - user_id: 1
//	    vector: [0.1, 0.2, 0.3]
type FileProfileLoader struct {
	Path string
}

func NewFileProfileLoader(path string) *FileProfileLoader {
	return &FileProfileLoader{Path: path}
}

// LoadUserProfiles 实现 core.ProfileLoader。
func (l *FileProfileLoader) LoadUserProfiles(_ context.Context) ([]core.UserProfile, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("store: read profile snapshot: %w", err)
	}

	var doc struct {
		Profiles []core.UserProfile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("store: parse profile snapshot: %w", err)
	}
	return doc.Profiles, nil
}

var _ core.ProfileLoader = (*FileProfileLoader)(nil)
