package core

import "context"

// UserProfile 是近邻索引人群中的一行：用户 ID + 兴趣向量。
//
// 向量与 FeatureRow 聚合产出的兴趣向量同维同列序，由离线任务周期性重建，
// 进程内作为只读快照加载，请求路径绝不修改。
type UserProfile struct {
	UserID int64     `json:"user_id" yaml:"user_id"`
	Vector []float64 `json:"vector" yaml:"vector"`
}

// ProfileLoader 是用户画像快照的加载接口。
// 进程启动时调用一次；离线重训完成后可再次调用并原子切换索引快照。
type ProfileLoader interface {
	// LoadUserProfiles 加载全量用户画像快照。
	LoadUserProfiles(ctx context.Context) ([]UserProfile, error)
}
