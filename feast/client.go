package feast

import (
	"context"
	"time"
)

// Client 是 Feast Feature Store 的客户端接口。
//
// Feast 是一个开源的 Feature Store；movierec 只消费它的在线特征读路径：
// 上游离线任务把电影预处理特征物化进在线存储，推荐链路按 movie_id
// 实体批量取特征行。
//
// 使用方式：
//   - 方式1：NewGrpcClient（官方 SDK，推荐）
//   - 方式2：自行实现此接口（如接入自建 Feature Server）
//
// 参考：https://github.com/feast-dev/feast
type Client interface {
	// GetOnlineFeatures 获取在线特征
	//
	// 参数：
	//   - Features: 特征名称列表，例如 ["movie_features:budget", "movie_features:popularity"]
	//   - EntityRows: 实体行，例如 [{"movie_id": 603}]
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)

	// Close 关闭客户端连接
	Close() error
}

// GetOnlineFeaturesRequest 获取在线特征请求
type GetOnlineFeaturesRequest struct {
	// Features 特征名称列表
	Features []string

	// EntityRows 实体行，例如 [{"movie_id": 603}, {"movie_id": 604}]
	EntityRows []map[string]interface{}

	// Project 项目名称（可选，缺省用客户端配置的项目）
	Project string
}

// GetOnlineFeaturesResponse 获取在线特征响应
type GetOnlineFeaturesResponse struct {
	// FeatureVectors 特征向量列表，每个元素对应一个实体行
	FeatureVectors []FeatureVector
}

// FeatureVector 特征向量
type FeatureVector struct {
	// Values 特征值，key 为特征名称
	Values map[string]interface{}

	// EntityRow 对应的实体行
	EntityRow map[string]interface{}
}

// ClientConfig 客户端配置
type ClientConfig struct {
	Endpoint string
	Project  string
	Timeout  time.Duration
}

// ClientOption 客户端配置选项
type ClientOption func(*ClientConfig)

// WithTimeout 配置选项：设置超时时间
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}
