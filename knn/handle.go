package knn

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rushteam/movierec/core"
)

// Handle 持有可原子切换的索引快照。
//
// 拟合好的索引是进程级共享的只读状态：所有并发请求读同一个快照；
// 离线重训完成后调用 Reload 整体换入新快照（load 全量画像 -> fit ->
// 指针翻转），翻转前后任一在途查询看到的都是一份自洽的快照，
// 不存在半新半旧的中间态。
//
// Handle 通过依赖注入传入 Pipeline，不做包级单例。
type Handle struct {
	loader core.ProfileLoader
	metric Metric
	idx    atomic.Pointer[Index]
}

// NewHandle 创建索引句柄，并立即加载一次画像快照。
func NewHandle(ctx context.Context, loader core.ProfileLoader, opts ...Option) (*Handle, error) {
	probe := Fit(nil, opts...)
	h := &Handle{loader: loader, metric: probe.Metric()}
	if err := h.Reload(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Reload 重新加载画像快照并原子切换索引。
// 失败时旧快照保持有效，在途与后续查询不受影响。
func (h *Handle) Reload(ctx context.Context) error {
	profiles, err := h.loader.LoadUserProfiles(ctx)
	if err != nil {
		return fmt.Errorf("knn: load user profiles: %w", err)
	}
	h.idx.Store(Fit(profiles, WithMetric(h.metric)))
	return nil
}

// Index 返回当前索引快照。调用方在单次请求内应只取一次，
// 保证该请求的多次查询落在同一快照上。
func (h *Handle) Index() *Index {
	return h.idx.Load()
}
