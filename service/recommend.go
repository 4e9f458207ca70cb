package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/feature"
	"github.com/rushteam/movierec/pipeline"
)

// DefaultCooldown 是两次刷新之间的最小间隔。
const DefaultCooldown = time.Minute

// Recommender 是推荐服务的编排层：冷却闸门 + 刷新链路 + 读路径。
//
// 刷新链路：收藏 -> 兴趣向量聚合 -> Pipeline（召回/过滤/截断）-> 推荐集替换。
// 链路上的"本地可恢复"错误（冷却中、收藏不足、信号不足）不修改已有推荐集，
// 读路径继续返回上一代结果；替换事务失败同样保留旧数据。
//
// 并发约定：同一用户的刷新经 singleflight 串行化，并发触发只执行一次。
type Recommender struct {
	// Aggregator 把收藏集合聚合为兴趣向量。
	Aggregator *feature.Aggregator

	// Favorites 提供用户收藏查询。
	Favorites core.FavoriteStore

	// Recs 是推荐集的持久化存储。
	Recs core.RecommendationStore

	// Pipeline 是召回到截断的处理链。
	Pipeline *pipeline.Pipeline

	// Cooldown 刷新冷却窗口；0 表示使用 DefaultCooldown，负数表示关闭冷却。
	Cooldown time.Duration

	// Logger 为空时使用 slog.Default()。
	Logger *slog.Logger

	// Now 便于测试注入时钟；为空时使用 time.Now。
	Now func() time.Time

	group singleflight.Group
}

func (s *Recommender) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Recommender) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Recommender) cooldown() time.Duration {
	if s.Cooldown == 0 {
		return DefaultCooldown
	}
	if s.Cooldown < 0 {
		return 0
	}
	return s.Cooldown
}

// RefreshAndFetch 先尝试刷新再读取推荐集。
//
// 刷新被拒绝或失败时不中断读路径：冷却中、数据不足、信号不足、
// 替换事务失败都降级为"返回已持久化的推荐集"。只有读路径本身
// 失败才向调用方返回错误。
func (s *Recommender) RefreshAndFetch(ctx context.Context, userID int64) ([]int64, error) {
	if err := s.Refresh(ctx, userID); err != nil {
		if core.IsRecoverable(err) {
			s.logger().Debug("refresh skipped",
				slog.Int64("user_id", userID),
				slog.String("reason", core.GetDomainError(err).Code))
		} else {
			s.logger().Warn("refresh failed, serving previous recommendations",
				slog.Int64("user_id", userID),
				slog.Any("err", err))
		}
	}
	return s.Fetch(ctx, userID)
}

// Fetch 返回当前持久化的推荐集；没有历史推荐时返回空列表而非错误。
func (s *Recommender) Fetch(ctx context.Context, userID int64) ([]int64, error) {
	ids, err := s.Recs.MovieIDs(ctx, userID)
	if err != nil {
		return nil, &core.DomainError{
			Module:  core.ModuleService,
			Code:    core.ErrorCodeLookupFailure,
			Message: fmt.Sprintf("service: load recommendations for user %d: %v", userID, err),
		}
	}
	return ids, nil
}

// Refresh 重算并替换一个用户的推荐集。
// 同一用户的并发刷新合并为一次执行，共享同一个结果。
func (s *Recommender) Refresh(ctx context.Context, userID int64) error {
	_, err, _ := s.group.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		return nil, s.refresh(ctx, userID)
	})
	return err
}

// RefreshAsync 后台触发刷新，不阻塞调用方。
// 可恢复的拒绝只记 debug，真实失败记 warn。
func (s *Recommender) RefreshAsync(userID int64, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := s.Refresh(ctx, userID)
		switch {
		case err == nil:
		case core.IsRecoverable(err):
			s.logger().Debug("async refresh skipped",
				slog.Int64("user_id", userID),
				slog.String("reason", core.GetDomainError(err).Code))
		default:
			s.logger().Warn("async refresh failed",
				slog.Int64("user_id", userID),
				slog.Any("err", err))
		}
	}()
}

func (s *Recommender) refresh(ctx context.Context, userID int64) error {
	if cd := s.cooldown(); cd > 0 {
		last, ok, err := s.Recs.LastRefreshTime(ctx, userID)
		if err != nil {
			return &core.DomainError{
				Module:  core.ModuleService,
				Code:    core.ErrorCodeLookupFailure,
				Message: fmt.Sprintf("service: last refresh time for user %d: %v", userID, err),
			}
		}
		if ok && s.now().Sub(last) < cd {
			return &core.DomainError{
				Module:  core.ModuleService,
				Code:    core.ErrorCodeCooldownActive,
				Message: fmt.Sprintf("service: refresh for user %d within cooldown window", userID),
			}
		}
	}

	favorites, err := s.Favorites.FavoriteMovieIDs(ctx, userID)
	if err != nil {
		return &core.DomainError{
			Module:  core.ModuleService,
			Code:    core.ErrorCodeLookupFailure,
			Message: fmt.Sprintf("service: load favorites for user %d: %v", userID, err),
		}
	}

	vector, names, err := s.Aggregator.BuildInterestVector(ctx, favorites)
	if err != nil {
		return err
	}

	rctx := &core.RecommendContext{
		UserID:         userID,
		Scene:          "movies",
		Favorites:      favorites,
		InterestVector: vector,
		FeatureNames:   names,
	}

	items, err := s.Pipeline.Run(ctx, rctx, nil)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		// 两种空结果语义不同：召回穷举仍不达标（no_signal）不触发替换，
		// 旧推荐集保持权威；候选被排除集整体清空则照常整代替换为空，
		// 用户收藏覆盖了全部候选时旧推荐已经失效，不该继续展示
		if _, exhausted := rctx.GetLabel("no_signal"); exhausted {
			return &core.DomainError{
				Module:  core.ModuleService,
				Code:    core.ErrorCodeNoSignal,
				Message: fmt.Sprintf("service: no candidates for user %d", userID),
			}
		}
	}

	createdAt := s.now()
	if err := s.Recs.Replace(ctx, userID, core.ItemIDs(items), createdAt); err != nil {
		return err
	}

	s.logger().Info("recommendations refreshed",
		slog.Int64("user_id", userID),
		slog.Int("count", len(items)))
	return nil
}
