package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/feature"
	"github.com/rushteam/movierec/filter"
	"github.com/rushteam/movierec/knn"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/recall"
	"github.com/rushteam/movierec/rerank"
	"github.com/rushteam/movierec/store"
)

// 全内存 fixture：50 个画像用户，用户 i 的兴趣向量为 (i, 0)；
// 用户 i 好评 {i*10, i*10+1}；被测用户 100 收藏 {10, 11}（零向量特征，
// 查询点落在原点，邻域按 UserID 升序扩张）。
type fixture struct {
	mem   *store.MemoryStore
	favs  *store.KVFavoriteStore
	recs  *store.KVRecommendationStore
	rec   *Recommender
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemoryStore()
	t.Cleanup(func() { mem.Close() })

	features := store.NewKVFeatureStore(mem)
	for _, id := range []int64{10, 11} {
		err := features.PutFeatureRow(ctx, core.FeatureRow{
			MovieID:  id,
			Features: map[string]float64{"a": 0, "b": 0},
		})
		if err != nil {
			t.Fatalf("PutFeatureRow: %v", err)
		}
	}

	favs := store.NewKVFavoriteStore(mem)
	if err := favs.PutFavorites(ctx, 100, []int64{10, 11}); err != nil {
		t.Fatalf("PutFavorites: %v", err)
	}

	ratings := store.NewKVRatingStore(mem)
	profiles := make([]core.UserProfile, 0, 50)
	for i := int64(1); i <= 50; i++ {
		profiles = append(profiles, core.UserProfile{UserID: i, Vector: []float64{float64(i), 0}})
		err := ratings.PutRatings(ctx, i, map[int64]float64{
			i * 10:   4.5,
			i*10 + 1: 5.0,
		})
		if err != nil {
			t.Fatalf("PutRatings: %v", err)
		}
	}

	loader := store.NewKVProfileLoader(mem)
	if err := loader.PutUserProfiles(ctx, profiles); err != nil {
		t.Fatalf("PutUserProfiles: %v", err)
	}
	handle, err := knn.NewHandle(ctx, loader)
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}

	recs := store.NewKVRecommendationStore(mem)
	f := &fixture{
		mem:   mem,
		favs:  favs,
		recs:  recs,
		clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.rec = &Recommender{
		Aggregator: feature.NewAggregator(features),
		Favorites:  favs,
		Recs:       recs,
		Pipeline: &pipeline.Pipeline{Nodes: []pipeline.Node{
			&recall.SimilarUsers{Index: handle, Ratings: ratings},
			&filter.FilterNode{Filters: []filter.Filter{filter.NewFavoriteFilter(favs)}},
			&rerank.CapNode{},
		}},
		Now: func() time.Time { return f.clock },
	}
	return f
}

// 用户 1 的好评恰好是被测用户的收藏：k=5 只凑 10 部，扩到 k=10 才满足，
// 去掉收藏后剩 18 部（用户 2..10 各 2 部），按 ID 升序。
func expectedFirstGeneration() []int64 {
	var want []int64
	for uid := int64(2); uid <= 10; uid++ {
		want = append(want, uid*10, uid*10+1)
	}
	return want
}

func TestRefreshAndFetchEndToEnd(t *testing.T) {
	f := newFixture(t)

	got, err := f.rec.RefreshAndFetch(context.Background(), 100)
	if err != nil {
		t.Fatalf("RefreshAndFetch: %v", err)
	}
	if want := expectedFirstGeneration(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// 收藏的电影绝不出现在结果里
	for _, id := range got {
		if id == 10 || id == 11 {
			t.Errorf("favorite movie %d leaked into recommendations", id)
		}
	}
}

func TestRefreshCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.rec.Refresh(ctx, 100); err != nil {
		t.Fatalf("initial Refresh: %v", err)
	}
	firstGen, err := f.rec.Fetch(ctx, 100)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// 30 秒后：冷却中，刷新被拒绝，推荐集不变
	f.clock = f.clock.Add(30 * time.Second)
	err = f.rec.Refresh(ctx, 100)
	if !core.IsCooldownActive(err) {
		t.Fatalf("expected COOLDOWN_ACTIVE, got %v", err)
	}
	got, err := f.rec.RefreshAndFetch(ctx, 100)
	if err != nil {
		t.Fatalf("RefreshAndFetch during cooldown: %v", err)
	}
	if !reflect.DeepEqual(got, firstGen) {
		t.Errorf("recommendation set changed during cooldown: %v vs %v", got, firstGen)
	}

	// 再过 31 秒：窗口已过，刷新放行
	f.clock = f.clock.Add(31 * time.Second)
	if err := f.rec.Refresh(ctx, 100); err != nil {
		t.Fatalf("Refresh after cooldown window: %v", err)
	}
	last, ok, err := f.recs.LastRefreshTime(ctx, 100)
	if err != nil || !ok {
		t.Fatalf("LastRefreshTime: (%v, %v)", ok, err)
	}
	if !last.Equal(f.clock) {
		t.Errorf("refresh timestamp = %v, want %v", last, f.clock)
	}
}

func TestRefreshClearsWhenAllCandidatesAreFavorites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 用户 300 的收藏恰好覆盖前 10 个邻居的全部好评电影：
	// 召回达标（20 部），但排除收藏后候选被整体清空
	features := store.NewKVFeatureStore(f.mem)
	var favs []int64
	for uid := int64(1); uid <= 10; uid++ {
		for _, id := range []int64{uid * 10, uid*10 + 1} {
			favs = append(favs, id)
			err := features.PutFeatureRow(ctx, core.FeatureRow{
				MovieID:  id,
				Features: map[string]float64{"a": 0, "b": 0},
			})
			if err != nil {
				t.Fatalf("PutFeatureRow: %v", err)
			}
		}
	}
	if err := f.favs.PutFavorites(ctx, 300, favs); err != nil {
		t.Fatalf("PutFavorites: %v", err)
	}

	// 过了冷却窗口的旧推荐集：此时它引用的电影已全部被收藏
	if err := f.recs.Replace(ctx, 300, []int64{900, 901}, f.clock.Add(-time.Hour)); err != nil {
		t.Fatalf("seed Replace: %v", err)
	}

	got, err := f.rec.RefreshAndFetch(ctx, 300)
	if err != nil {
		t.Fatalf("RefreshAndFetch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("recommendations must be cleared, still serving %v", got)
	}

	// 清空也是一次完整替换：刷新时间推进，冷却窗口照常生效
	last, ok, err := f.recs.LastRefreshTime(ctx, 300)
	if err != nil || !ok {
		t.Fatalf("LastRefreshTime: (%v, %v)", ok, err)
	}
	if !last.Equal(f.clock) {
		t.Errorf("refresh timestamp = %v, want %v", last, f.clock)
	}
}

func TestRefreshExhaustedKeepsPreviousGeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 清空全人群评分：召回穷举所有 k 也凑不够候选
	ratings := store.NewKVRatingStore(f.mem)
	for i := int64(1); i <= 50; i++ {
		if err := ratings.PutRatings(ctx, i, nil); err != nil {
			t.Fatalf("PutRatings: %v", err)
		}
	}
	if err := f.recs.Replace(ctx, 100, []int64{900}, f.clock.Add(-time.Hour)); err != nil {
		t.Fatalf("seed Replace: %v", err)
	}

	got, err := f.rec.RefreshAndFetch(ctx, 100)
	if err != nil {
		t.Fatalf("RefreshAndFetch: %v", err)
	}
	// 信号不足与"候选被清空"不同：旧推荐集保持权威
	if !reflect.DeepEqual(got, []int64{900}) {
		t.Errorf("got %v, want previous generation [900]", got)
	}

	err = f.rec.Refresh(ctx, 100)
	if !core.IsNoSignal(err) {
		t.Errorf("expected NO_SIGNAL, got %v", err)
	}
}

// failingRecs 在 Replace 上注入失败，读路径透传。
type failingRecs struct {
	core.RecommendationStore
	fail bool
}

func (s *failingRecs) Replace(ctx context.Context, userID int64, movieIDs []int64, createdAt time.Time) error {
	if s.fail {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeRefreshFailed, "store: replace rejected")
	}
	return s.RecommendationStore.Replace(ctx, userID, movieIDs, createdAt)
}

func TestReplaceFailureKeepsPreviousGeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wrapped := &failingRecs{RecommendationStore: f.recs}
	f.rec.Recs = wrapped
	f.rec.Cooldown = -1 // 关闭冷却，隔离被测行为

	firstGen, err := f.rec.RefreshAndFetch(ctx, 100)
	if err != nil {
		t.Fatalf("RefreshAndFetch: %v", err)
	}

	wrapped.fail = true
	got, err := f.rec.RefreshAndFetch(ctx, 100)
	if err != nil {
		t.Fatalf("RefreshAndFetch with failing store: %v", err)
	}
	if !reflect.DeepEqual(got, firstGen) {
		t.Errorf("previous generation must stay authoritative: %v vs %v", got, firstGen)
	}
}

func TestRefreshAndFetchNoFavorites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 无收藏用户带着历史推荐集：刷新降级，历史照常返回
	if err := f.recs.Replace(ctx, 200, []int64{5, 6}, f.clock.Add(-time.Hour)); err != nil {
		t.Fatalf("seed Replace: %v", err)
	}

	got, err := f.rec.RefreshAndFetch(ctx, 200)
	if err != nil {
		t.Fatalf("RefreshAndFetch: %v", err)
	}
	if !reflect.DeepEqual(got, []int64{5, 6}) {
		t.Errorf("got %v, want seeded [5 6]", got)
	}

	err = f.rec.Refresh(ctx, 200)
	if !core.IsInsufficientData(err) {
		t.Errorf("expected INSUFFICIENT_DATA, got %v", err)
	}
}

func TestFetchErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.rec.Recs = &erroringRecs{}

	_, err := f.rec.Fetch(context.Background(), 100)
	if !core.IsLookupFailure(err) {
		t.Errorf("expected LOOKUP_FAILURE, got %v", err)
	}
}

type erroringRecs struct{}

func (erroringRecs) Replace(context.Context, int64, []int64, time.Time) error {
	return errors.New("down")
}
func (erroringRecs) MovieIDs(context.Context, int64) ([]int64, error) {
	return nil, errors.New("down")
}
func (erroringRecs) LastRefreshTime(context.Context, int64) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("down")
}
