package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/knn"
	"github.com/rushteam/movierec/pipeline"
)

type stubLoader struct{}

func (stubLoader) LoadUserProfiles(context.Context) ([]core.UserProfile, error) {
	return []core.UserProfile{{UserID: 1, Vector: []float64{0, 0}}}, nil
}

type stubRatings struct{}

func (stubRatings) HighRatedMovieIDs(context.Context, []int64, float64) ([]int64, error) {
	return nil, nil
}

type stubFavorites struct{}

func (stubFavorites) FavoriteMovieIDs(context.Context, int64) ([]int64, error) { return nil, nil }
func (stubFavorites) IsFavorite(context.Context, int64, int64) (bool, error)  { return false, nil }

const pipelineYAML = `
pipeline:
  name: movies
  nodes:
    - type: recall.fanout
      config:
        dedup: true
        timeout: 2
        sources:
          - type: similar_users
            min_candidates: 20
            ks: [5, 10, 15, 20, 25, 30, 35, 40, 45, 50]
    - type: filter
      config:
        filters:
          - type: favorites
          - type: rule
            expr: "item.id < 0"
    - type: rerank.cap
      config:
        max: 30
`

func TestBuildPipelineFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(pipelineYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := pipeline.LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}

	handle, err := knn.NewHandle(context.Background(), stubLoader{})
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}
	factory := DefaultFactory(Deps{
		Index:     handle,
		Ratings:   stubRatings{},
		Favorites: stubFavorites{},
	})

	p, err := cfg.BuildPipeline(factory)
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if len(p.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(p.Nodes))
	}

	wantKinds := []pipeline.Kind{pipeline.KindRecall, pipeline.KindFilter, pipeline.KindReRank}
	for i, node := range p.Nodes {
		if node.Kind() != wantKinds[i] {
			t.Errorf("node[%d].Kind() = %v, want %v", i, node.Kind(), wantKinds[i])
		}
	}
}

func TestBuildUnknownNodeType(t *testing.T) {
	factory := DefaultFactory(Deps{})
	if _, err := factory.Build("rank.lr", nil); err == nil {
		t.Error("expected error for unregistered node type")
	}
}
