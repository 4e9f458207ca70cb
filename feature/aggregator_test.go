package feature

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/rushteam/movierec/core"
)

type stubFeatureStore struct {
	rows []core.FeatureRow
	err  error
}

func (s *stubFeatureStore) FeatureRows(_ context.Context, _ []int64) ([]core.FeatureRow, error) {
	return s.rows, s.err
}

func TestBuildInterestVector(t *testing.T) {
	agg := NewAggregator(&stubFeatureStore{rows: []core.FeatureRow{
		{MovieID: 10, Title: "Heat", Features: map[string]float64{"drama": 1, "action": 1}},
		{MovieID: 11, Title: "Alien", Features: map[string]float64{"drama": 0, "action": 1}},
	}})

	vec, names, err := agg.BuildInterestVector(context.Background(), []int64{10, 11})
	if err != nil {
		t.Fatalf("BuildInterestVector: %v", err)
	}

	// 列按特征名字典序固定
	if want := []string{"action", "drama"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if want := []float64{1, 0.5}; !reflect.DeepEqual(vec, want) {
		t.Errorf("vec = %v, want %v", vec, want)
	}
}

func TestBuildInterestVectorSingleRow(t *testing.T) {
	agg := NewAggregator(&stubFeatureStore{rows: []core.FeatureRow{
		{MovieID: 10, Features: map[string]float64{"action": 0.75}},
	}})

	vec, _, err := agg.BuildInterestVector(context.Background(), []int64{10, 404})
	if err != nil {
		t.Fatalf("BuildInterestVector: %v", err)
	}
	if len(vec) != 1 || math.Abs(vec[0]-0.75) > 1e-12 {
		t.Errorf("vec = %v, want [0.75]", vec)
	}
}

func TestBuildInterestVectorNoFavorites(t *testing.T) {
	agg := NewAggregator(&stubFeatureStore{})

	_, _, err := agg.BuildInterestVector(context.Background(), nil)
	if !core.IsInsufficientData(err) {
		t.Errorf("expected INSUFFICIENT_DATA, got %v", err)
	}
}

func TestBuildInterestVectorNoRows(t *testing.T) {
	agg := NewAggregator(&stubFeatureStore{})

	_, _, err := agg.BuildInterestVector(context.Background(), []int64{404})
	if !core.IsInsufficientData(err) {
		t.Errorf("expected INSUFFICIENT_DATA, got %v", err)
	}
}

func TestBuildInterestVectorStoreError(t *testing.T) {
	agg := NewAggregator(&stubFeatureStore{err: errors.New("connection refused")})

	_, _, err := agg.BuildInterestVector(context.Background(), []int64{10})
	if !core.IsLookupFailure(err) {
		t.Errorf("expected LOOKUP_FAILURE, got %v", err)
	}
}

func TestBuildInterestVectorDeterministic(t *testing.T) {
	store := &stubFeatureStore{rows: []core.FeatureRow{
		{MovieID: 1, Features: map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3}},
		{MovieID: 2, Features: map[string]float64{"a": 0.4, "b": 0.5, "c": 0.6}},
		{MovieID: 3, Features: map[string]float64{"a": 0.7, "b": 0.8, "c": 0.9}},
	}}
	agg := NewAggregator(store)

	first, firstNames, err := agg.BuildInterestVector(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("BuildInterestVector: %v", err)
	}
	for i := 0; i < 10; i++ {
		vec, names, err := agg.BuildInterestVector(context.Background(), []int64{1, 2, 3})
		if err != nil {
			t.Fatalf("BuildInterestVector: %v", err)
		}
		if !reflect.DeepEqual(vec, first) || !reflect.DeepEqual(names, firstNames) {
			t.Fatalf("non-deterministic output: %v / %v vs %v / %v", vec, names, first, firstNames)
		}
	}
}
