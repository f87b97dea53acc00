package repository

import (
	"errors"
	"testing"
	"time"

	"CoinCast/internal/domain/models"
)

func TestFileArtifactStoreRoundTrip(t *testing.T) {
	store := NewFileArtifactStore(t.TempDir())

	art := &models.ModelArtifact{
		FeatureNames: append([]string(nil), models.FeatureNames...),
		HorizonDays:  7,
		Alpha:        1.0,
		Means:        make([]float64, len(models.FeatureNames)),
		Stds:         make([]float64, len(models.FeatureNames)),
		Weights:      make([]float64, len(models.FeatureNames)),
		Intercept:    123.45,
		TrainedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		SampleCount:  20,
	}
	for i := range art.Weights {
		art.Weights[i] = float64(i) * 0.1
		art.Stds[i] = 1
	}

	if err := store.Save(art); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Intercept != art.Intercept || got.SampleCount != art.SampleCount {
		t.Fatalf("loaded artifact differs: %+v", got)
	}
	if !got.TrainedAt.Equal(art.TrainedAt) {
		t.Fatalf("trained_at = %v, want %v", got.TrainedAt, art.TrainedAt)
	}
	if len(got.Weights) != len(art.Weights) || got.Weights[3] != 0.3 {
		t.Fatalf("weights differ: %v", got.Weights)
	}
}

func TestFileArtifactStoreMissing(t *testing.T) {
	store := NewFileArtifactStore(t.TempDir())
	_, err := store.Load()
	if !errors.Is(err, models.ErrArtifactMissing) {
		t.Fatalf("expected missing-artifact error, got %v", err)
	}
}

func TestFileArtifactStoreRemove(t *testing.T) {
	store := NewFileArtifactStore(t.TempDir())

	// Removing a missing artifact is not an error.
	if err := store.Remove(); err != nil {
		t.Fatalf("remove missing: %v", err)
	}

	art := &models.ModelArtifact{
		FeatureNames: []string{"lag_1"},
		Means:        []float64{0},
		Stds:         []float64{1},
		Weights:      []float64{1},
	}
	if err := store.Save(art); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, models.ErrArtifactMissing) {
		t.Fatalf("expected missing after remove, got %v", err)
	}
}
