package model

import (
	"context"
	"fmt"
	"time"

	"CoinCast/internal/domain/models"
	domrepo "CoinCast/internal/domain/repository"
	applogger "CoinCast/pkg/logger"
)

// Lifecycle owns the model artifact: it trains, persists, and loads it.
// The artifact is bound to a feature list and a horizon; inference callers
// must follow the artifact's own copy of both.
type Lifecycle struct {
	store     domrepo.HistoryStore
	artifacts domrepo.ArtifactStore
	metrics   domrepo.Metrics
	l         *applogger.Logger

	horizonDays int
	alpha       float64
}

func NewLifecycle(store domrepo.HistoryStore, artifacts domrepo.ArtifactStore, metrics domrepo.Metrics, l *applogger.Logger, horizonDays int, alpha float64) *Lifecycle {
	return &Lifecycle{
		store:       store,
		artifacts:   artifacts,
		metrics:     metrics,
		l:           l,
		horizonDays: horizonDays,
		alpha:       alpha,
	}
}

// HorizonDays returns the configured forecast horizon.
func (lc *Lifecycle) HorizonDays() int { return lc.horizonDays }

// Retrain reads the full history, pairs each feature-complete row with the
// price observed horizonDays later, and fits a fresh artifact. Rows whose
// future price is outside the available history are dropped. With zero usable
// rows it fails with ErrInsufficientData and leaves the previous artifact
// untouched; otherwise the new artifact atomically replaces the old one.
func (lc *Lifecycle) Retrain(ctx context.Context) error {
	start := time.Now()

	rows, err := lc.store.Range(ctx, domrepo.HistoryQuery{Order: domrepo.OrderAsc})
	if err != nil {
		return models.NewStorageError("history range", err)
	}

	x, y := trainingSet(rows, models.FeatureNames, lc.horizonDays)
	if len(y) == 0 {
		return fmt.Errorf("retrain: %w", models.ErrInsufficientData)
	}

	weights, intercept, means, stds, err := fit(x, y, lc.alpha)
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}

	art := &models.ModelArtifact{
		FeatureNames: append([]string(nil), models.FeatureNames...),
		HorizonDays:  lc.horizonDays,
		Alpha:        lc.alpha,
		Means:        means,
		Stds:         stds,
		Weights:      weights,
		Intercept:    intercept,
		TrainedAt:    time.Now().UTC(),
		SampleCount:  len(y),
	}
	if err := lc.artifacts.Save(art); err != nil {
		return fmt.Errorf("retrain: persist artifact: %w", err)
	}

	if lc.metrics != nil {
		lc.metrics.RecordRetrain(len(y))
		lc.metrics.RecordLatency("retrain", time.Since(start).Seconds())
	}
	if lc.l != nil {
		lc.l.Info("model retrained",
			applogger.Int("rows", len(y)),
			applogger.Int("horizon_days", lc.horizonDays),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// Load returns the current artifact or ErrArtifactMissing.
func (lc *Lifecycle) Load() (*models.ModelArtifact, error) {
	return lc.artifacts.Load()
}

// DropArtifact deletes the persisted artifact. Missing is not an error.
func (lc *Lifecycle) DropArtifact() error {
	return lc.artifacts.Remove()
}

// Score recomputes training-set error metrics for the given artifact using
// the same shifted-target construction Retrain uses, honoring the artifact's
// own feature order and horizon.
func (lc *Lifecycle) Score(ctx context.Context, art *models.ModelArtifact) (mae, r2 float64, err error) {
	rows, err := lc.store.Range(ctx, domrepo.HistoryQuery{Order: domrepo.OrderAsc})
	if err != nil {
		return 0, 0, models.NewStorageError("history range", err)
	}

	x, y := trainingSet(rows, art.FeatureNames, art.HorizonDays)
	if len(y) == 0 {
		return 0, 0, fmt.Errorf("score: %w", models.ErrInsufficientData)
	}

	yhat := make([]float64, len(y))
	for i := range x {
		yhat[i] = art.Predict(x[i])
	}
	return meanAbsoluteError(y, yhat), r2Score(y, yhat), nil
}

// trainingSet builds (features, shifted target) pairs: the target of a row is
// the price at row date + horizon days. Rows with incomplete features or no
// future price are dropped.
func trainingSet(rows []models.HistoryRow, names []string, horizonDays int) ([][]float64, []float64) {
	byDate := make(map[time.Time]float64, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r.Price
	}

	var x [][]float64
	var y []float64
	for _, r := range rows {
		vec, ok := r.Vector(names)
		if !ok {
			continue
		}
		future, ok := byDate[r.Date.AddDate(0, 0, horizonDays)]
		if !ok {
			continue
		}
		x = append(x, vec)
		y = append(y, future)
	}
	return x, y
}
