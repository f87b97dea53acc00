package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"CoinCast/internal/domain/models"
	"CoinCast/internal/services/model"
)

type testEnv struct {
	source    *fakeSource
	store     *memHistory
	preds     *memPredictionLog
	artifacts *memArtifacts
	pipeline  *IngestionPipeline
	forecast  *ForecastService
}

// linearPrices returns n prices climbing one unit per day, ending the series
// on a perfectly linear trend.
func linearPrices(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func newTestEnv(end time.Time, prices []float64) *testEnv {
	source := newFakeSource(end, prices)
	store := newMemHistory()
	preds := &memPredictionLog{now: func() time.Time { return end }}
	artifacts := &memArtifacts{}
	lifecycle := model.NewLifecycle(store, artifacts, nil, nil, 7, 1e-6)

	env := &testEnv{
		source:    source,
		store:     store,
		preds:     preds,
		artifacts: artifacts,
	}
	env.pipeline = NewIngestionPipeline(source, store, preds, lifecycle, nil, nil, nil, len(prices), 30)
	env.forecast = NewForecastService(store, preds, lifecycle, nil, nil, nil, 30)
	env.forecast.now = func() time.Time { return end.Add(15 * time.Hour) }
	return env
}

var testEnd = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func TestRefreshBootstrap(t *testing.T) {
	env := newTestEnv(testEnd, linearPrices(40, 100))
	ctx := context.Background()

	outcome, err := env.pipeline.Refresh(ctx, false)
	if err != nil {
		t.Fatalf("bootstrap refresh: %v", err)
	}
	if outcome != models.RefreshChanged {
		t.Fatalf("expected changed outcome, got %q", outcome)
	}

	cnt, _ := env.store.Count(ctx)
	if cnt != 40 {
		t.Fatalf("expected 40 rows after bootstrap, got %d", cnt)
	}
	if env.artifacts.art == nil {
		t.Fatal("expected artifact after bootstrap retrain")
	}
	// Features complete from the 14th day; the last 7 days lack a shifted target.
	if env.artifacts.art.SampleCount != 40-13-7 {
		t.Fatalf("unexpected training sample count %d", env.artifacts.art.SampleCount)
	}
}

func TestRefreshIncrementalNoOp(t *testing.T) {
	env := newTestEnv(testEnd, linearPrices(40, 100))
	ctx := context.Background()

	if _, err := env.pipeline.Refresh(ctx, false); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	saves := env.artifacts.saveCalls

	outcome, err := env.pipeline.Refresh(ctx, false)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if outcome != models.RefreshNoOp {
		t.Fatalf("expected noop outcome, got %q", outcome)
	}
	if env.artifacts.saveCalls != saves {
		t.Fatal("noop refresh must not retrain")
	}
	if env.source.rangeCalls != 1 || env.source.latestCalls != 1 {
		t.Fatalf("incremental pass should fetch only the latest quote: range=%d latest=%d",
			env.source.rangeCalls, env.source.latestCalls)
	}
	cnt, _ := env.store.Count(ctx)
	if cnt != 40 {
		t.Fatalf("noop refresh changed row count to %d", cnt)
	}
}

func TestRefreshForceRecomputes(t *testing.T) {
	env := newTestEnv(testEnd, linearPrices(40, 100))
	ctx := context.Background()

	if _, err := env.pipeline.Refresh(ctx, false); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	// Provider revises today's close after the first ingest.
	env.source.series[testEnd] = 500

	outcome, err := env.pipeline.Refresh(ctx, true)
	if err != nil {
		t.Fatalf("forced refresh: %v", err)
	}
	if outcome != models.RefreshChanged {
		t.Fatalf("expected changed outcome, got %q", outcome)
	}

	rows, _ := env.store.LatestN(ctx, 1)
	if len(rows) != 1 || rows[0].Price != 500 {
		t.Fatalf("expected revised price 500 on latest row, got %+v", rows)
	}
	if rows[0].Lags[0] == nil || *rows[0].Lags[0] != 138 {
		t.Fatalf("lag_1 of revised row should still be yesterday's price, got %v", rows[0].Lags[0])
	}
	cnt, _ := env.store.Count(ctx)
	if cnt != 40 {
		t.Fatalf("forced refresh changed row count to %d", cnt)
	}
}

func TestRefreshIncrementalNewDay(t *testing.T) {
	env := newTestEnv(testEnd, linearPrices(40, 100))
	ctx := context.Background()

	if _, err := env.pipeline.Refresh(ctx, false); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	next := testEnd.AddDate(0, 0, 1)
	env.source.end = next
	env.source.series[next] = 140

	outcome, err := env.pipeline.Refresh(ctx, false)
	if err != nil {
		t.Fatalf("next-day refresh: %v", err)
	}
	if outcome != models.RefreshChanged {
		t.Fatalf("expected changed outcome, got %q", outcome)
	}
	cnt, _ := env.store.Count(ctx)
	if cnt != 41 {
		t.Fatalf("expected 41 rows, got %d", cnt)
	}

	rows, _ := env.store.LatestN(ctx, 1)
	row := rows[0]
	if !row.Date.Equal(next) {
		t.Fatalf("latest row date = %v, want %v", row.Date, next)
	}
	if row.Lags[0] == nil || *row.Lags[0] != 139 {
		t.Fatalf("lag_1 = %v, want 139", row.Lags[0])
	}
	if !row.FeatureComplete() {
		t.Fatal("new row should be feature-complete with 40 days behind it")
	}
}

func TestRefreshBootstrapUpstreamFailure(t *testing.T) {
	env := newTestEnv(testEnd, linearPrices(40, 100))
	env.source.fetchErr = fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, errSourceDown)
	ctx := context.Background()

	_, err := env.pipeline.Refresh(ctx, false)
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	cnt, _ := env.store.Count(ctx)
	if cnt != 0 {
		t.Fatalf("failed bootstrap must leave the table empty, got %d rows", cnt)
	}
	if env.artifacts.art != nil {
		t.Fatal("failed bootstrap must not produce an artifact")
	}
}

func TestRefreshBootstrapEmptySeries(t *testing.T) {
	// A source that answers without error but with zero points is as unusable
	// as one that fails outright.
	env := newTestEnv(testEnd, nil)
	ctx := context.Background()

	_, err := env.pipeline.Refresh(ctx, false)
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error on empty series, got %v", err)
	}
	cnt, _ := env.store.Count(ctx)
	if cnt != 0 {
		t.Fatalf("empty bootstrap must leave the table empty, got %d rows", cnt)
	}
}

func TestRefreshRetrainInsufficientData(t *testing.T) {
	// 10 days is below the 21 needed for one complete shifted training row.
	env := newTestEnv(testEnd, linearPrices(10, 100))
	ctx := context.Background()

	_, err := env.pipeline.Refresh(ctx, false)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected insufficient-data error, got %v", err)
	}
	// The series itself is persisted; only the retrain step failed.
	cnt, _ := env.store.Count(ctx)
	if cnt != 10 {
		t.Fatalf("expected 10 rows persisted, got %d", cnt)
	}
}

func TestReset(t *testing.T) {
	env := newTestEnv(testEnd, linearPrices(40, 100))
	ctx := context.Background()

	if _, err := env.pipeline.Refresh(ctx, false); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := env.forecast.Predict(ctx, testEnd); err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(env.preds.recs) == 0 {
		t.Fatal("expected a logged prediction before reset")
	}

	if err := env.pipeline.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(env.preds.recs) != 0 {
		t.Fatalf("reset must clear predictions, %d remain", len(env.preds.recs))
	}
	cnt, _ := env.store.Count(ctx)
	if cnt != 40 {
		t.Fatalf("reset should re-bootstrap to 40 rows, got %d", cnt)
	}
	if env.artifacts.art == nil {
		t.Fatal("reset should end with a freshly trained artifact")
	}
}
