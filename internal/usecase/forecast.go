package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CoinCast/internal/domain/models"
	domrepo "CoinCast/internal/domain/repository"
	"CoinCast/internal/services/model"
	applogger "CoinCast/pkg/logger"
	"CoinCast/pkg/util"
)

// ForecastService serves point forecasts from the trained artifact and reads
// back the prediction log and price history. It never mutates the history
// table.
type ForecastService struct {
	store   domrepo.HistoryStore
	preds   domrepo.PredictionLog
	model   *model.Lifecycle
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger

	lookbackDays int
	now          func() time.Time
}

func NewForecastService(
	store domrepo.HistoryStore,
	preds domrepo.PredictionLog,
	lifecycle *model.Lifecycle,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	lookbackDays int,
) *ForecastService {
	return &ForecastService{
		store:        store,
		preds:        preds,
		model:        lifecycle,
		events:       events,
		metrics:      metrics,
		l:            l,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// Predict produces a forecast anchored at runDate. The target date is
// runDate plus the artifact's horizon. At most one prediction is logged per
// (target date, run day); repeat calls on the same day return a fresh result
// without appending again.
func (s *ForecastService) Predict(ctx context.Context, runDate time.Time) (*models.ForecastResult, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordLatency("predict", time.Since(start).Seconds())
		}
	}()

	runDay := util.Day(runDate)

	cnt, err := s.store.Count(ctx)
	if err != nil {
		s.recordError("storage")
		return nil, err
	}
	if cnt == 0 {
		return nil, models.ErrNoData
	}

	art, err := s.loadOrRetrain(ctx)
	if err != nil {
		return nil, err
	}

	row, err := s.latestCompleteRow(ctx, art.FeatureNames)
	if err != nil {
		return nil, err
	}
	vec, _ := row.Vector(art.FeatureNames)
	predicted := art.Predict(vec)

	mae, r2, err := s.model.Score(ctx, art)
	if err != nil {
		return nil, err
	}

	targetDate := runDay.AddDate(0, 0, art.HorizonDays)
	res := &models.ForecastResult{
		ObservationDate: row.Date,
		TargetDate:      targetDate,
		PriceNow:        row.Price,
		PredictedPrice:  predicted,
		MAETrain:        mae,
		R2Train:         r2,
	}

	if err := s.logPrediction(ctx, targetDate, runDay, predicted); err != nil {
		s.recordError("storage")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPrediction(predicted)
	}
	if s.events != nil {
		if err := s.events.PublishForecast(ctx, res); err != nil && s.l != nil {
			s.l.Warn("forecast event publish failed", applogger.Error(err))
		}
	}
	if s.l != nil {
		s.l.Info("forecast produced",
			applogger.Time("target_date", targetDate),
			applogger.Float64("predicted", predicted),
			applogger.Float64("mae_train", mae),
		)
	}
	return res, nil
}

// History returns the most recent logged predictions, one per target date.
// windowDays, when positive, restricts results to target dates within that
// many days of today.
func (s *ForecastService) History(ctx context.Context, limit, windowDays int) ([]models.PredictionRecord, error) {
	recs, err := s.preds.LatestPerTargetDate(ctx, limit, windowDays)
	if err != nil {
		s.recordError("storage")
		return nil, err
	}
	return recs, nil
}

// Prices returns the stored close series for the trailing days window, oldest
// first.
func (s *ForecastService) Prices(ctx context.Context, days int) ([]models.PricePoint, error) {
	from := util.Day(s.now()).AddDate(0, 0, -days)
	rows, err := s.store.Range(ctx, domrepo.HistoryQuery{From: from, Order: domrepo.OrderAsc})
	if err != nil {
		s.recordError("storage")
		return nil, err
	}
	pts := make([]models.PricePoint, 0, len(rows))
	for _, r := range rows {
		pts = append(pts, models.PricePoint{Date: r.Date, Price: r.Price})
	}
	return pts, nil
}

// ClearPredictions empties the prediction log without touching price history
// or the artifact.
func (s *ForecastService) ClearPredictions(ctx context.Context) error {
	if err := s.preds.Truncate(ctx); err != nil {
		s.recordError("storage")
		return err
	}
	return nil
}

// loadOrRetrain loads the artifact, retraining exactly once when it is
// missing. A second miss propagates.
func (s *ForecastService) loadOrRetrain(ctx context.Context) (*models.ModelArtifact, error) {
	art, err := s.model.Load()
	if err == nil {
		return art, nil
	}
	if !errors.Is(err, models.ErrArtifactMissing) {
		return nil, err
	}
	if err := s.model.Retrain(ctx); err != nil {
		return nil, err
	}
	return s.model.Load()
}

// latestCompleteRow scans the trailing rows newest-first and returns the
// first one whose feature vector is fully populated in the given order.
func (s *ForecastService) latestCompleteRow(ctx context.Context, names []string) (*models.HistoryRow, error) {
	tail, err := s.store.LatestN(ctx, s.lookbackDays)
	if err != nil {
		s.recordError("storage")
		return nil, err
	}
	for i := len(tail) - 1; i >= 0; i-- {
		if _, ok := tail[i].Vector(names); ok {
			return &tail[i], nil
		}
	}
	return nil, fmt.Errorf("no feature-complete row in trailing %d: %w", s.lookbackDays, models.ErrInsufficientData)
}

func (s *ForecastService) logPrediction(ctx context.Context, targetDate, runDay time.Time, predicted float64) error {
	exists, err := s.preds.ExistsForRun(ctx, targetDate, runDay)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	runTS := runDay.Add(s.now().Sub(util.Day(s.now())))
	return s.preds.Append(ctx, models.PredictionRecord{
		RunTS:          runTS,
		TargetDate:     targetDate,
		PredictedPrice: predicted,
	})
}

func (s *ForecastService) recordError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordError(kind)
	}
}
