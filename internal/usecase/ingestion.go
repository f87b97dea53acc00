package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinCast/internal/domain/models"
	domrepo "CoinCast/internal/domain/repository"
	"CoinCast/internal/services/features"
	"CoinCast/internal/services/model"
	applogger "CoinCast/pkg/logger"
)

// IngestionPipeline orchestrates PriceSource → FeatureEngine → HistoryStore →
// retrain. An empty table triggers a bulk historical bootstrap; otherwise one
// new day is ingested incrementally. A mutex serializes pipeline runs so each
// logical operation executes as one unit against the store.
type IngestionPipeline struct {
	source  domrepo.PriceSource
	store   domrepo.HistoryStore
	preds   domrepo.PredictionLog
	model   *model.Lifecycle
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger

	bootstrapDays int
	lookbackDays  int

	mu sync.Mutex
}

func NewIngestionPipeline(
	source domrepo.PriceSource,
	store domrepo.HistoryStore,
	preds domrepo.PredictionLog,
	lifecycle *model.Lifecycle,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	bootstrapDays, lookbackDays int,
) *IngestionPipeline {
	return &IngestionPipeline{
		source:        source,
		store:         store,
		preds:         preds,
		model:         lifecycle,
		events:        events,
		metrics:       metrics,
		l:             l,
		bootstrapDays: bootstrapDays,
		lookbackDays:  lookbackDays,
	}
}

// Refresh runs one ingestion pass. With an empty history it bootstraps the
// full window; otherwise it ingests the latest quote. With force=false an
// already-present date is a no-op: no upsert, no retrain.
func (p *IngestionPipeline) Refresh(ctx context.Context, force bool) (models.RefreshOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordLatency("refresh", time.Since(start).Seconds())
		}
	}()

	cnt, err := p.store.Count(ctx)
	if err != nil {
		p.recordError("storage")
		return "", err
	}
	if cnt == 0 {
		return p.bootstrap(ctx)
	}
	return p.incremental(ctx, force)
}

// Reset wipes the history table, the prediction log, and the model artifact,
// then re-bootstraps from the price source.
func (p *IngestionPipeline) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Truncate(ctx); err != nil {
		p.recordError("storage")
		return err
	}
	if err := p.preds.Truncate(ctx); err != nil {
		p.recordError("storage")
		return err
	}
	if err := p.model.DropArtifact(); err != nil {
		return err
	}
	if p.l != nil {
		p.l.Warn("history and predictions wiped, re-bootstrapping")
	}
	_, err := p.bootstrap(ctx)
	return err
}

// bootstrap loads the full historical window in one pass. The fetch happens
// before any mutation: an unusable series fails the whole bootstrap and
// leaves the table empty.
func (p *IngestionPipeline) bootstrap(ctx context.Context) (models.RefreshOutcome, error) {
	pts, err := p.source.FetchRange(ctx, p.bootstrapDays)
	if err != nil {
		p.recordError("upstream")
		return "", err
	}
	if len(pts) == 0 {
		p.recordError("upstream")
		return "", fmt.Errorf("bootstrap: %w", models.ErrUpstreamUnavailable)
	}

	rows := features.Compute(pts)
	if err := p.store.UpsertBatch(ctx, rows); err != nil {
		p.recordError("storage")
		return "", err
	}

	if err := p.model.Retrain(ctx); err != nil {
		return "", err
	}

	last := rows[len(rows)-1]
	p.finish(ctx, models.RefreshChanged, last.Date, last.Price)
	if p.l != nil {
		p.l.Info("bootstrap complete",
			applogger.Int("rows", len(rows)),
			applogger.Int("window_days", p.bootstrapDays),
		)
	}
	return models.RefreshChanged, nil
}

// incremental ingests the single most recent quote. The new row's features
// are recomputed from the trailing rows only; lag and MA windows look back at
// most 14 days, so the bounded tail is sufficient.
func (p *IngestionPipeline) incremental(ctx context.Context, force bool) (models.RefreshOutcome, error) {
	pt, err := p.source.FetchLatest(ctx)
	if err != nil {
		p.recordError("upstream")
		return "", err
	}

	exists, err := p.store.Exists(ctx, pt.Date)
	if err != nil {
		p.recordError("storage")
		return "", err
	}
	if exists && !force {
		if p.metrics != nil {
			p.metrics.RecordRefresh(string(models.RefreshNoOp))
		}
		return models.RefreshNoOp, nil
	}

	tail, err := p.store.LatestN(ctx, p.lookbackDays)
	if err != nil {
		p.recordError("storage")
		return "", err
	}

	pts := make([]models.PricePoint, 0, len(tail)+1)
	for _, r := range tail {
		pts = append(pts, models.PricePoint{Date: r.Date, Price: r.Price})
	}
	pts = append(pts, pt) // same-day re-fetch replaces the stored price

	row, ok := features.ComputeLast(pts)
	if !ok {
		return "", models.ErrInsufficientData
	}
	if err := p.store.Upsert(ctx, row); err != nil {
		p.recordError("storage")
		return "", err
	}

	if err := p.model.Retrain(ctx); err != nil {
		return "", err
	}

	p.finish(ctx, models.RefreshChanged, row.Date, row.Price)
	return models.RefreshChanged, nil
}

func (p *IngestionPipeline) finish(ctx context.Context, outcome models.RefreshOutcome, date time.Time, price float64) {
	if p.metrics != nil {
		p.metrics.RecordRefresh(string(outcome))
		p.metrics.RecordLastPrice(price)
	}
	if p.events != nil {
		if err := p.events.PublishRefresh(ctx, outcome, date, price); err != nil && p.l != nil {
			p.l.Warn("refresh event publish failed", applogger.Error(err))
		}
	}
}

func (p *IngestionPipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}
