package repository

import (
	"context"
	"time"

	"CoinCast/internal/domain/models"
)

// PriceSource supplies quotes for the tracked asset. Both calls are bounded
// by the context and the client's own timeout; failures surface as
// models.ErrUpstreamUnavailable.
type PriceSource interface {
	// FetchLatest returns the most recent quote.
	FetchLatest(ctx context.Context) (models.PricePoint, error)
	// FetchRange returns an ascending daily series covering the trailing
	// number of days.
	FetchRange(ctx context.Context, days int) ([]models.PricePoint, error)
}

// Order is the sort direction for range reads.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// HistoryQuery filters a history range read. Zero From/To mean unbounded,
// zero Limit means no limit.
type HistoryQuery struct {
	From  time.Time
	To    time.Time
	Limit int
	Order Order
}

// HistoryStore is the durable one-row-per-date table of prices and derived
// features. Upsert is atomic replace-by-key: a date is never left missing or
// duplicated.
type HistoryStore interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, row models.HistoryRow) error
	UpsertBatch(ctx context.Context, rows []models.HistoryRow) error
	// Exists reports whether a row for the given calendar date is present.
	Exists(ctx context.Context, date time.Time) (bool, error)
	// Range returns rows ordered by date per the query.
	Range(ctx context.Context, q HistoryQuery) ([]models.HistoryRow, error)
	// LatestN returns the most recent n rows in ascending date order.
	LatestN(ctx context.Context, n int) ([]models.HistoryRow, error)
	Count(ctx context.Context) (int, error)
	// Truncate wipes the table. Only the explicit reset operation calls this.
	Truncate(ctx context.Context) error
}

// PredictionLog is the append-mostly table of forecast runs.
type PredictionLog interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, rec models.PredictionRecord) error
	// ExistsForRun reports whether a record already exists for the target
	// date with a run timestamp on the given calendar day.
	ExistsForRun(ctx context.Context, targetDate, runDay time.Time) (bool, error)
	// LatestPerTargetDate returns, for each distinct target date, only the
	// record with the maximum run timestamp, ordered by target date
	// descending, at most limit rows. windowDays > 0 restricts target dates
	// to the trailing window ending on the current wall-clock UTC day.
	LatestPerTargetDate(ctx context.Context, limit, windowDays int) ([]models.PredictionRecord, error)
	Truncate(ctx context.Context) error
}

// ArtifactStore persists the single current model artifact. Save replaces
// atomically; a half-written artifact is never observable.
type ArtifactStore interface {
	Save(art *models.ModelArtifact) error
	// Load returns the current artifact or models.ErrArtifactMissing.
	Load() (*models.ModelArtifact, error)
	Remove() error
}

// EventPublisher pushes ingestion/forecast events to an external sink.
type EventPublisher interface {
	PublishRefresh(ctx context.Context, outcome models.RefreshOutcome, date time.Time, price float64) error
	PublishForecast(ctx context.Context, res *models.ForecastResult) error
	Close() error
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordRefresh(outcome string)
	RecordRetrain(rows int)
	RecordPrediction(predicted float64)
	RecordError(kind string)
	RecordLastPrice(price float64)
	RecordLatency(op string, seconds float64)
}
