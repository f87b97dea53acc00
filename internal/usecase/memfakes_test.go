package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"CoinCast/internal/domain/models"
	domrepo "CoinCast/internal/domain/repository"
	"CoinCast/internal/services/features"
	"CoinCast/pkg/util"
)

// fakeSource serves a fixed daily series ending at `end`.
type fakeSource struct {
	series   map[time.Time]float64
	end      time.Time
	fetchErr error

	latestCalls int
	rangeCalls  int
}

func newFakeSource(end time.Time, prices []float64) *fakeSource {
	s := &fakeSource{series: make(map[time.Time]float64), end: util.Day(end)}
	for i := len(prices) - 1; i >= 0; i-- {
		d := s.end.AddDate(0, 0, -(len(prices) - 1 - i))
		s.series[d] = prices[i]
	}
	return s
}

func (s *fakeSource) FetchLatest(ctx context.Context) (models.PricePoint, error) {
	s.latestCalls++
	if s.fetchErr != nil {
		return models.PricePoint{}, s.fetchErr
	}
	return models.PricePoint{Date: s.end, Price: s.series[s.end]}, nil
}

func (s *fakeSource) FetchRange(ctx context.Context, days int) ([]models.PricePoint, error) {
	s.rangeCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var pts []models.PricePoint
	for d := s.end.AddDate(0, 0, -days+1); !d.After(s.end); d = d.AddDate(0, 0, 1) {
		if p, ok := s.series[d]; ok {
			pts = append(pts, models.PricePoint{Date: d, Price: p})
		}
	}
	return pts, nil
}

// memHistory is an in-memory HistoryStore with replace-by-date semantics.
type memHistory struct {
	rows map[time.Time]models.HistoryRow
}

func newMemHistory() *memHistory {
	return &memHistory{rows: make(map[time.Time]models.HistoryRow)}
}

func (m *memHistory) Init(ctx context.Context) error { return nil }

func (m *memHistory) Upsert(ctx context.Context, row models.HistoryRow) error {
	m.rows[util.Day(row.Date)] = row
	return nil
}

func (m *memHistory) UpsertBatch(ctx context.Context, rows []models.HistoryRow) error {
	for _, r := range rows {
		m.rows[util.Day(r.Date)] = r
	}
	return nil
}

func (m *memHistory) Exists(ctx context.Context, date time.Time) (bool, error) {
	_, ok := m.rows[util.Day(date)]
	return ok, nil
}

func (m *memHistory) sorted() []models.HistoryRow {
	out := make([]models.HistoryRow, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (m *memHistory) Range(ctx context.Context, q domrepo.HistoryQuery) ([]models.HistoryRow, error) {
	all := m.sorted()
	var out []models.HistoryRow
	for _, r := range all {
		if !q.From.IsZero() && r.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && r.Date.After(q.To) {
			continue
		}
		out = append(out, r)
	}
	if q.Order == domrepo.OrderDesc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memHistory) LatestN(ctx context.Context, n int) ([]models.HistoryRow, error) {
	all := m.sorted()
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (m *memHistory) Count(ctx context.Context) (int, error) { return len(m.rows), nil }

func (m *memHistory) Truncate(ctx context.Context) error {
	m.rows = make(map[time.Time]models.HistoryRow)
	return nil
}

// memPredictionLog keeps every appended record and reproduces the
// latest-per-target-date read.
type memPredictionLog struct {
	recs []models.PredictionRecord
	now  func() time.Time
}

func (m *memPredictionLog) Init(ctx context.Context) error { return nil }

func (m *memPredictionLog) Append(ctx context.Context, rec models.PredictionRecord) error {
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memPredictionLog) ExistsForRun(ctx context.Context, targetDate, runDay time.Time) (bool, error) {
	for _, r := range m.recs {
		if util.SameDay(r.TargetDate, targetDate) && util.SameDay(r.RunTS, runDay) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPredictionLog) LatestPerTargetDate(ctx context.Context, limit, windowDays int) ([]models.PredictionRecord, error) {
	latest := make(map[time.Time]models.PredictionRecord)
	for _, r := range m.recs {
		key := util.Day(r.TargetDate)
		if cur, ok := latest[key]; !ok || r.RunTS.After(cur.RunTS) {
			latest[key] = r
		}
	}
	var out []models.PredictionRecord
	var cutoff time.Time
	if windowDays > 0 {
		nowFn := m.now
		if nowFn == nil {
			nowFn = time.Now
		}
		cutoff = util.Day(nowFn()).AddDate(0, 0, -windowDays)
	}
	for _, r := range latest {
		if windowDays > 0 && r.TargetDate.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetDate.After(out[j].TargetDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPredictionLog) Truncate(ctx context.Context) error {
	m.recs = nil
	return nil
}

// memArtifacts is an in-memory ArtifactStore.
type memArtifacts struct {
	art *models.ModelArtifact

	saveCalls int
	loadErr   error
}

func (m *memArtifacts) Save(art *models.ModelArtifact) error {
	m.saveCalls++
	cp := *art
	m.art = &cp
	return nil
}

func (m *memArtifacts) Load() (*models.ModelArtifact, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.art == nil {
		return nil, models.ErrArtifactMissing
	}
	cp := *m.art
	return &cp, nil
}

func (m *memArtifacts) Remove() error {
	m.art = nil
	return nil
}

// historyRows derives feature rows from raw points, as the pipeline would.
func historyRows(pts []models.PricePoint) []models.HistoryRow {
	return features.Compute(pts)
}

var errSourceDown = errors.New("connect: connection refused")
