package features

import (
	"sort"
	"time"

	"CoinCast/internal/domain/models"
	"CoinCast/pkg/util"

	"gonum.org/v1/gonum/stat"
)

// Compute derives one HistoryRow per input date. Pure and deterministic: the
// input is normalized to UTC calendar days, duplicate dates collapse to the
// last-seen value, and the result is ordered by date ascending.
//
// Lag and return features look up the exact calendar date k days back and stay
// nil when that date is absent. Moving averages run over the trailing 7/14
// observed rows including the current one and stay nil until that many rows
// exist; they are never zero-filled. Day-of-week uses Monday=0 .. Sunday=6.
func Compute(points []models.PricePoint) []models.HistoryRow {
	pts := normalize(points)
	if len(pts) == 0 {
		return nil
	}

	byDate := make(map[time.Time]float64, len(pts))
	closes := make([]float64, len(pts))
	for i, p := range pts {
		byDate[p.Date] = p.Price
		closes[i] = p.Price
	}

	rows := make([]models.HistoryRow, len(pts))
	for i, p := range pts {
		row := models.HistoryRow{
			Date:  p.Date,
			Price: p.Price,
			DOW:   util.DayOfWeek(p.Date),
		}

		for k := 1; k <= 7; k++ {
			if v, ok := byDate[p.Date.AddDate(0, 0, -k)]; ok {
				lag := v
				row.Lags[k-1] = &lag
			}
		}

		if i >= 6 {
			ma := stat.Mean(closes[i-6:i+1], nil)
			row.MA7 = &ma
		}
		if i >= 13 {
			ma := stat.Mean(closes[i-13:i+1], nil)
			row.MA14 = &ma
		}

		if prev, ok := byDate[p.Date.AddDate(0, 0, -1)]; ok && prev != 0 {
			r := p.Price/prev - 1
			row.Ret1D = &r
		}
		if prev, ok := byDate[p.Date.AddDate(0, 0, -7)]; ok && prev != 0 {
			r := p.Price/prev - 1
			row.Ret7D = &r
		}

		rows[i] = row
	}
	return rows
}

// ComputeLast derives the feature row for the newest point only, given the
// trailing context. Lag and MA windows look back at most 14 days, so a
// bounded context is sufficient; recomputing older rows is not needed.
func ComputeLast(points []models.PricePoint) (models.HistoryRow, bool) {
	rows := Compute(points)
	if len(rows) == 0 {
		return models.HistoryRow{}, false
	}
	return rows[len(rows)-1], true
}

func normalize(points []models.PricePoint) []models.PricePoint {
	byDate := make(map[time.Time]float64, len(points))
	for _, p := range points {
		byDate[util.Day(p.Date)] = p.Price // last-seen wins
	}
	out := make([]models.PricePoint, 0, len(byDate))
	for d, price := range byDate {
		out = append(out, models.PricePoint{Date: d, Price: price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
