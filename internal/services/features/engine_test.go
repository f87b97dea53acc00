package features

import (
	"math"
	"testing"
	"time"

	"CoinCast/internal/domain/models"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func series(prices ...float64) []models.PricePoint {
	pts := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = models.PricePoint{Date: day(i), Price: p}
	}
	return pts
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLagSevenMatchesPriceSevenBack(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	rows := Compute(series(prices...))

	for i, row := range rows {
		if i < 7 {
			if row.Lags[6] != nil {
				t.Fatalf("row %d: lag_7 should be nil", i)
			}
			continue
		}
		if row.Lags[6] == nil {
			t.Fatalf("row %d: lag_7 missing", i)
		}
		if !approx(*row.Lags[6], prices[i-7]) {
			t.Fatalf("row %d: lag_7 = %v, want %v", i, *row.Lags[6], prices[i-7])
		}
	}
}

func TestMovingAveragesOnArithmeticSequence(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = float64(i + 1) // 1..20
	}
	rows := Compute(series(prices...))

	for i := 0; i < 6; i++ {
		if rows[i].MA7 != nil {
			t.Fatalf("row %d: ma_7 should be nil", i)
		}
	}
	for i := 0; i < 13; i++ {
		if rows[i].MA14 != nil {
			t.Fatalf("row %d: ma_14 should be nil", i)
		}
	}

	// day 20: ma_7 = mean(14..20) = 17, ma_14 = mean(7..20) = 13.5
	last := rows[19]
	if last.MA7 == nil || !approx(*last.MA7, 17) {
		t.Fatalf("ma_7 at day 20 = %v, want 17", last.MA7)
	}
	if last.MA14 == nil || !approx(*last.MA14, 13.5) {
		t.Fatalf("ma_14 at day 20 = %v, want 13.5", last.MA14)
	}
}

func TestReturns(t *testing.T) {
	rows := Compute(series(100, 110, 121, 133.1, 146.41, 161.051, 177.1561, 194.87171))
	last := rows[len(rows)-1]
	if last.Ret1D == nil || !approx(*last.Ret1D, 0.1) {
		t.Fatalf("ret_1d = %v, want 0.1", last.Ret1D)
	}
	if last.Ret7D == nil || !approx(*last.Ret7D, 194.87171/100-1) {
		t.Fatalf("ret_7d = %v", last.Ret7D)
	}
	if rows[0].Ret1D != nil {
		t.Fatalf("first row ret_1d should be nil")
	}
}

func TestShortInputLeavesNulls(t *testing.T) {
	rows := Compute(series(1, 2, 3))
	for i, row := range rows {
		if row.MA7 != nil || row.MA14 != nil {
			t.Fatalf("row %d: moving averages should be nil on short input", i)
		}
		if row.FeatureComplete() {
			t.Fatalf("row %d: cannot be feature-complete", i)
		}
	}
}

func TestDuplicateDatesLastSeenWins(t *testing.T) {
	pts := series(1, 2, 3)
	pts = append(pts, models.PricePoint{Date: day(2), Price: 99})
	rows := Compute(pts)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[2].Price != 99 {
		t.Fatalf("expected last-seen price 99, got %v", rows[2].Price)
	}
}

func TestDeterministicAndOrderIndependent(t *testing.T) {
	pts := series(5, 6, 7, 8)
	shuffled := []models.PricePoint{pts[2], pts[0], pts[3], pts[1]}

	a := Compute(pts)
	b := Compute(shuffled)
	if len(a) != len(b) {
		t.Fatalf("length mismatch")
	}
	for i := range a {
		if !a[i].Date.Equal(b[i].Date) || a[i].Price != b[i].Price {
			t.Fatalf("row %d differs", i)
		}
	}
}

func TestFeatureCompleteAfterFourteenDays(t *testing.T) {
	prices := make([]float64, 15)
	for i := range prices {
		prices[i] = float64(i + 1)
	}
	rows := Compute(series(prices...))
	if !rows[14].FeatureComplete() {
		t.Fatalf("row 15 should be feature-complete")
	}
	if rows[12].FeatureComplete() {
		t.Fatalf("row 13 should not be feature-complete")
	}
}

func TestComputeLastMatchesFullRecompute(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 50 + float64(i)*0.5
	}
	full := Compute(series(prices...))
	last, ok := ComputeLast(series(prices...))
	if !ok {
		t.Fatalf("expected a row")
	}
	want := full[len(full)-1]
	gotVec, ok1 := last.Vector(models.FeatureNames)
	wantVec, ok2 := want.Vector(models.FeatureNames)
	if !ok1 || !ok2 {
		t.Fatalf("expected complete vectors")
	}
	for i := range gotVec {
		if !approx(gotVec[i], wantVec[i]) {
			t.Fatalf("feature %s differs: %v vs %v", models.FeatureNames[i], gotVec[i], wantVec[i])
		}
	}
}
