package models

import (
	"time"
)

// PricePoint is one observed quote: the closing price attributed to a calendar
// day. The most recent day may be re-fetched intraday and overwritten; fully
// elapsed days are immutable.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// FeatureNames is the canonical column order of the derived feature vector.
// A persisted model artifact carries its own copy; inference always follows
// the artifact's copy, never this one.
var FeatureNames = []string{
	"lag_1", "lag_2", "lag_3", "lag_4", "lag_5", "lag_6", "lag_7",
	"ma_7", "ma_14",
	"ret_1d", "ret_7d",
	"dow",
}

// HistoryRow is one calendar day of price plus derived features. Date is the
// unique key. Nil feature pointers mean "not derivable yet" (too little
// preceding history), never zero.
type HistoryRow struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`

	Lags [7]*float64 `json:"lags"` // Lags[k-1] = price k days back

	MA7  *float64 `json:"ma_7"`
	MA14 *float64 `json:"ma_14"`

	Ret1D *float64 `json:"ret_1d"`
	Ret7D *float64 `json:"ret_7d"`

	DOW int `json:"dow"` // Monday=0 .. Sunday=6
}

// FeatureComplete reports whether every feature field is populated. Only
// complete rows participate in training and inference.
func (r *HistoryRow) FeatureComplete() bool {
	for _, l := range r.Lags {
		if l == nil {
			return false
		}
	}
	return r.MA7 != nil && r.MA14 != nil && r.Ret1D != nil && r.Ret7D != nil
}

// Feature returns the named feature value. ok is false when the field is
// nil or the name is unknown.
func (r *HistoryRow) Feature(name string) (float64, bool) {
	deref := func(p *float64) (float64, bool) {
		if p == nil {
			return 0, false
		}
		return *p, true
	}
	switch name {
	case "lag_1":
		return deref(r.Lags[0])
	case "lag_2":
		return deref(r.Lags[1])
	case "lag_3":
		return deref(r.Lags[2])
	case "lag_4":
		return deref(r.Lags[3])
	case "lag_5":
		return deref(r.Lags[4])
	case "lag_6":
		return deref(r.Lags[5])
	case "lag_7":
		return deref(r.Lags[6])
	case "ma_7":
		return deref(r.MA7)
	case "ma_14":
		return deref(r.MA14)
	case "ret_1d":
		return deref(r.Ret1D)
	case "ret_7d":
		return deref(r.Ret7D)
	case "dow":
		return float64(r.DOW), true
	}
	return 0, false
}

// Vector builds the feature vector in the given column order. ok is false
// when any requested feature is missing from this row.
func (r *HistoryRow) Vector(names []string) ([]float64, bool) {
	out := make([]float64, len(names))
	for i, n := range names {
		v, ok := r.Feature(n)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
