package models

import "time"

// PredictionRecord is one logged forecast run. TargetDate is the calendar day
// the prediction is for; RunTS is when inference ran. The log keeps every run
// but reads surface only the latest run per target date.
type PredictionRecord struct {
	RunTS          time.Time `json:"run_ts"`
	TargetDate     time.Time `json:"target_date"`
	PredictedPrice float64   `json:"predicted_price"`
}

// ForecastResult is what a predict call returns to the boundary layer.
type ForecastResult struct {
	ObservationDate time.Time `json:"observation_date"`
	TargetDate      time.Time `json:"target_date"`
	PriceNow        float64   `json:"price_now"`
	PredictedPrice  float64   `json:"predicted_price"`
	MAETrain        float64   `json:"mae_train"`
	R2Train         float64   `json:"r2_train"`
}

// RefreshOutcome reports what an ingestion run did.
type RefreshOutcome string

const (
	RefreshChanged RefreshOutcome = "changed"
	RefreshNoOp    RefreshOutcome = "noop"
)

// ModelArtifact is the persisted fitted estimator. It is self-describing: the
// embedded FeatureNames order is the one inference must use, even if the live
// HistoryRow schema has since evolved.
type ModelArtifact struct {
	FeatureNames []string  `json:"feature_names"`
	HorizonDays  int       `json:"horizon_days"`
	Alpha        float64   `json:"alpha"`
	Means        []float64 `json:"means"`
	Stds         []float64 `json:"stds"`
	Weights      []float64 `json:"weights"`
	Intercept    float64   `json:"intercept"`
	TrainedAt    time.Time `json:"trained_at"`
	SampleCount  int       `json:"sample_count"`
}

// Predict runs inference on a feature vector already ordered per FeatureNames.
func (a *ModelArtifact) Predict(x []float64) float64 {
	y := a.Intercept
	for i, v := range x {
		std := a.Stds[i]
		if std == 0 {
			std = 1
		}
		y += a.Weights[i] * ((v - a.Means[i]) / std)
	}
	return y
}
