package api

import (
	"errors"
	"time"

	models "CoinCast/internal/domain/models"
	"CoinCast/internal/usecase"
	xhttp "CoinCast/pkg/http"
	xlogger "CoinCast/pkg/logger"
	"CoinCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// ForecastEchoHandler exposes the ingestion and forecast operations over HTTP.
type ForecastEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.IngestionPipeline
	forecast *usecase.ForecastService
}

func NewForecastEchoHandler(logger *xlogger.Logger, pipeline *usecase.IngestionPipeline, forecast *usecase.ForecastService) *ForecastEchoHandler {
	return &ForecastEchoHandler{logger: logger, pipeline: pipeline, forecast: forecast}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/refresh", h.Refresh)
	g.GET("/predict", h.Predict)
	g.GET("/history", h.History)
	g.GET("/prices", h.Prices)
	g.POST("/reset", h.Reset)
	g.POST("/clear-predictions", h.ClearPredictions)
}

type refreshResponse struct {
	Outcome string `json:"outcome"`
}

type predictResponse struct {
	ObservationDate string  `json:"observation_date"`
	TargetDate      string  `json:"target_date"`
	PriceNow        float64 `json:"price_now"`
	PredictedPrice  float64 `json:"predicted_price"`
	MAETrain        float64 `json:"mae_train"`
	R2Train         float64 `json:"r2_train"`
}

type historyItem struct {
	RunTS          string  `json:"run_ts"`
	TargetDate     string  `json:"target_date"`
	PredictedPrice float64 `json:"predicted_price"`
}

type priceItem struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

func (h *ForecastEchoHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	outcome, err := h.pipeline.Refresh(c.Request().Context(), req.Force)
	if err != nil {
		return h.respondError(c, "refresh", err)
	}
	return xhttp.SuccessResponse(c, &refreshResponse{Outcome: string(outcome)})
}

func (h *ForecastEchoHandler) Predict(c echo.Context) error {
	res, err := h.forecast.Predict(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return h.respondError(c, "predict", err)
	}
	return xhttp.SuccessResponse(c, &predictResponse{
		ObservationDate: util.FormatDate(res.ObservationDate),
		TargetDate:      util.FormatDate(res.TargetDate),
		PriceNow:        res.PriceNow,
		PredictedPrice:  res.PredictedPrice,
		MAETrain:        res.MAETrain,
		R2Train:         res.R2Train,
	})
}

func (h *ForecastEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	recs, err := h.forecast.History(c.Request().Context(), req.Limit, req.WindowDays)
	if err != nil {
		return h.respondError(c, "history", err)
	}
	items := make([]historyItem, 0, len(recs))
	for _, r := range recs {
		items = append(items, historyItem{
			RunTS:          r.RunTS.UTC().Format(time.RFC3339),
			TargetDate:     util.FormatDate(r.TargetDate),
			PredictedPrice: r.PredictedPrice,
		})
	}
	return xhttp.ListResponse(c, items, int64(len(items)))
}

func (h *ForecastEchoHandler) Prices(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pts, err := h.forecast.Prices(c.Request().Context(), req.Days)
	if err != nil {
		return h.respondError(c, "prices", err)
	}
	items := make([]priceItem, 0, len(pts))
	for _, p := range pts {
		items = append(items, priceItem{Date: util.FormatDate(p.Date), Price: p.Price})
	}
	return xhttp.ListResponse(c, items, int64(len(items)))
}

func (h *ForecastEchoHandler) Reset(c echo.Context) error {
	if err := h.pipeline.Reset(c.Request().Context()); err != nil {
		return h.respondError(c, "reset", err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *ForecastEchoHandler) ClearPredictions(c echo.Context) error {
	if err := h.forecast.ClearPredictions(c.Request().Context()); err != nil {
		return h.respondError(c, "clear predictions", err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *ForecastEchoHandler) respondError(c echo.Context, op string, err error) error {
	h.logger.Error(op+" usecase error", xlogger.Error(err))
	switch {
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("price source unavailable").WithError(err))
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("not enough history to train a model").WithError(err))
	case errors.Is(err, models.ErrNoData):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no price history ingested yet").WithError(err))
	default:
		return xhttp.AppErrorResponse(c, xhttp.InternalError("internal error").WithError(err))
	}
}
