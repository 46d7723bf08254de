package api

import (
	"errors"
	"net/http"

	models "StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/registry"
	"StockCast/internal/usecase"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PredictionsHandler exposes the prediction serving core over Echo.
type PredictionsHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.Predictor
	reg       *registry.Registry
	store     domrepo.PriceStore
}

func NewPredictionsHandler(logger *xlogger.Logger, predictor *usecase.Predictor, reg *registry.Registry, store domrepo.PriceStore) *PredictionsHandler {
	return &PredictionsHandler{logger: logger, predictor: predictor, reg: reg, store: store}
}

func (h *PredictionsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api")
	g.POST("/predict", h.Predict)
	g.POST("/predict/batch", h.PredictBatch)
	g.GET("/history/:symbol", h.History)
	g.GET("/models", h.Models)
	g.GET("/models/:symbol", h.ModelInfo)
	g.GET("/registry/stats", h.Stats)
	g.POST("/registry/refresh", h.Refresh)
	g.POST("/registry/cache/clear", h.ClearCache)
}

func (h *PredictionsHandler) Healthz(c echo.Context) error {
	avail := h.reg.Available()
	body := map[string]any{
		"status":          "ok",
		"specific_models": len(avail.Specific),
		"general_symbols": len(avail.General),
	}
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			body["status"] = "degraded"
			body["store"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		body["store"] = "ok"
	}
	return c.JSON(http.StatusOK, body)
}

func (h *PredictionsHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.predictor.Predict(c.Request().Context(), req.Symbol, models.Horizon(req.Horizon), req.RecentPrices)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("predict usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, mapPredictionError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsHandler) PredictBatch(c echo.Context) error {
	req := &models.BatchPredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res := h.predictor.PredictBatch(c.Request().Context(), req.Symbols, models.Horizon(req.Horizon), req.RecentPrices, req.MaxConcurrency)
	return xhttp.SuccessResponse(c, res)
}

// History returns the most recent stored prices for a symbol, oldest first.
func (h *PredictionsHandler) History(c echo.Context) error {
	if h.store == nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("price store not configured"))
	}
	symbol := registry.NormalizeSymbol(c.Param("symbol"))
	if symbol == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol is required"))
	}
	n := xhttp.ParseIntDefault(c.QueryParam("n"), 60)
	if n < 1 || n > 1000 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("n must be between 1 and 1000"))
	}

	prices, err := h.store.LatestPrices(c.Request().Context(), symbol, n)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("history query error", xlogger.String("symbol", symbol), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, xhttp.InternalError("history query failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]any{
		"symbol": symbol,
		"count":  len(prices),
		"prices": prices,
	})
}

func (h *PredictionsHandler) Models(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.reg.Available())
}

func (h *PredictionsHandler) ModelInfo(c echo.Context) error {
	symbol := c.Param("symbol")
	info := h.reg.ModelInfo(symbol)
	if !info.Available {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no model for symbol %s", registry.NormalizeSymbol(symbol)))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *PredictionsHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.reg.Stats())
}

func (h *PredictionsHandler) Refresh(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.reg.Refresh())
}

func (h *PredictionsHandler) ClearCache(c echo.Context) error {
	h.reg.ClearCache()
	return xhttp.NoContentResponse(c)
}

// mapPredictionError translates pipeline errors to HTTP-status-carrying
// application errors.
func mapPredictionError(err error) error {
	var (
		notFound     *registry.ModelNotFoundError
		insufficient *usecase.InsufficientDataError
	)
	switch {
	case errors.As(err, &notFound):
		return xhttp.NotFoundErrorf("no model for symbol %s", notFound.Symbol).
			WithParam("available", notFound.Available).
			WithError(err)
	case errors.As(err, &insufficient):
		return xhttp.BadRequestErrorf("need %d prices for %s, got %d",
			insufficient.Required, insufficient.Symbol, insufficient.Actual).WithError(err)
	case errors.Is(err, usecase.ErrEmptySymbol):
		return xhttp.BadRequestError("symbol is required").WithError(err)
	default:
		return xhttp.InternalError("prediction failed").WithError(err)
	}
}
