package usecase

import (
	"context"
	"encoding/json"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	domsvc "StockCast/internal/domain/service"
	"StockCast/internal/registry"
	"StockCast/internal/service/cache"
	applogger "StockCast/pkg/logger"
)

// Predictor runs the single-symbol prediction pipeline: resolve an artifact,
// assemble the trailing price window, scale, infer, unscale, derive change
// figures. Results computed from store-sourced prices are memoized in a
// short-TTL result cache; caller-supplied windows bypass it.
type Predictor struct {
	reg       *registry.Registry
	prices    domsvc.PriceProvider
	results   cache.BytesCache
	resultTTL time.Duration
	publisher domrepo.PredictionPublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
}

func NewPredictor(
	reg *registry.Registry,
	prices domsvc.PriceProvider,
	results cache.BytesCache,
	resultTTL time.Duration,
	publisher domrepo.PredictionPublisher,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *Predictor {
	return &Predictor{
		reg:       reg,
		prices:    prices,
		results:   results,
		resultTTL: resultTTL,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
	}
}

// Predict forecasts one symbol. recentPrices, when non-nil, replaces the
// store-sourced window and must hold at least the model's input size;
// extra leading prices are ignored and only the trailing window is used.
func (p *Predictor) Predict(ctx context.Context, symbol string, horizon models.Horizon, recentPrices []float64) (*models.PredictionResult, error) {
	start := time.Now()

	symbol = registry.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	horizon = models.NormalizeHorizon(string(horizon))

	fromStore := recentPrices == nil
	key := resultKey(symbol, horizon)
	if fromStore && p.results != nil {
		if b, ok, err := p.results.GetBytes(key); err == nil && ok {
			var cached models.PredictionResult
			if err := json.Unmarshal(b, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	art, modelCached, err := p.reg.LoadModel(symbol)
	if err != nil {
		p.recordError(errKind(err))
		return nil, err
	}

	window := recentPrices
	if fromStore {
		window, err = p.prices.RecentPrices(ctx, symbol, art.Window())
		if err != nil {
			p.recordError("price_store")
			return nil, &PredictionFailedError{Symbol: symbol, Stage: "prices", Err: err}
		}
	}
	if len(window) < art.Window() {
		p.recordError("insufficient_data")
		return nil, &InsufficientDataError{Symbol: symbol, Required: art.Window(), Actual: len(window)}
	}
	window = window[len(window)-art.Window():]
	lastPrice := window[len(window)-1]

	scaled, err := art.Scaler.Transform(window)
	if err != nil {
		p.recordError("scale")
		return nil, &PredictionFailedError{Symbol: symbol, Stage: "scale", Err: err}
	}
	out, err := art.Infer(scaled)
	if err != nil {
		p.recordError("infer")
		return nil, &PredictionFailedError{Symbol: symbol, Stage: "infer", Err: err}
	}
	pred, err := art.Scaler.InverseOne(out)
	if err != nil {
		p.recordError("inverse")
		return nil, &PredictionFailedError{Symbol: symbol, Stage: "inverse", Err: err}
	}

	clamped := false
	if pred < 0 {
		if p.log != nil {
			p.log.Warn("negative forecast clamped to zero",
				applogger.String("symbol", symbol),
				applogger.Float64("raw", pred),
			)
		}
		pred = 0
		clamped = true
	}

	change := pred - lastPrice
	changePct := 0.0
	if lastPrice != 0 {
		changePct = change / lastPrice * 100
	}

	res := &models.PredictionResult{
		Symbol:     symbol,
		Horizon:    horizon,
		Prediction: pred,
		LastPrice:  lastPrice,
		Change:     change,
		ChangePct:  changePct,
		ModelKind:  art.Kind,
		Cached:     modelCached,
		Clamped:    clamped,
		TestMAPE:   art.Meta.TestMAPE,
		Duration:   time.Since(start).Seconds(),
		Timestamp:  time.Now().UTC(),
	}

	if p.metrics != nil {
		p.metrics.RecordPrediction(string(art.Kind), symbol)
		p.metrics.RecordLastPrediction(symbol, pred)
		p.metrics.RecordLatency("predict", res.Duration)
	}
	if fromStore && p.results != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := p.results.SetBytes(key, b, p.resultTTL); err != nil && p.log != nil {
				p.log.Warn("result cache write failed", applogger.String("symbol", symbol), applogger.Error(err))
			}
		}
	}
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, res); err != nil && p.log != nil {
			p.log.Warn("prediction publish failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	return res, nil
}

func resultKey(symbol string, horizon models.Horizon) string {
	return "predict:" + symbol + ":" + string(horizon)
}

func (p *Predictor) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}
