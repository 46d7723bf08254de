package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/registry"
	applogger "StockCast/pkg/logger"
)

const defaultBatchConcurrency = 4

// PredictBatch fans one Predict call out per symbol with at most
// maxConcurrency in flight. Failures are isolated per slot: item i always
// describes symbols[i], either as a result or as an error record, and one
// bad symbol never fails the batch.
func (p *Predictor) PredictBatch(ctx context.Context, symbols []string, horizon models.Horizon, recentPrices []float64, maxConcurrency int) *models.BatchResult {
	start := time.Now()
	if maxConcurrency < 1 {
		maxConcurrency = defaultBatchConcurrency
	}

	items := make([]models.BatchItem, len(symbols))
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				items[i] = errItem(sym, "canceled", ctx.Err())
				return
			}

			res, err := p.Predict(ctx, sym, horizon, recentPrices)
			if err != nil {
				items[i] = errItem(sym, errKind(err), err)
				return
			}
			items[i] = models.BatchItem{Result: res}
		}(i, sym)
	}
	wg.Wait()

	out := &models.BatchResult{
		Items:     items,
		Duration:  time.Since(start).Seconds(),
		Timestamp: time.Now().UTC(),
	}
	for _, it := range items {
		if it.Error != nil {
			out.FailureCount++
		} else {
			out.SuccessCount++
		}
	}
	if p.log != nil {
		p.log.Info("batch prediction finished",
			applogger.Int("symbols", len(symbols)),
			applogger.Int("succeeded", out.SuccessCount),
			applogger.Int("failed", out.FailureCount),
		)
	}
	return out
}

func errItem(symbol, kind string, err error) models.BatchItem {
	return models.BatchItem{Error: &models.ErrorRecord{
		Symbol:  registry.NormalizeSymbol(symbol),
		Kind:    kind,
		Message: err.Error(),
	}}
}

// errKind buckets pipeline errors for metrics and batch error records.
func errKind(err error) string {
	var (
		notFound     *registry.ModelNotFoundError
		missing      *registry.ArtifactMissingError
		corrupt      *registry.ArtifactCorruptError
		insufficient *InsufficientDataError
		failed       *PredictionFailedError
	)
	switch {
	case errors.As(err, &notFound):
		return "model_not_found"
	case errors.As(err, &missing):
		return "artifact_missing"
	case errors.As(err, &corrupt):
		return "artifact_corrupt"
	case errors.As(err, &insufficient):
		return "insufficient_data"
	case errors.Is(err, ErrEmptySymbol):
		return "invalid_symbol"
	case errors.As(err, &failed):
		return "prediction_failed"
	default:
		return "internal"
	}
}
