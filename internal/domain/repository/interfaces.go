package repository

import (
	"context"

	"StockCast/internal/domain/models"
)

// MarketStream is a live tick feed (WebSocket-backed in production).
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// TickPublisher forwards observed ticks to the message bus.
type TickPublisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

// PredictionPublisher emits served predictions for downstream consumers.
// A publish failure never fails the prediction request.
type PredictionPublisher interface {
	Publish(ctx context.Context, r *models.PredictionResult) error
	Close() error
}

// PriceStore persists ticks and serves recent price history windows.
type PriceStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, t *models.Tick) error
	StoreBatch(ctx context.Context, ticks []*models.Tick) error
	// LatestPrices returns up to n most recent prices for symbol in
	// ascending sequence order (oldest first).
	LatestPrices(ctx context.Context, symbol string, n int) ([]float64, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational counters for the serving and ingestion paths.
type Metrics interface {
	RecordPrediction(kind, symbol string)
	RecordCacheEvent(hit bool)
	RecordError(kind string)
	RecordLastPrediction(symbol string, price float64)
	RecordLastPrice(symbol string, price float64)
	RecordIngest(backend, symbol string)
	RecordLatency(op string, seconds float64)
}
