package repository

import (
	"context"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
)

// KafkaTickPublisher forwards market ticks to a Kafka topic, keyed by symbol
// so one symbol's ticks stay ordered within a partition.
type KafkaTickPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) domrepo.TickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.Tick) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), t)
}

func (p *KafkaTickPublisher) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{Key: []byte(t.Symbol), Value: t}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaPredictionPublisher emits served predictions for downstream
// consumers (alerting, backtesting). The serving path treats publish
// failures as non-fatal.
type KafkaPredictionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPredictionPublisher(producer *pkgkafka.Producer, topic string) domrepo.PredictionPublisher {
	return &KafkaPredictionPublisher{producer: producer, topic: topic}
}

func (p *KafkaPredictionPublisher) Publish(ctx context.Context, r *models.PredictionResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Symbol), r)
}

func (p *KafkaPredictionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
