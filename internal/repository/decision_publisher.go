package repository

import (
	"context"

	"FxDesk/internal/domain/models"
	domrepo "FxDesk/internal/domain/repository"
	pkgkafka "FxDesk/pkg/kafka"
)

// KafkaDecisionPublisher publishes decision records keyed by subject, so
// records of one pair stay ordered on a partition.
type KafkaDecisionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) *KafkaDecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) PublishDecision(ctx context.Context, rec models.DecisionRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.Subject), rec)
}

// Close is a no-op; the producer is shared and closed by its owner.
func (p *KafkaDecisionPublisher) Close() error { return nil }

var _ domrepo.DecisionPublisher = (*KafkaDecisionPublisher)(nil)
