package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
	sharedBus "github.com/davicafu/tiendalab/internal/shared/infra/platform/bus"
)

// KafkaPublisher publica sobres en Kafka. El writer es genérico (sin topic
// fijo); el topic viaja en cada mensaje.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(writer *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, key string, env sharedEvents.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Error publishing to Kafka",
			zap.String("topic", topic),
			zap.String("event_type", env.EventType),
			zap.Error(err),
		)
		return err
	}

	p.log.Debug("Event published",
		zap.String("topic", topic),
		zap.String("event_type", env.EventType),
		zap.String("key", key),
	)
	return nil
}

// Verificación estática
var _ sharedBus.EventPublisher = (*KafkaPublisher)(nil)
