// Package publisher ships audit events to Kafka. Delivery is fire-and-forget:
// the query pipeline never blocks on the broker, and a down broker only costs
// the external copy of events that are already persisted in query_logs.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"burogate/internal/querylog"
)

type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

// Emit produces one event keyed by consultant id so a consumer sees each
// consultant's attempts in order.
func (p *Kafka) Emit(ctx context.Context, event querylog.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(strconv.FormatInt(event.ConsultantID, 10)),
		Value: value,
	}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit event delivery failed",
				"topic", p.topic,
				"event_id", event.EventID,
				"error", err.Error())
		}
	})
	return nil
}

// Close flushes buffered records and releases the client.
func (p *Kafka) Close(ctx context.Context) error {
	defer p.client.Close()
	return p.client.Flush(ctx)
}
