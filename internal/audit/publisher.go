package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher fans recorded entries out to a Kafka topic for downstream
// compliance consumers. It is a best-effort sink behind a buffered inbox:
// Publish never blocks the access path, and a full inbox drops the copy (the
// store already holds the entry of record).
type KafkaPublisher struct {
	client *kgo.Client
	inbox  chan Entry
	logger *slog.Logger
}

// NewKafkaPublisher connects a producer to the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{
		client: client,
		inbox:  make(chan Entry, 256),
		logger: logger,
	}, nil
}

// Publish enqueues an entry for delivery. Never blocks.
func (p *KafkaPublisher) Publish(entry Entry) {
	select {
	case p.inbox <- entry:
	default:
		p.logger.Warn("audit publisher inbox full, dropping copy", "entry_id", entry.ID)
	}
}

// Run drains the inbox until the context is cancelled, then flushes what the
// producer still holds.
func (p *KafkaPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx := context.WithoutCancel(ctx)
			if err := p.client.Flush(flushCtx); err != nil {
				p.logger.Error("audit publisher flush failed", "error", err)
			}
			p.client.Close()
			return ctx.Err()
		case entry := <-p.inbox:
			p.produce(ctx, entry)
		}
	}
}

func (p *KafkaPublisher) produce(ctx context.Context, entry Entry) {
	value, err := json.Marshal(entry)
	if err != nil {
		p.logger.Error("audit entry marshal failed", "error", err, "entry_id", entry.ID)
		return
	}
	record := &kgo.Record{Key: []byte(entry.PatientID), Value: value}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("audit entry produce failed", "error", err, "entry_id", entry.ID)
		}
	})
}
