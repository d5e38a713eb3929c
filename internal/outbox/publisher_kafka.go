package outbox

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher produces entries to a single topic keyed by aggregate id, so
// events for one property stay ordered within a partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(client *kgo.Client, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e *Entry) error {
	record := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(e.AggregateID),
		Value:     e.Payload,
		Timestamp: e.CreatedAt,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(e.ID.String())},
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "aggregate_type", Value: []byte(e.AggregateType)},
		},
	}
	return p.client.ProduceSync(ctx, record).FirstErr()
}

func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
