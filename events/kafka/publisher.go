/*
Package kafka implements events.Publisher on a Kafka topic.

Messages are JSON-encoded LedgerEvents keyed by (location, slug) so all
events for one ledger land on the same partition, in order.
*/
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/warp/substance-ledger/events"
)

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, event events.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%s/%s", event.Location, event.Slug)),
		Value: data,
	})
}

func (p *Publisher) Close() error { return p.writer.Close() }
