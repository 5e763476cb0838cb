package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Sink interface {
	Broadcast(payload []byte)
}

// Consumer forwards every message of a topic to a sink.
type Consumer struct {
	reader MessageReader
	sink   Sink
	log    *slog.Logger
}

func NewConsumer(reader MessageReader, sink Sink, l *slog.Logger) *Consumer {
	return &Consumer{reader: reader, sink: sink, log: l}
}

func NewOrderReader(groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    TopicOrders,
		GroupID:  groupID,
		MaxBytes: 10e6,
	})
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return
			}
			c.log.Warn("consume_error", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		c.sink.Broadcast(m.Value)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
