// Package events publishes and consumes domain events over watermill.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/pkg/config"
)

// Handler consumes a single event.
type Handler func(ctx context.Context, event Event) error

// Bus publishes events to topics and dispatches them to subscribers.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *zap.Logger

	wg sync.WaitGroup
}

// NewBus builds a bus for the configured driver.
func NewBus(cfg config.EventsConfig, logger *zap.Logger) (*Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	adapter := NewZapAdapter(logger.Named("events"))

	switch cfg.Driver {
	case "", config.EventsDriverChannel:
		return NewChannelBus(logger), nil
	case config.EventsDriverKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("kafka driver requires at least one broker")
		}
		publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, adapter)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:               cfg.KafkaBrokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
			ConsumerGroup:         cfg.ConsumerGroup,
		}, adapter)
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("create kafka subscriber: %w", err)
		}
		return &Bus{publisher: publisher, subscriber: subscriber, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// NewChannelBus builds an in-process bus backed by go channels.
func NewChannelBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	channel := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewZapAdapter(logger.Named("events")))
	return &Bus{publisher: channel, subscriber: channel, logger: logger}
}

// Publish wraps data in an Event envelope and publishes it on topic.
func (b *Bus) Publish(ctx context.Context, topic string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	event := Event{
		ID:        watermill.NewUUID(),
		Type:      topic,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(event.ID, body)
	msg.SetContext(ctx)
	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts consuming topic until ctx is cancelled or the bus closes.
// Handler errors are logged and the message is acknowledged.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			b.dispatch(ctx, topic, msg, handler)
		}
	}()
	return nil
}

func (b *Bus) dispatch(ctx context.Context, topic string, msg *message.Message, handler Handler) {
	defer msg.Ack()

	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		b.logger.Warn("discarding malformed event", zap.String("topic", topic), zap.String("message_id", msg.UUID), zap.Error(err))
		return
	}
	if err := handler(ctx, event); err != nil {
		b.logger.Warn("event handler failed", zap.String("topic", topic), zap.String("event_id", event.ID), zap.Error(err))
	}
}

// Close shuts down the publisher and subscriber and waits for consumers.
func (b *Bus) Close() error {
	err := b.publisher.Close()
	if b.subscriber != nil && any(b.subscriber) != any(b.publisher) {
		err = multierr.Append(err, b.subscriber.Close())
	}
	b.wg.Wait()
	return err
}
