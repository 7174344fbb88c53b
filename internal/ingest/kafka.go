package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

type KafkaConfig struct {
	Brokers     string
	GroupID     string
	Topic       string
	PollTimeout time.Duration
}

func (c KafkaConfig) validate() error {
	if strings.TrimSpace(c.Brokers) == "" || strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("kafka brokers and topic are required")
	}
	return nil
}

// KafkaSource consumes candidates with auto-commit disabled; offsets move only
// through Commit.
type KafkaSource struct {
	consumer *kafka.Consumer
	log      *logger.Logger
	poll     time.Duration
}

func NewKafkaSource(cfg KafkaConfig, log *logger.Logger) (*KafkaSource, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, fmt.Errorf("kafka group id is required")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.GroupID,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	if err := c.SubscribeTopics([]string{cfg.Topic}, nil); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Topic, err)
	}
	log = log.With("component", "KafkaSource")
	log.Info("Kafka consumer subscribed", "topic", cfg.Topic, "group_id", cfg.GroupID)
	return &KafkaSource{consumer: c, log: log, poll: cfg.PollTimeout}, nil
}

func (s *KafkaSource) Next(ctx context.Context) (*Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := s.consumer.ReadMessage(s.poll)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
				continue
			}
			if errors.As(err, &kerr) && !kerr.IsFatal() {
				s.log.Warn("Kafka read error", "error", err)
				continue
			}
			return nil, err
		}
		return &Record{
			Key:    string(msg.Key),
			Value:  msg.Value,
			Origin: msg.TopicPartition.String(),
			ack:    msg,
		}, nil
	}
}

func (s *KafkaSource) Commit(_ context.Context, rec *Record) error {
	msg, ok := rec.ack.(*kafka.Message)
	if !ok {
		return fmt.Errorf("record %s was not read from kafka", rec.Origin)
	}
	_, err := s.consumer.CommitMessage(msg)
	return err
}

func (s *KafkaSource) Close() error { return s.consumer.Close() }

// KafkaPublisher writes raw candidate payloads to a topic.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

func NewKafkaPublisher(cfg KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &KafkaPublisher{producer: p, topic: cfg.Topic, log: log.With("component", "KafkaPublisher")}, nil
}

// Publish blocks until the broker acknowledges the message.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, value []byte) error {
	delivery := make(chan kafka.Event, 1)
	topic := p.topic
	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, delivery)
	if err != nil {
		return fmt.Errorf("produce: %w", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-delivery:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", ev)
		}
		return m.TopicPartition.Error
	}
}

func (p *KafkaPublisher) Close() {
	if left := p.producer.Flush(5000); left > 0 {
		p.log.Warn("Kafka producer closed with undelivered messages", "count", left)
	}
	p.producer.Close()
}
