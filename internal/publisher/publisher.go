package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/report"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"
)

// Publisher forwards finished portfolio runs to downstream consumers.
type Publisher interface {
	analysis.Sink
	Close() error
}

// KafkaPublisher writes each run as JSON, keyed by run ID, to one topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a synchronous producer to the brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// HandleRun publishes the run's JSON view.
func (p *KafkaPublisher) HandleRun(_ context.Context, res *analysis.PortfolioResult) error {
	payload, err := json.Marshal(report.NewPortfolioView(res))
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", res.RunID, err)
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(res.RunID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("publish run %s: %w", res.RunID, err)
	}
	log.Debug().Str("run_id", res.RunID).Str("topic", p.topic).
		Int32("partition", partition).Int64("offset", offset).Msg("run published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher is used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) HandleRun(context.Context, *analysis.PortfolioResult) error { return nil }
func (NoopPublisher) Close() error                                              { return nil }

// New returns a Kafka publisher, or a NoopPublisher when no brokers are given.
func New(brokers []string, topic string) (Publisher, error) {
	if len(brokers) == 0 {
		return NoopPublisher{}, nil
	}
	return NewKafkaPublisher(brokers, topic)
}
