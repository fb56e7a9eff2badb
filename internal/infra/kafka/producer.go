package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/infra/config"
)

// Producer owns the shared Sarama async producer behind EventPublisher.
// Publishes are fire-and-forget: delivery failures come back on the error
// loop, get logged, and are mirrored to Errors() for monitoring.
type Producer struct {
	producer    sarama.AsyncProducer
	logger      *zap.Logger
	topicPrefix string
	errChan     chan error
	done        chan struct{}
}

// NewProducer dials the brokers and starts the delivery error loop.
func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_5_0_0
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Producer.Flush.Frequency = 100 * time.Millisecond
	sc.Producer.Flush.Messages = 100
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = false
	sc.Producer.Return.Errors = true
	sc.Metadata.Retry.Max = 3
	sc.Metadata.Retry.Backoff = 250 * time.Millisecond

	async, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	p := &Producer{
		producer:    async,
		logger:      logger,
		topicPrefix: cfg.TopicPrefix,
		errChan:     make(chan error, 256),
		done:        make(chan struct{}),
	}
	go p.watchErrors()

	logger.Info("kafka producer ready",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
	)
	return p, nil
}

func (p *Producer) watchErrors() {
	for {
		select {
		case perr := <-p.producer.Errors():
			if perr == nil {
				continue
			}
			p.logger.Error("kafka delivery failed",
				zap.Error(perr.Err),
				zap.String("topic", perr.Msg.Topic),
				zap.Int32("partition", perr.Msg.Partition),
			)
			select {
			case p.errChan <- perr.Err:
			default:
				p.logger.Warn("kafka error channel full, dropping error")
			}
		case <-p.done:
			return
		}
	}
}

// Producer exposes the underlying Sarama producer for message submission.
func (p *Producer) Producer() sarama.AsyncProducer {
	return p.producer
}

// Errors returns the channel carrying delivery failures.
func (p *Producer) Errors() <-chan error {
	return p.errChan
}

// Close stops the error loop and flushes pending messages.
func (p *Producer) Close() error {
	p.logger.Info("closing kafka producer")
	close(p.done)

	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}

	close(p.errChan)
	return nil
}

// TopicName prefixes the event type with the configured topic prefix. Event
// types that already carry the prefix pass through unchanged.
func (p *Producer) TopicName(eventType string) string {
	if p.topicPrefix == "" {
		return eventType
	}

	prefix := p.topicPrefix + "."
	if strings.HasPrefix(eventType, prefix) {
		return eventType
	}
	return prefix + eventType
}
