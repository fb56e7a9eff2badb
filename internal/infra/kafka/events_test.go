package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer sarama.AsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer:    asyncProducer,
		logger:      zaptest.NewLogger(t),
		topicPrefix: "auth",
		errChan:     make(chan error, 1),
		done:        make(chan struct{}),
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "superoauth",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishUserRegistered(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	email := "gamer@example.com"
	registeredAt := time.Date(2026, 3, 12, 9, 15, 0, 0, time.UTC)
	event := domain.UserRegisteredEvent{
		EventID:            "event-123",
		UserID:             "user-789",
		Nickname:           "gamer",
		Email:              &email,
		RegistrationMethod: "oauth",
		RegisteredAt:       registeredAt,
		Metadata:           map[string]any{"provider": "discord"},
	}

	if err := publisher.PublishUserRegistered(context.Background(), event); err != nil {
		t.Fatalf("PublishUserRegistered returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "auth.user.registered" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "auth.user.registered" {
			t.Fatalf("unexpected event_type: %v", got)
		}
		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}
		if got := envelope["user_id"]; got != event.UserID {
			t.Fatalf("unexpected user_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != registeredAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}
		if got := payload["nickname"]; got != event.Nickname {
			t.Fatalf("unexpected nickname: %v", got)
		}
		if got := payload["email"]; got != email {
			t.Fatalf("unexpected email: %v", got)
		}
		if got := payload["registration_method"]; got != "oauth" {
			t.Fatalf("unexpected registration_method: %v", got)
		}

		metadata, ok := payload["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("payload metadata not a map: %T", payload["metadata"])
		}
		if metadata["provider"] != "discord" {
			t.Fatalf("metadata did not round-trip: %v", metadata)
		}

		envMetadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
		}
		if envMetadata["service"] != "superoauth" {
			t.Fatalf("unexpected metadata service: %v", envMetadata["service"])
		}
		if envMetadata["environment"] != "test" {
			t.Fatalf("unexpected metadata environment: %v", envMetadata["environment"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishSessionRevoked(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	revokedAt := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	event := domain.SessionRevokedEvent{
		EventID:   "evt-001",
		UserID:    "user-789",
		Reason:    "logout_all",
		Sessions:  3,
		RevokedAt: revokedAt,
	}

	if err := publisher.PublishSessionRevoked(context.Background(), event); err != nil {
		t.Fatalf("PublishSessionRevoked returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "auth.session.revoked" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}
		if got := payload["reason"]; got != "logout_all" {
			t.Fatalf("unexpected reason: %v", got)
		}

		sessions, ok := payload["sessions"].(float64)
		if !ok {
			t.Fatalf("sessions not numeric: %T", payload["sessions"])
		}
		if int(sessions) != event.Sessions {
			t.Fatalf("unexpected sessions: %v", sessions)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishGeneratesEventID(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	event := domain.AccountLinkedEvent{
		UserID:     "user-1",
		Provider:   domain.ProviderTwitch,
		ProviderID: "tw-42",
		LinkedAt:   time.Now().UTC(),
	}

	if err := publisher.PublishAccountLinked(context.Background(), event); err != nil {
		t.Fatalf("PublishAccountLinked returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		id, ok := envelope["event_id"].(string)
		if !ok || id == "" {
			t.Fatalf("expected a generated event_id, got %v", envelope["event_id"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestTopicNameDeduplicatesPrefix(t *testing.T) {
	producer := &Producer{topicPrefix: "auth"}

	if got := producer.TopicName("auth.user.login"); got != "auth.user.login" {
		t.Fatalf("unexpected topic: %s", got)
	}
	if got := producer.TopicName("user.login"); got != "auth.user.login" {
		t.Fatalf("unexpected topic: %s", got)
	}
}
