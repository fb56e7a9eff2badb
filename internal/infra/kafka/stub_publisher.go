package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs auth.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":             event.UserID,
		"nickname":            event.Nickname,
		"email":               event.Email,
		"registration_method": event.RegistrationMethod,
		"registered_at":       event.RegisteredAt,
		"metadata":            event.Metadata,
	}
	p.logEvent("auth.user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishUserLoggedIn logs auth.user.login events.
func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"method":       event.Method,
		"login_count":  event.LoginCount,
		"ip_address":   event.IPAddress,
		"logged_in_at": event.LoggedInAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("auth.user.login", event.UserID, event.LoggedInAt, payload)
	return nil
}

// PublishAccountLinked logs auth.account.linked events.
func (p *StubPublisher) PublishAccountLinked(_ context.Context, event domain.AccountLinkedEvent) error {
	payload := map[string]any{
		"user_id":     event.UserID,
		"provider":    event.Provider.String(),
		"provider_id": event.ProviderID,
		"linked_at":   event.LinkedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("auth.account.linked", event.UserID, event.LinkedAt, payload)
	return nil
}

// PublishSessionRevoked logs auth.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"reason":     event.Reason,
		"sessions":   event.Sessions,
		"revoked_at": event.RevokedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("auth.session.revoked", event.UserID, event.RevokedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
