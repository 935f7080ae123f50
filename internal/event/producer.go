package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/recircle/account-service/internal/domain"
	"github.com/recircle/account-service/pkg/logger"
)

// Kafka topic constants for account domain events.
const (
	TopicAccountRegistered  = "recircle.account.registered"
	TopicAccountUpdated     = "recircle.account.updated"
	TopicAccountDeactivated = "recircle.account.deactivated"
	TopicAccountRoleChanged = "recircle.account.role_changed"
	TopicAccountResetToken  = "recircle.account.password_reset"
)

// Aggregate type constant.
const AggregateTypeAccount = "account"

// Source identifier for events originating from the account service.
const SourceAccountService = "account-service"

// AccountRegisteredData is the payload for an account.registered event.
type AccountRegisteredData struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// AccountUpdatedData is the payload for an account.updated event.
type AccountUpdatedData struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
}

// AccountDeactivatedData is the payload for an account.deactivated event.
type AccountDeactivatedData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AccountRoleChangedData is the payload for an account.role_changed event.
type AccountRoleChangedData struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	OldRole string `json:"old_role"`
	NewRole string `json:"new_role"`
}

// AccountResetTokenData is the payload for an account.password_reset event.
// The notification service builds the reset link from the raw token.
type AccountResetTokenData struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// messageWriter is the subset of kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes account domain events to Kafka.
type Producer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewProducer creates a Kafka producer for account events.
func NewProducer(brokers []string, log *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		writer: w,
		logger: log,
	}
}

// Close flushes pending messages and releases the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishAccountRegistered publishes an account.registered event.
func (p *Producer) PublishAccountRegistered(ctx context.Context, account *domain.Account) error {
	data := AccountRegisteredData{
		ID:        account.ID,
		Handle:    account.Handle,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      account.Role,
	}

	return p.publish(ctx, TopicAccountRegistered, account.ID, data)
}

// PublishAccountUpdated publishes an account.updated event.
func (p *Producer) PublishAccountUpdated(ctx context.Context, account *domain.Account) error {
	data := AccountUpdatedData{
		ID:        account.ID,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Phone:     account.Phone,
		Role:      account.Role,
	}

	return p.publish(ctx, TopicAccountUpdated, account.ID, data)
}

// PublishAccountDeactivated publishes an account.deactivated event.
func (p *Producer) PublishAccountDeactivated(ctx context.Context, account *domain.Account) error {
	data := AccountDeactivatedData{
		ID:    account.ID,
		Email: account.Email,
	}

	return p.publish(ctx, TopicAccountDeactivated, account.ID, data)
}

// PublishAccountRoleChanged publishes an account.role_changed event.
func (p *Producer) PublishAccountRoleChanged(ctx context.Context, account *domain.Account, oldRole string) error {
	data := AccountRoleChangedData{
		ID:      account.ID,
		Email:   account.Email,
		OldRole: oldRole,
		NewRole: account.Role,
	}

	return p.publish(ctx, TopicAccountRoleChanged, account.ID, data)
}

// PublishAccountResetToken publishes an account.password_reset event carrying
// the raw reset token for the notification pipeline.
func (p *Producer) PublishAccountResetToken(ctx context.Context, account *domain.Account, rawToken string, expiresAt time.Time) error {
	data := AccountResetTokenData{
		ID:         account.ID,
		Email:      account.Email,
		ResetToken: rawToken,
		ExpiresAt:  expiresAt,
	}

	return p.publish(ctx, TopicAccountResetToken, account.ID, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	env, err := NewEnvelope(topic, aggregateID, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		env.WithCorrelationID(cid)
	}

	payload, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(aggregateID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "source", Value: []byte(env.Source)},
		},
	}
	if env.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{
			Key: "correlation_id", Value: []byte(env.CorrelationID),
		})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("aggregate_id", aggregateID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}
