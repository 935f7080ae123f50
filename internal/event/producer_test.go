package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recircle/account-service/internal/domain"
	"github.com/recircle/account-service/pkg/logger"
)

// captureWriter records messages instead of sending them to a broker.
type captureWriter struct {
	messages []kafka.Message
	err      error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func newTestProducer() (*Producer, *captureWriter) {
	w := &captureWriter{}
	return &Producer{
		writer: w,
		logger: logger.New("account-test", "error"),
	}, w
}

func testAccount() *domain.Account {
	return &domain.Account{
		ID:        "acc-1",
		Handle:    "ann",
		Email:     "ann@ex.com",
		FirstName: "Ann",
		LastName:  "Archer",
		Role:      domain.RoleUser,
	}
}

func TestPublishAccountRegistered(t *testing.T) {
	p, w := newTestProducer()

	err := p.PublishAccountRegistered(context.Background(), testAccount())

	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, TopicAccountRegistered, msg.Topic)
	assert.Equal(t, []byte("acc-1"), msg.Key)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, TopicAccountRegistered, env.EventType)
	assert.Equal(t, AggregateTypeAccount, env.AggregateType)
	assert.Equal(t, SourceAccountService, env.Source)
	assert.NotEmpty(t, env.EventID)

	var data AccountRegisteredData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ann@ex.com", data.Email)
	assert.Equal(t, "ann", data.Handle)
}

func TestPublishAccountRoleChanged(t *testing.T) {
	p, w := newTestProducer()
	acc := testAccount()
	acc.Role = domain.RoleAdmin

	err := p.PublishAccountRoleChanged(context.Background(), acc, domain.RoleUser)

	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &env))

	var data AccountRoleChangedData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, domain.RoleUser, data.OldRole)
	assert.Equal(t, domain.RoleAdmin, data.NewRole)
}

func TestPublish_PropagatesCorrelationID(t *testing.T) {
	p, w := newTestProducer()
	ctx := logger.WithCorrelationID(context.Background(), "corr-42")

	err := p.PublishAccountDeactivated(ctx, testAccount())

	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &env))
	assert.Equal(t, "corr-42", env.CorrelationID)

	var found bool
	for _, h := range w.messages[0].Headers {
		if h.Key == "correlation_id" {
			found = true
			assert.Equal(t, []byte("corr-42"), h.Value)
		}
	}
	assert.True(t, found, "correlation_id header must be present")
}

func TestPublish_WriterError(t *testing.T) {
	p, w := newTestProducer()
	w.err = errors.New("broker unreachable")

	err := p.PublishAccountUpdated(context.Background(), testAccount())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
}
