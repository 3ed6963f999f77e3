package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusenback/idlemon/internal/model"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
	deadline bool
}

type fakeChannel struct {
	sent []published
	err  error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	_, hasDeadline := ctx.Deadline()
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg, deadline: hasDeadline})
	return nil
}

func TestNotify_PublishesJSONEvent(t *testing.T) {
	ch := &fakeChannel{}
	n := newAMQPNotifier(ch, DefaultConfig())
	stamp := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return stamp }

	event := model.Event{
		Kind:        model.EventShutdown,
		Container:   "minecraft-server",
		At:          stamp,
		EmptyChecks: 2,
	}
	require.NoError(t, n.Notify(context.Background(), event))
	require.Len(t, ch.sent, 1)

	got := ch.sent[0]
	assert.Equal(t, "idlemon", got.exchange)
	assert.Equal(t, "server.idle.shutdown", got.key)
	assert.True(t, got.deadline)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, stamp, got.msg.Timestamp)
	assert.Equal(t, "shutdown", got.msg.Type)

	var decoded model.Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, event, decoded)
}

func TestNotify_RoutingKeyWithoutPrefix(t *testing.T) {
	ch := &fakeChannel{}
	n := newAMQPNotifier(ch, Config{Exchange: "events"})

	require.NoError(t, n.Notify(context.Background(), model.Event{Kind: model.EventShutdownAborted}))
	assert.Equal(t, "shutdown_aborted", ch.sent[0].key)
}

func TestNotify_WrapsPublishError(t *testing.T) {
	boom := errors.New("channel closed")
	n := newAMQPNotifier(&fakeChannel{err: boom}, DefaultConfig())

	err := n.Notify(context.Background(), model.Event{Kind: model.EventShutdownFailed})
	assert.ErrorIs(t, err, boom)
}

func TestNewAMQPNotifier_RequiresURL(t *testing.T) {
	_, err := NewAMQPNotifier(DefaultConfig())
	assert.Error(t, err)
}
