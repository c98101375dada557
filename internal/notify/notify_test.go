package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fjod/go_cart/cart-session/internal/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

type recorder struct {
	notices []Notice
	err     error
}

func (r *recorder) Notify(_ context.Context, n Notice) error {
	r.notices = append(r.notices, n)
	return r.err
}

func TestNewNotice_UsesMessageForKind(t *testing.T) {
	n := NewNotice(AddedOutOfStock, "s1", 7, nil)
	assert.Equal(t, "Quantidade solicitada fora de estoque", n.Message)
	assert.Empty(t, n.Cause)

	n = NewNotice(AddFailed, "s1", 7, errors.New("timeout"))
	assert.Equal(t, "Erro na adição do produto", n.Message)
	assert.Equal(t, "timeout", n.Cause)
}

func TestMessages_CoverAllKinds(t *testing.T) {
	for _, kind := range []Kind{AddedOutOfStock, AddFailed, RemoveFailed, UpdateOutOfStock, UpdateFailed} {
		assert.NotEmpty(t, Messages[kind], kind)
	}
}

func TestKafkaNotifier_PublishesKeyedBySession(t *testing.T) {
	w := &mockWriter{}
	k := &KafkaNotifier{writer: w}

	err := k.Notify(context.Background(), NewNotice(RemoveFailed, "session-9", 3, nil))
	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	assert.Equal(t, "session-9", string(w.messages[0].Key))

	var got Notice
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &got))
	assert.Equal(t, RemoveFailed, got.Kind)
	assert.Equal(t, int64(3), got.ProductID)

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	k := &KafkaNotifier{writer: &mockWriter{err: errors.New("broker down")}}

	err := k.Notify(context.Background(), NewNotice(AddFailed, "s", 1, nil))
	require.ErrorContains(t, err, "broker down")
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("b failed")}
	c := &recorder{}

	err := Multi{a, b, c}.Notify(context.Background(), NewNotice(UpdateFailed, "s", 1, nil))
	require.ErrorContains(t, err, "b failed")
	assert.Len(t, a.notices, 1)
	assert.Len(t, c.notices, 1)
}

func TestLogNotifier_WritesWarning(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logger.NewWithWriter(&buf, "test", "info"))

	require.NoError(t, n.Notify(context.Background(), NewNotice(UpdateOutOfStock, "s", 5, nil)))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "update-out-of-stock", entry["kind"])
	assert.Equal(t, float64(5), entry["product_id"])
}
