package queue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuslibrary/internal/queue"
)

func Test_InMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(4)
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Publish(ctx, queue.Message{Type: "notify", Body: json.RawMessage(`{"to":"a"}`)}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "notify", Body: json.RawMessage(`{"to":"b"}`)}))

	for _, want := range []string{`{"to":"a"}`, `{"to":"b"}`} {
		select {
		case msg := <-msgs:
			assert.Equal(t, "notify", msg.Type)
			assert.JSONEq(t, want, string(msg.Body))
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func Test_InMemory_FullBufferFailsFast(t *testing.T) {
	q := queue.NewInMemory(1)
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "x"}))
	assert.Error(t, q.Publish(ctx, queue.Message{Type: "y"}))
}

func Test_InMemory_ConsumerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := queue.NewInMemory(1).Consume(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("consumer channel not closed")
	}
}
