package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	messages, err := Encode([]Event{
		{Key: "query", Value: map[string]any{"op": "AND", "results": 2}},
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "query", string(messages[0].Key))
	assert.JSONEq(t, `{"op":"AND","results":2}`, string(messages[0].Value))
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := Encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestPublishBatchEmptyIsNoop(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "search.query-events")
	defer p.Close()
	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}

func TestPingUnreachable(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "search.query-events")
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, p.Ping(ctx))

	assert.Error(t, NewProducer(nil, "t").Ping(ctx))
}
