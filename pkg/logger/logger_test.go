package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")

	log.Info("dropped")
	log.Warn("kept", "term", "java")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "java", record["term"])
}

func TestNewTextDefault(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "").Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestQueryIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, QueryID(ctx))

	ctx = WithQueryID(ctx, "q-123")
	assert.Equal(t, "q-123", QueryID(ctx))
	assert.NotNil(t, FromContext(ctx))
}
