package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansInheritTrace(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "report", "q-1")
	childCtx, lookup := StartSpan(ctx, "lookup", "ignored")
	_, nested := StartSpan(childCtx, "redis", "")

	assert.Equal(t, "q-1", lookup.TraceID)
	assert.Equal(t, "q-1", nested.TraceID)
	require.Len(t, root.Children(), 1)
	assert.Same(t, lookup, root.Children()[0])
	assert.Same(t, nested, lookup.Children()[0])
	assert.Same(t, root, FromContext(ctx))
}

func TestFromContextWithoutSpan(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}

func TestLogWritesTreeDepthFirst(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "query", "q-2")
	_, a := StartSpan(ctx, "lookup", "")
	a.SetAttr("term", "java")
	a.End()
	root.End()
	root.Log(ctx, logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=query")
	assert.Contains(t, lines[0], "depth=0")
	assert.Contains(t, lines[1], "span=lookup")
	assert.Contains(t, lines[1], "term=java")
	assert.Contains(t, lines[1], "trace_id=q-2")
}
