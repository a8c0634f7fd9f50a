package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexUnavailableError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewIndexUnavailable("redis", "java", cause)

	assert.Equal(t, `redis index unavailable for term "java": connection refused`, err.Error())
	assert.True(t, errors.Is(err, ErrIndexUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrMalformedData))
	assert.False(t, errors.Is(err, ErrConfigurationMissing))
}

func TestNewIndexUnavailableKeepsExisting(t *testing.T) {
	inner := NewIndexUnavailable("postgres", "java", errors.New("boom"))
	wrapped := fmt.Errorf("lookup: %w", inner)

	err := NewIndexUnavailable("resilient", "other", wrapped)

	var iu *IndexUnavailableError
	require.True(t, errors.As(err, &iu))
	assert.Equal(t, "postgres", iu.Backend)
	assert.Equal(t, "java", iu.Term)
}

func TestMalformedData(t *testing.T) {
	err := NewMalformedData("redis", "java", "count %q is not an integer", "abc")

	assert.True(t, errors.Is(err, ErrIndexUnavailable))
	assert.True(t, errors.Is(err, ErrMalformedData))
	assert.Contains(t, err.Error(), `count "abc" is not an integer`)
}

func TestConfigurationMissingError(t *testing.T) {
	err := NewConfigurationMissing("resources/redis_url.txt", "create the file")
	wrapped := fmt.Errorf("opening store: %w", err)

	assert.Equal(t, "store configuration not found: resources/redis_url.txt", err.Error())
	assert.True(t, errors.Is(wrapped, ErrConfigurationMissing))
	assert.False(t, errors.Is(wrapped, ErrIndexUnavailable))

	hint, ok := Hint(wrapped)
	require.True(t, ok)
	assert.Equal(t, "create the file", hint)

	_, ok = Hint(errors.New("other"))
	assert.False(t, ok)
}

func TestInvalidf(t *testing.T) {
	err := Invalidf("unknown operation %q", "XOR")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, `invalid input: unknown operation "XOR"`, err.Error())
}
