package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinel(t *testing.T) {
	wrapped := Wrap(ErrInputContract, "transaction 3 has no date")

	assert.True(t, IsInputContract(wrapped))
	assert.False(t, IsInvalidConfig(wrapped))
	assert.Contains(t, wrapped.Error(), "transaction 3 has no date")
}

func TestNewInputContractError(t *testing.T) {
	err := NewInputContractError("rolling window must be at least 1, got %d", 0)

	require.Error(t, err)
	assert.True(t, IsInputContract(err))
	assert.Contains(t, err.Error(), "rolling window must be at least 1, got 0")
}

func TestNewInvalidConfigError(t *testing.T) {
	err := NewInvalidConfigError("state %q: unknown field", "CA")

	assert.True(t, IsInvalidConfig(err))
	assert.False(t, IsNotFound(err))
}

func TestSentinelsSurviveStdlibWrapping(t *testing.T) {
	err := fmt.Errorf("loading: %w", Wrap(ErrNotFound, "state_config.yaml"))

	assert.True(t, IsNotFound(err))
}

func TestNilIsNeverASentinel(t *testing.T) {
	assert.False(t, IsInputContract(nil))
	assert.False(t, IsInvalidConfig(nil))
	assert.False(t, IsNotFound(nil))
}

func TestWithHint(t *testing.T) {
	err := WithHint(NewInvalidConfigError("bad yaml"), "check indentation")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "check indentation", hints[0])
	assert.True(t, IsInvalidConfig(err))
}
