package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidityWindow(t *testing.T) {
	window, err := NewValidityWindow(1700000000, 300)
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), window.ValidAfter)
	assert.Equal(t, uint64(1700000300), window.ValidUntil)
	assert.Equal(t, uint64(300), window.ValidUntil-window.ValidAfter)
}

func TestNewValidityWindowDefaultDuration(t *testing.T) {
	window, err := NewValidityWindow(1700000000, DefaultValiditySeconds)
	require.NoError(t, err)
	assert.Equal(t, uint64(DefaultValiditySeconds), window.ValidUntil-window.ValidAfter)
}

func TestNewValidityWindowUint48Overflow(t *testing.T) {
	// Largest value representable in 48 bits
	maxTimestamp := uint64(1)<<48 - 1

	_, err := NewValidityWindow(maxTimestamp, 1)
	assert.Error(t, err, "validUntil past the uint48 range must be rejected")

	_, err = NewValidityWindow(maxTimestamp+1, 300)
	assert.Error(t, err, "validAfter past the uint48 range must be rejected")

	// Right at the boundary is fine
	window, err := NewValidityWindow(maxTimestamp-300, 300)
	require.NoError(t, err)
	assert.Equal(t, maxTimestamp, window.ValidUntil)
}

func TestNewValidityWindowOrdering(t *testing.T) {
	window, err := NewValidityWindow(100, 1)
	require.NoError(t, err)
	assert.Greater(t, window.ValidUntil, window.ValidAfter)
}

func TestWhitelistConfigNormalization(t *testing.T) {
	config := NewWhitelistConfig(false, []string{
		"0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa",
		"  0xBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbb  ",
		"",
	})

	assert.Equal(t, 2, config.Size())
	assert.True(t, config.Contains("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.True(t, config.Contains("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"))
	assert.True(t, config.Contains("0xBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbb"))
	assert.False(t, config.Contains("0xcccccccccccccccccccccccccccccccccccccccc"))
}
