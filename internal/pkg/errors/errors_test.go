package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndIs(t *testing.T) {
	err := Newf(ErrKBUnknownPreset, "preset %q", "ghost")

	assert.True(t, Is(err, ErrKBUnknownPreset))
	assert.False(t, Is(err, ErrKBInvalidSeparator))
	assert.Contains(t, err.Error(), "ghost")
	assert.Equal(t, ErrKBUnknownPreset, ExtractCode(err))
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("regexp: missing closing ]")
	err := Wrapf(cause, ErrKBInvalidSeparator, "pattern %q", "[bad")

	require.NotNil(t, err)
	assert.True(t, Is(err, ErrKBInvalidSeparator))
	assert.ErrorIs(t, err, cause)

	// Wrapping nil returns nil
	assert.Nil(t, Wrap(nil, ErrInternal))
}

func TestIsConfigurationError(t *testing.T) {
	assert.True(t, IsConfigurationError(ErrKBInvalidChunkConfig))
	assert.True(t, IsConfigurationError(ErrKBInvalidLengthUnit))
	assert.False(t, IsConfigurationError(ErrKBProcessingFailed))
	assert.False(t, IsConfigurationError(ErrInternal))

	err := New(ErrKBInvalidChunkConfig)
	assert.True(t, err.IsConfiguration())
}

func TestExtractCodeFromPlainError(t *testing.T) {
	assert.Equal(t, ErrInternal, ExtractCode(stderrors.New("plain")))
}
