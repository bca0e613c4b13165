package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWithDefaults(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, log)

	child := log.Named("chunking").With(zap.String("run_id", "test"))
	assert.NotNil(t, child)
	assert.Equal(t, log.Config(), child.Config())
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"bad_level", &Config{Level: "verbose", Format: "json", Output: "console"}},
		{"bad_format", &Config{Level: "info", Format: "xml", Output: "console"}},
		{"bad_output", &Config{Level: "info", Format: "json", Output: "syslog"}},
		{"file_without_filename", &Config{Level: "info", Format: "json", Output: "file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestGlobalLogger(t *testing.T) {
	// L() 在未初始化时返回默认 logger
	assert.NotNil(t, L())

	require.NoError(t, InitGlobal(DefaultConfig()))
	assert.NotNil(t, L())
}
