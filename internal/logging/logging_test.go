package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid json", cfg: Config{Level: "debug", Format: "json"}},
		{name: "valid console", cfg: Config{Level: "warn", Format: "console"}},
		{name: "bad level", cfg: Config{Level: "loud", Format: "json"}, wantErr: true},
		{name: "bad format", cfg: Config{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "debug", Format: "console", Fields: map[string]string{"service": "recalld"}})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Debug("hello")
}

func TestOr(t *testing.T) {
	assert.NotNil(t, Or(nil))

	logger := NewTestLogger()
	assert.Same(t, logger.Logger, Or(logger.Logger))
}

func TestTestLogger(t *testing.T) {
	logger := NewTestLogger()
	logger.Info("capture complete")
	logger.AssertLogged(t, zapcore.InfoLevel, "capture complete")
	assert.Len(t, logger.All(), 1)
}
