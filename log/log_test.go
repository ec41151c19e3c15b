package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestInitLogger(t *testing.T) {
	defer func() { Logger = zap.NewNop() }()

	assert.Error(t, InitLogger("loud", false))

	assert.NoError(t, InitLogger("warn", false))
	assert.False(t, Logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, Logger.Core().Enabled(zap.WarnLevel))

	assert.NoError(t, InitLogger("debug", true))
	assert.True(t, Logger.Core().Enabled(zap.DebugLevel))
}
