package utils

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogger(t *testing.T) {
	defer func() {
		require.NoError(t, ConfigureLogger("info", "json"))
	}()

	require.NoError(t, ConfigureLogger("debug", "text"))
	require.True(t, DebugEnabled())
	_, isText := log.StandardLogger().Formatter.(*log.TextFormatter)
	require.True(t, isText)

	require.NoError(t, ConfigureLogger("warn", ""))
	require.False(t, DebugEnabled())
	_, isJSON := log.StandardLogger().Formatter.(*log.JSONFormatter)
	require.True(t, isJSON)

	require.Error(t, ConfigureLogger("loud", "json"))
	require.Error(t, ConfigureLogger("info", "xml"))
}
