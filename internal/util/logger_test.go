package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger("development"))
	defer SyncLogger()

	logger := GetLogger()
	require.NotNil(t, logger)

	assert.NotPanics(t, func() {
		logger.Info("logger initialized")
	})
}
