package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup("loud", "")
	assert.Error(t, err)
}

func TestSetupWritesRotatedFile(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stdout)
		log.SetLevel(log.InfoLevel)
	})

	path := filepath.Join(t.TempDir(), "bishop.log")
	closer, err := Setup("debug", path)
	require.NoError(t, err)

	Component("test").Debug("hello from the log test")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the log test")
	assert.Contains(t, string(data), "component=test")
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}
