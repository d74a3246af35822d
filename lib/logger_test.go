package login

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	assert.Equal(t, log.WarnLevel, (&LogConfig{}).level())
	assert.Equal(t, log.InfoLevel, (&LogConfig{Verbose: 1}).level())
	assert.Equal(t, log.DebugLevel, (&LogConfig{Verbose: 2}).level())
	assert.Equal(t, log.DebugLevel, (&LogConfig{Verbose: 5}).level())
}

func TestConfigureFile(t *testing.T) {
	dir := setupLoginDir(t)
	t.Cleanup(func() { (&LogConfig{}).ConfigureConsole() })

	logfile, err := configureFile("default")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, logDirName, "default.log"), logfile)

	log.Info("refresh process started")

	data, err := os.ReadFile(logfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "refresh process started")

	info, err := os.Stat(logfile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
