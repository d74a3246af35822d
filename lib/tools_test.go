package login

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginDirOverride(t *testing.T) {
	t.Setenv("AWSCLI_LOGIN_ROOT", "/tmp/login-test")

	dir, err := loginDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/login-test", configDirName), dir)
}

func TestInitLoginDir(t *testing.T) {
	dir := setupLoginDir(t)

	for _, d := range []string{dir, filepath.Join(dir, jarDirName), filepath.Join(dir, logDirName)} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}
}

func TestStoreFile(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "state")

	t.Run("creates new file", func(t *testing.T) {
		err := storeFile(filename, func(name string) error {
			return os.WriteFile(name, []byte("one"), 0600)
		})
		require.NoError(t, err)

		data, err := os.ReadFile(filename)
		require.NoError(t, err)
		assert.Equal(t, "one", string(data))
	})

	t.Run("replaces existing file", func(t *testing.T) {
		err := storeFile(filename, func(name string) error {
			return os.WriteFile(name, []byte("two"), 0600)
		})
		require.NoError(t, err)

		data, err := os.ReadFile(filename)
		require.NoError(t, err)
		assert.Equal(t, "two", string(data))

		// no temp files left behind
		assert.NoFileExists(t, filename+".NEW")
		assert.NoFileExists(t, filename+".OLD")
	})

	t.Run("failed write leaves the original", func(t *testing.T) {
		err := storeFile(filename, func(name string) error {
			return errors.New("disk full")
		})
		require.Error(t, err)

		data, err := os.ReadFile(filename)
		require.NoError(t, err)
		assert.Equal(t, "two", string(data))
	})
}

func TestSecureTouch(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "touched")

	require.NoError(t, secureTouch(filename))

	info, err := os.Stat(filename)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// touching again keeps the contents
	require.NoError(t, os.WriteFile(filename, []byte("data"), 0600))
	require.NoError(t, secureTouch(filename))

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("https://idp.example.org/ecp"))
	assert.Error(t, validateURL("not a url"))
	// empty input clears the attribute
	assert.NoError(t, validateURL(""))
}

func TestValidateNumber(t *testing.T) {
	assert.NoError(t, validateNumber("42"))
	assert.NoError(t, validateNumber(""))
	assert.Error(t, validateNumber("forty-two"))
}
