package login

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// setupLoginDir points the state directory at a throwaway location and
// creates the tree.
func setupLoginDir(t *testing.T) string {
	t.Helper()

	t.Setenv("AWSCLI_LOGIN_ROOT", t.TempDir())

	dir, err := initLoginDir()
	require.NoError(t, err)
	return dir
}

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0600))
}

// loginFlags mirrors the flag set of the login command.
func loginFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
	flags.String(FlagEcpEndpointURL, "", "")
	flags.String(FlagUsername, "", "")
	flags.String(FlagPassword, "", "")
	flags.String(FlagFactor, "", "")
	flags.String(FlagPasscode, "", "")
	flags.String(FlagRoleArn, "", "")
	flags.Int64(FlagDuration, 0, "")
	flags.String(FlagHTTPHeaderFactor, "", "")
	flags.String(FlagHTTPHeaderPasscode, "", "")
	flags.Bool(FlagVerifySSL, true, "")
	flags.Bool(FlagEnableKeyring, false, "")
	flags.Int64(FlagRefresh, 0, "")
	flags.Bool(FlagAskPassword, false, "")
	flags.Bool(FlagForceRefresh, false, "")
	flags.Bool(FlagNoRefresh, false, "")
	return flags
}

func fixedClock(t *testing.T, at time.Time) {
	t.Helper()

	oldNow := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = oldNow })
}
