package login

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedCookieJar plants an IdP session cookie so Refresh gets past the jar
// check and actually posts to the endpoint.
func seedCookieJar(t *testing.T, profile *Profile, endpoint string) {
	t.Helper()

	u, err := url.Parse(endpoint)
	require.NoError(t, err)

	data, err := json.Marshal([]jarEntry{
		{Name: "shib_session", Value: "s3cr3t", Domain: u.Hostname(), Path: "/"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(profile.CookiePath(), data, 0600))
}

func TestNapInterval(t *testing.T) {
	t.Run("configured interval wins", func(t *testing.T) {
		assert.Equal(t, 30*time.Minute, napInterval(time.Now().Add(time.Hour), 1800))
	})

	t.Run("90 percent of remaining lifetime", func(t *testing.T) {
		interval := napInterval(time.Now().Add(time.Hour), 0)
		assert.InDelta(t, (54 * time.Minute).Seconds(), interval.Seconds(), 5)
	})

	t.Run("expired credential wakes immediately", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), napInterval(time.Now().Add(-time.Minute), 0))
	})
}

func TestPidFileOwnership(t *testing.T) {
	pidfile := filepath.Join(setupLoginDir(t), "default.pid")

	assert.False(t, ownsPidFile(pidfile))

	require.NoError(t, writePidFile(pidfile))
	assert.True(t, ownsPidFile(pidfile))

	// another process took over the pid file
	require.NoError(t, os.WriteFile(pidfile, []byte("1"), 0600))
	assert.False(t, ownsPidFile(pidfile))

	releasePidFile(pidfile)
	assert.FileExists(t, pidfile)

	require.NoError(t, writePidFile(pidfile))
	releasePidFile(pidfile)
	assert.NoFileExists(t, pidfile)
}

func TestDaemonPid(t *testing.T) {
	dir := setupLoginDir(t)

	t.Run("no pid file", func(t *testing.T) {
		_, alive := daemonPid(filepath.Join(dir, "missing.pid"))
		assert.False(t, alive)
	})

	t.Run("garbage pid file", func(t *testing.T) {
		pidfile := filepath.Join(dir, "garbage.pid")
		require.NoError(t, os.WriteFile(pidfile, []byte("not a pid"), 0600))

		_, alive := daemonPid(pidfile)
		assert.False(t, alive)
	})

	t.Run("own pid is alive", func(t *testing.T) {
		pidfile := filepath.Join(dir, "self.pid")
		require.NoError(t, os.WriteFile(pidfile, []byte(strconv.Itoa(os.Getpid())), 0600))

		pid, alive := daemonPid(pidfile)
		assert.True(t, alive)
		assert.Equal(t, os.Getpid(), pid)
	})

	t.Run("dead pid", func(t *testing.T) {
		pidfile := filepath.Join(dir, "dead.pid")
		// the pid space tops out well below this on every platform we run on
		require.NoError(t, os.WriteFile(pidfile, []byte("199999999"), 0600))

		_, alive := daemonPid(pidfile)
		assert.False(t, alive)
	})
}

func TestSignalDaemonStale(t *testing.T) {
	dir := setupLoginDir(t)
	pidfile := filepath.Join(dir, "stale.pid")
	require.NoError(t, os.WriteFile(pidfile, []byte("199999999"), 0600))

	signaled, err := signalDaemon(pidfile, syscall.SIGTERM)
	require.NoError(t, err)
	assert.False(t, signaled)

	// a dead worker's pid file gets cleaned up on the way
	assert.NoFileExists(t, pidfile)
}

func TestWorkerHandoff(t *testing.T) {
	dir := setupLoginDir(t)

	handoff := &workerHandoff{
		ProfileName:    "default",
		Username:       "alice",
		EcpEndpointURL: "https://idp.example.org/ecp",
		VerifySSL:      true,
		Refresh:        1800,
		Role: Role{
			PrincipalArn: "arn:aws:iam::123456789012:saml-provider/the-idp",
			RoleArn:      "arn:aws:iam::123456789012:role/Admin",
		},
		Expiration: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(handoff)
	require.NoError(t, err)

	path := filepath.Join(dir, "handoff")
	require.NoError(t, os.WriteFile(path, data, 0600))

	read, err := readWorkerHandoff(path)
	require.NoError(t, err)
	assert.Equal(t, handoff.ProfileName, read.ProfileName)
	assert.Equal(t, handoff.Username, read.Username)
	assert.Equal(t, handoff.EcpEndpointURL, read.EcpEndpointURL)
	assert.Equal(t, handoff.Refresh, read.Refresh)
	assert.Equal(t, handoff.Role, read.Role)
	assert.True(t, handoff.Expiration.Equal(read.Expiration))

	// the payload must not survive the read
	assert.NoFileExists(t, path)
}

func TestRefreshLoopRetriesThenFails(t *testing.T) {
	dir := setupLoginDir(t)

	var posts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	profile := loginTestProfile(t, dir, server.URL)
	seedCookieJar(t, profile, server.URL)
	require.NoError(t, writePidFile(profile.PidFile()))
	defer releasePidFile(profile.PidFile())

	role := &Role{
		PrincipalArn: "arn:aws:iam::123456789012:saml-provider/the-idp",
		RoleArn:      "arn:aws:iam::123456789012:role/Admin",
	}

	// an expired credential makes every nap return immediately
	err := runRefreshLoop(profile, role, time.Now().Add(-time.Minute), make(chan os.Signal))
	require.Error(t, err)
	assert.Equal(t, ErrorUnknown, ExitCode(err))

	// one refresh plus three retries before giving up
	assert.Equal(t, int32(4), atomic.LoadInt32(&posts))
}

func TestRefreshLoopExitsWhenPidFileTakenOver(t *testing.T) {
	dir := setupLoginDir(t)

	var posts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(soapSuccess))
	}))
	t.Cleanup(server.Close)

	profile := loginTestProfile(t, dir, server.URL)
	seedCookieJar(t, profile, server.URL)

	// another worker owns the pid file now
	require.NoError(t, os.WriteFile(profile.PidFile(), []byte("1"), 0600))

	err := runRefreshLoop(profile, nil, time.Now().Add(-time.Minute), make(chan os.Signal))
	require.NoError(t, err)

	// the superseded worker must neither refresh nor touch the credentials
	assert.Zero(t, atomic.LoadInt32(&posts))
	assert.Nil(t, loadCredentials(profile.Name))
}

func TestNapStopsOnTerm(t *testing.T) {
	sigc := make(chan os.Signal, 1)
	sigc <- syscall.SIGTERM
	assert.True(t, nap(time.Hour, sigc))
}

func TestNapWakesOnInt(t *testing.T) {
	sigc := make(chan os.Signal, 1)
	sigc <- syscall.SIGINT

	start := time.Now()
	assert.False(t, nap(time.Hour, sigc))
	assert.Less(t, time.Since(start), time.Second)
}
