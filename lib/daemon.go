package login

import (
	"encoding/json"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
)

// The refresh daemon is a detached copy of this binary. Go cannot fork, so
// the parent spawns a worker process and hands it the resolved session
// state through a one-shot file that the worker zeroes and removes as soon
// as it has been read. The payload contains no secrets beyond the role and
// expiration, the credential itself lives only in the credential store.

// workerHandoff is the serialized session state passed to the worker.
type workerHandoff struct {
	ProfileName    string    `json:"profile"`
	Username       string    `json:"username"`
	EcpEndpointURL string    `json:"ecp_endpoint_url"`
	VerifySSL      bool      `json:"verify_ssl_certificate"`
	Duration       int64     `json:"duration"`
	Refresh        int64     `json:"refresh"`
	Role           Role      `json:"role"`
	Expiration     time.Time `json:"expiration"`
}

// startBackgroundWorker detaches a refresh worker for the given session.
// The foreground process returns to the caller right away; the worker owns
// the pid file from here on.
func startBackgroundWorker(profile *Profile, role *Role, expires time.Time) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}

	handoff := &workerHandoff{
		ProfileName:    profile.Name,
		Username:       profile.Username,
		EcpEndpointURL: profile.EcpEndpointURL,
		VerifySSL:      profile.VerifySSL,
		Duration:       profile.Duration,
		Refresh:        profile.Refresh,
		Role:           *role,
		Expiration:     expires,
	}

	data, err := json.Marshal(handoff)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(profile.dir, "handoff-*")
	if err != nil {
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	cmd := exec.Command(executable, "login",
		"--"+FlagProfile, profile.Name,
		"--"+FlagWorker, tmp.Name())
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	// the worker is intentionally not reaped, it outlives this process
	log.Infof("Started refresh process %d for profile %s", cmd.Process.Pid, profile.Name)
	return cmd.Process.Release()
}

// readWorkerHandoff consumes the handoff file: read, overwrite with zeros,
// remove. The payload must not linger on disk.
func readWorkerHandoff(path string) (*workerHandoff, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	zeros := make([]byte, len(data))
	if err := os.WriteFile(path, zeros, 0600); err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		return nil, err
	}

	handoff := &workerHandoff{}
	if err := json.Unmarshal(data, handoff); err != nil {
		return nil, err
	}
	return handoff, nil
}

// RunWorker is the entry point of the detached refresh process. It never
// prompts and logs only to the per-profile log file.
func RunWorker(handoffPath string) error {
	handoff, err := readWorkerHandoff(handoffPath)
	if err != nil {
		return err
	}

	dir, err := initLoginDir()
	if err != nil {
		return err
	}

	profile := &Profile{
		Name:           handoff.ProfileName,
		Username:       handoff.Username,
		EcpEndpointURL: handoff.EcpEndpointURL,
		VerifySSL:      handoff.VerifySSL,
		Duration:       handoff.Duration,
		Refresh:        handoff.Refresh,
		dir:            dir,
	}

	logfile, err := configureFile(profile.Name)
	if err != nil {
		return err
	}

	if err := writePidFile(profile.PidFile()); err != nil {
		return err
	}
	defer releasePidFile(profile.PidFile())

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	log.Infof("Starting refresh process for role %s (log: %s)", handoff.Role.RoleArn, logfile)

	err = runRefreshLoop(profile, &handoff.Role, handoff.Expiration, sigc)
	if err != nil {
		log.Errorf("Refresh process failed: %v", err)
		return err
	}

	log.Info("Exiting refresh process")
	return nil
}

// runRefreshLoop keeps the profile's credentials fresh until it is told to
// stop or refreshing fails permanently.
func runRefreshLoop(profile *Profile, role *Role, expires time.Time, sigc <-chan os.Signal) error {
	for {
		interval := napInterval(expires, profile.Refresh)
		if stop := nap(interval, sigc); stop {
			return nil
		}

		// a manual logout or a forced re-login replaces the pid file;
		// a superseded worker exits quietly and must not write again
		if !ownsPidFile(profile.PidFile()) {
			log.Info("Pid file no longer owned, exiting")
			return nil
		}

		var assertion string
		var err error

		pause := interval / 5
		for retries := 0; ; retries++ {
			assertion, _, err = Refresh(profile.EcpEndpointURL, profile.CookiePath(), profile.VerifySSL)
			if err == nil {
				break
			}
			if retries >= 3 {
				return err
			}

			log.Infof("Refresh failed: %v", err)
			if stop := nap(pause, sigc); stop {
				return nil
			}
		}

		if !ownsPidFile(profile.PidFile()) {
			log.Info("Pid file no longer owned, exiting")
			return nil
		}

		expires, err = AssumeRole(profile, assertion, role, profile.Duration)
		if err != nil {
			return err
		}
	}
}

// napInterval computes how long to sleep before the next refresh: the
// configured interval, or 90% of the credential's remaining lifetime.
func napInterval(expires time.Time, refresh int64) time.Duration {
	if refresh > 0 {
		return time.Duration(refresh) * time.Second
	}

	remaining := time.Until(expires)
	if remaining <= 0 {
		return 0
	}
	return remaining * 9 / 10
}

// nap sleeps for d unless a signal arrives first. SIGTERM stops the loop;
// SIGINT is absorbed and treated as a normal early wake.
func nap(d time.Duration, sigc <-chan os.Signal) (stop bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return false
	case sig := <-sigc:
		if sig == syscall.SIGTERM {
			log.Infof("Received signal: %v. Shutting down...", sig)
			return true
		}
		log.Infof("Received signal: %v. Refreshing now.", sig)
		return false
	}
}

func writePidFile(pidfile string) error {
	if err := secureTouch(pidfile); err != nil {
		return err
	}
	return storeFile(pidfile, func(name string) error {
		return os.WriteFile(name, []byte(strconv.Itoa(os.Getpid())), 0600)
	})
}

func ownsPidFile(pidfile string) bool {
	data, err := os.ReadFile(pidfile)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	return pid == os.Getpid()
}

func releasePidFile(pidfile string) {
	if ownsPidFile(pidfile) {
		_ = os.Remove(pidfile)
	}
}

// daemonPid reads the recorded worker pid and checks that the process is
// still alive. A stale or unreadable pid file reads as "not running".
func daemonPid(pidfile string) (int, bool) {
	data, err := os.ReadFile(pidfile)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}

	alive, err := process.PidExists(int32(pid))
	if err != nil || !alive {
		return pid, false
	}
	return pid, true
}

// signalDaemon delivers sig to the recorded worker process. It reports
// whether a live worker was signaled; a dead pid only clears the stale
// file.
func signalDaemon(pidfile string, sig os.Signal) (bool, error) {
	pid, alive := daemonPid(pidfile)
	if !alive {
		if pid != 0 {
			// stale pid file left behind by a crashed worker
			_ = os.Remove(pidfile)
		}
		return false, nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}
	if err := proc.Signal(sig); err != nil {
		return false, err
	}

	log.Infof("Sent %v to refresh process %d", sig, pid)
	return true, nil
}
