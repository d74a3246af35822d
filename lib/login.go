package login

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// Login establishes an AWS session for the profile: obtain a SAML assertion
// from the ECP endpoint, pick a role, exchange the assertion for STS
// credentials and hand the session to a background refresh worker.
func Login(profile *Profile) error {
	if profile.ForceRefresh {
		refreshed, err := forceRefresh(profile)
		if refreshed || err != nil {
			return err
		}
		// no active session to poke, fall through to a full login
		log.Warn("Forced refresh requested but no active session found, logging in.")
	} else {
		if err := profile.RaiseIfLoggedIn(); err != nil {
			return err
		}
	}

	if err := profile.GetUsername(); err != nil {
		return err
	}

	assertion, roles, err := authenticate(profile)
	if err != nil {
		return err
	}

	role, err := getSelection(roles, profile.RoleArn, profile.Interactive, cachedAccountAliases())
	if err != nil {
		return err
	}

	expires, err := AssumeRole(profile, assertion, role, profile.Duration)
	if err != nil {
		return err
	}

	rememberAccountAlias(profile.LoadCredentials())

	printf("Logged in as %s until %s\n", roleName(role.RoleArn), expires.Local().Format(time.RFC1123))

	if profile.NoRefresh {
		log.Info("Credential refreshing disabled")
		return nil
	}

	if err := startBackgroundWorker(profile, role, expires); err != nil {
		// the session is established either way, only refreshing is lost
		log.Warnf("Could not start refresh process: %v", err)
	}
	return nil
}

// forceRefresh pokes a live refresh worker to renew immediately. It reports
// whether an active session was found.
func forceRefresh(profile *Profile) (bool, error) {
	signaled, err := signalDaemon(profile.PidFile(), syscall.SIGINT)
	if err != nil {
		return false, err
	}
	if signaled {
		printf("Refresh requested.\n")
		return true, nil
	}
	return false, nil
}

// authenticate obtains a SAML assertion, first by replaying the session
// cookies, then by a full credential exchange. A failed second factor gets
// one retry with an explicit passcode prompt.
func authenticate(profile *Profile) (string, []Role, error) {
	if assertion, roles, err := Refresh(profile.EcpEndpointURL, profile.CookiePath(), profile.VerifySSL); err == nil {
		log.Info("Reused existing session cookies")
		return assertion, roles, nil
	} else {
		log.Debugf("Session refresh failed: %v", err)
	}

	username, password, headers, err := profile.GetCredentials(true)
	if err != nil {
		return "", nil, err
	}

	assertion, roles, err := Authenticate(profile.EcpEndpointURL, profile.CookiePath(), username, password, headers, profile.VerifySSL)
	if err == nil {
		return assertion, roles, nil
	}

	var samlErr *Error
	if errors.As(err, &samlErr) && samlErr.Code == CodeAuthnFailed && profile.IsFactorValid() && profile.Interactive {
		log.Warn("Authentication failed, retrying with a passcode.")

		username, password, headers, err = profile.GetCredentials(false)
		if err != nil {
			return "", nil, err
		}
		return Authenticate(profile.EcpEndpointURL, profile.CookiePath(), username, password, headers, profile.VerifySSL)
	}

	return "", nil, err
}

// Logout stops the refresh worker and removes the stored credentials. With
// all set, every profile's session is torn down.
func Logout(profile *Profile, all bool) error {
	if all {
		return logoutAll(profile)
	}

	signaled, err := signalDaemon(profile.PidFile(), syscall.SIGTERM)
	if err != nil {
		log.Warnf("Could not stop refresh process: %v", err)
	}

	existed, err := removeCredentials(profile.Name)
	if err != nil {
		return err
	}

	if !existed && !signaled {
		return errAlreadyLoggedOut()
	}

	printf("Logged out of profile %s.\n", profile.Name)
	return nil
}

func logoutAll(profile *Profile) error {
	stopped := stopAllDaemons(profile.dir)

	existed, err := removeAllCredentials()
	if err != nil {
		return err
	}

	if !existed && stopped == 0 {
		return errAlreadyLoggedOut()
	}

	printf("Logged out of all profiles.\n")
	return nil
}

// stopAllDaemons signals every recorded refresh worker in dir and returns
// how many were alive.
func stopAllDaemons(dir string) int {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pid"))
	if err != nil {
		return 0
	}

	stopped := 0
	for _, pidfile := range matches {
		signaled, err := signalDaemon(pidfile, syscall.SIGTERM)
		if err != nil {
			log.Warnf("Could not stop refresh process for %s: %v", strings.TrimSuffix(filepath.Base(pidfile), ".pid"), err)
			continue
		}
		if signaled {
			stopped++
		}
	}
	return stopped
}

// processCredentials is the JSON document expected by the AWS CLI
// credential_process contract.
type processCredentials struct {
	Version         int    `json:"Version"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken"`
	Expiration      string `json:"Expiration"`
}

// PrintCredentials writes the stored credentials for the profile to stdout
// in credential_process format. Expired credentials trigger one
// non-interactive renewal attempt over the saved session cookies.
func PrintCredentials(profile *Profile) error {
	record := profile.LoadCredentials()

	if !record.IsLoggedIn() || !record.IsComplete() {
		renewed, err := renewNonInteractive(profile)
		if err != nil {
			return err
		}
		record = renewed
	}

	out := &processCredentials{
		Version:         1,
		AccessKeyID:     record.AccessKeyID,
		SecretAccessKey: record.SecretAccessKey,
		SessionToken:    record.SessionToken,
		Expiration:      record.Expiration.UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(out)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}

// renewNonInteractive re-establishes the session without prompting: the
// saved cookies must still carry a valid session and the previous role is
// reused.
func renewNonInteractive(profile *Profile) (*CredentialRecord, error) {
	if len(profile.Username) == 0 || len(profile.RoleArn) == 0 {
		return nil, errAlreadyLoggedOut()
	}

	assertion, roles, err := Refresh(profile.EcpEndpointURL, profile.CookiePath(), profile.VerifySSL)
	if err != nil {
		return nil, err
	}

	role, err := getSelection(roles, profile.RoleArn, false, nil)
	if err != nil {
		return nil, err
	}

	if _, err := AssumeRole(profile, assertion, role, profile.Duration); err != nil {
		return nil, err
	}

	record := profile.LoadCredentials()
	if !record.IsComplete() {
		return nil, errAlreadyLoggedOut()
	}

	log.Infof("Renewed credentials for profile %s", profile.Name)
	return record, nil
}
