package login

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/go-ini/ini"
	log "github.com/sirupsen/logrus"
)

// swapped out by tests that need a fixed clock
var timeNow = time.Now

// saveSecureINI serializes cfg to an owner-only file. Going through a
// buffer keeps the 0600 mode, ini's SaveTo would create the file with the
// process umask.
func saveSecureINI(cfg *ini.File) func(string) error {
	return func(name string) error {
		var buf bytes.Buffer
		if _, err := cfg.WriteTo(&buf); err != nil {
			return err
		}
		return os.WriteFile(name, buf.Bytes(), 0600)
	}
}

// CredentialRecord is the persisted session state for one profile: the most
// recently issued temporary credential plus the role it was issued for.
type CredentialRecord struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PrincipalArn    string
	RoleArn         string
	Expiration      time.Time
	Username        string
}

// IsLoggedIn reports whether the record represents an active session: a
// role ARN is present and the credential has not expired.
func (r *CredentialRecord) IsLoggedIn() bool {
	return r != nil && len(r.RoleArn) > 0 && r.Expiration.After(timeNow())
}

// IsComplete reports whether the record carries a full credential triple.
func (r *CredentialRecord) IsComplete() bool {
	return r != nil && len(r.AccessKeyID) > 0 && len(r.SecretAccessKey) > 0 &&
		len(r.SessionToken) > 0
}

func credentialsFile() (string, error) {
	dir, err := loginDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credsFileName), nil
}

// expiration timestamps are written as RFC 3339; older files carry a bare
// local timestamp without a zone
var expirationFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseExpiration(value string) time.Time {
	for _, format := range expirationFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// loadCredentials reads the record for a profile. A missing file, missing
// section or corrupt record reads as nil: no valid credentials, never a
// hard failure.
func loadCredentials(profileName string) *CredentialRecord {
	filename, err := credentialsFile()
	if err != nil {
		return nil
	}

	cfg, err := ini.LooseLoad(filename)
	if err != nil {
		log.Debugf("Could not read credential store: %v", err)
		return nil
	}

	section, err := cfg.GetSection(profileName)
	if err != nil {
		return nil
	}

	record := &CredentialRecord{
		AccessKeyID:     section.Key(credKeyAccessKeyID).String(),
		SecretAccessKey: section.Key(credKeySecretAccessKey).String(),
		SessionToken:    section.Key(credKeySessionToken).String(),
		PrincipalArn:    section.Key(credKeyPrincipalArn).String(),
		RoleArn:         section.Key(credKeyRoleArn).String(),
		Expiration:      parseExpiration(section.Key(credKeyExpiration).String()),
		Username:        section.Key(credKeyUsername).String(),
	}
	return record
}

// saveCredentials creates or overwrites the profile's record and persists
// the whole store atomically. Other profiles' sections are untouched.
func saveCredentials(profileName string, record *CredentialRecord) error {
	filename, err := credentialsFile()
	if err != nil {
		return err
	}

	cfg, err := ini.LooseLoad(filename)
	if err != nil {
		return err
	}

	// rewrite the section in place, keeps an existing section in file order
	section := cfg.Section(profileName)
	for _, key := range section.KeyStrings() {
		section.DeleteKey(key)
	}

	values := map[string]string{
		credKeyAccessKeyID:     record.AccessKeyID,
		credKeySecretAccessKey: record.SecretAccessKey,
		credKeySessionToken:    record.SessionToken,
		credKeyPrincipalArn:    record.PrincipalArn,
		credKeyRoleArn:         record.RoleArn,
		credKeyExpiration:      record.Expiration.Format(time.RFC3339),
		credKeyUsername:        record.Username,
	}
	for _, key := range []string{
		credKeyAccessKeyID, credKeySecretAccessKey, credKeySessionToken,
		credKeyPrincipalArn, credKeyRoleArn, credKeyExpiration, credKeyUsername,
	} {
		if _, err := section.NewKey(key, values[key]); err != nil {
			return err
		}
	}

	if err := storeFile(filename, saveSecureINI(cfg)); err != nil {
		return err
	}

	log.Infof("Saved temporary STS credentials for profile: %s", profileName)
	return nil
}

// removeCredentials deletes the profile's record. It returns whether a
// record existed so callers can report "already logged out".
func removeCredentials(profileName string) (bool, error) {
	filename, err := credentialsFile()
	if err != nil {
		return false, err
	}

	cfg, err := ini.LooseLoad(filename)
	if err != nil {
		return false, err
	}

	if _, err := cfg.GetSection(profileName); err != nil {
		return false, nil
	}

	cfg.DeleteSection(profileName)
	if err := storeFile(filename, saveSecureINI(cfg)); err != nil {
		return true, err
	}

	log.Infof("Removed temporary STS credentials for profile: %s", profileName)
	return true, nil
}

// removeAllCredentials wipes the records of every profile.
func removeAllCredentials() (bool, error) {
	filename, err := credentialsFile()
	if err != nil {
		return false, err
	}

	cfg, err := ini.LooseLoad(filename)
	if err != nil {
		return false, err
	}

	existed := false
	for _, section := range cfg.SectionStrings() {
		if section == ini.DefaultSection {
			continue
		}
		cfg.DeleteSection(section)
		existed = true
	}

	if !existed {
		return false, nil
	}

	if err := storeFile(filename, saveSecureINI(cfg)); err != nil {
		return true, err
	}

	log.Info("Removed temporary STS credentials for all profiles")
	return true, nil
}
