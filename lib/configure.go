package login

import (
	"path/filepath"

	"github.com/go-ini/ini"
	log "github.com/sirupsen/logrus"
)

// Configure interactively updates the profile's section of the
// configuration file. Only the prompted attributes are rewritten, other
// attributes and other profiles are preserved.
func Configure(profile *Profile) error {
	if !profile.Interactive {
		return newConfigError("Configuration requires a terminal")
	}

	endpoint, err := textInput(promptEcpEndpointURL, profile.EcpEndpointURL, false, validateURL)
	if err != nil {
		return err
	}

	username, err := textInput(promptUsername, profile.Username, false, nil)
	if err != nil {
		return err
	}

	keyring := "no"
	if profile.EnableKeyring {
		keyring = "yes"
	}
	keyring, err = textInput(promptEnableKeyring, keyring, false, nil)
	if err != nil {
		return err
	}

	factor, err := textInput(promptFactor, profile.Factor, false, nil)
	if err != nil {
		return err
	}

	roleArn, err := textInput(promptRoleArn, profile.RoleArn, false, nil)
	if err != nil {
		return err
	}

	values := map[string]string{
		profileKeyEcpEndpointURL: endpoint,
		profileKeyUsername:       username,
		profileKeyEnableKeyring:  keyring,
		profileKeyFactor:         factor,
		profileKeyRoleArn:        roleArn,
	}

	return writeProfileSection(filepath.Join(profile.dir, configFileName), profile.Name, values)
}

// writeProfileSection merges values into the named section. Empty values
// drop the key so a cleared prompt removes the attribute.
func writeProfileSection(filename, section string, values map[string]string) error {
	file, err := ini.LooseLoad(filename)
	if err != nil {
		return err
	}

	target := file.Section(section)
	for key, value := range values {
		if len(value) == 0 {
			target.DeleteKey(key)
			continue
		}
		if _, err := target.NewKey(key, value); err != nil {
			return err
		}
	}

	if err := storeFile(filename, saveSecureINI(file)); err != nil {
		return err
	}

	log.Infof("Updated profile %s in %s", section, filename)
	return nil
}
