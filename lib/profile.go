package login

import (
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

var validate = validator.New()

// Profile is the effective configuration for one login session, merged from
// the configuration file, the persisted credential record and explicit
// command line overrides.
type Profile struct {
	Name string

	EcpEndpointURL string `validate:"required,url"`
	Username       string
	Password       string
	RoleArn        string
	Factor         string
	Passcode       string
	EnableKeyring  bool
	Duration       int64 `validate:"omitempty,gte=0,lte=43200"`

	HTTPHeaderFactor   string
	HTTPHeaderPasscode string
	VerifySSL          bool

	// Refresh is the daemon wake interval in seconds. 0 derives the
	// interval from the credential lifetime.
	Refresh int64

	// command line only
	AskPassword  bool
	ForceRefresh bool
	NoRefresh    bool

	Interactive bool

	dir string

	// which fields the configuration file or the command line set
	// explicitly; the credential record only fills fields both left unset
	fromFile  map[string]bool
	fromFlags map[string]bool
}

var optionalKeys = []string{
	profileKeyUsername,
	profileKeyPassword,
	profileKeyRoleArn,
	profileKeyEnableKeyring,
	profileKeyFactor,
	profileKeyPasscode,
	profileKeyDuration,
	profileKeyHTTPHeaderFactor,
	profileKeyHTTPHeaderPasscode,
	profileKeyVerifySSL,
	profileKeyRefresh,
}

var requiredKeys = []string{
	profileKeyEcpEndpointURL,
}

// LoadProfile resolves the effective configuration for profileName.
// Precedence: configuration file values first, then username/role from the
// persisted credential record where the file is silent, then explicitly
// supplied command line flags, which win over everything.
func LoadProfile(profileName string, flags *pflag.FlagSet, validateProfile bool) (*Profile, error) {
	if len(profileName) == 0 {
		profileName = "default"
	}

	dir, err := initLoginDir()
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		Name:        profileName,
		VerifySSL:   true,
		Interactive: isTTY(os.Stdin),
		dir:         dir,
		fromFile:    map[string]bool{},
		fromFlags:   map[string]bool{},
	}

	if err := profile.setAttrs(validateProfile); err != nil {
		return nil, err
	}

	if flags != nil {
		profile.setAttrsFromFlags(flags)
	}

	// ask-password means the password comes from the prompt, never the
	// keyring, regardless of configuration
	if profile.AskPassword {
		profile.EnableKeyring = false
	}

	profile.fillFromCredentials()

	if validateProfile {
		if err := validate.Struct(profile); err != nil {
			return nil, newConfigError("The login profile (%s) is invalid: %v", profileName, err)
		}
		if err := profile.RaiseIfFactorInvalid(); err != nil {
			return nil, err
		}
	}

	log.Infof("Loaded login profile: %s", profileName)
	return profile, nil
}

func (p *Profile) configFile() string {
	return filepath.Join(p.dir, configFileName)
}

// setAttrs loads the profile's section from ~/.aws-login/config.
func (p *Profile) setAttrs(validateProfile bool) error {
	store := viper.New()
	store.SetConfigFile(p.configFile())
	store.SetConfigType("ini")

	if err := store.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	} else {
		log.Infof("Loaded config file: %s", p.configFile())
	}

	section := store.Sub(p.Name)
	if section == nil {
		if validateProfile {
			return errProfileNotFound(p.Name)
		}
		return nil
	}

	var missing []string
	for _, key := range requiredKeys {
		if !section.IsSet(key) {
			missing = append(missing, key)
		}
	}
	if validateProfile && len(missing) > 0 {
		return errProfileMissingArgs(p.Name, missing...)
	}

	set := func(key string, assign func()) {
		if section.IsSet(key) {
			assign()
			p.fromFile[key] = true
		}
	}

	set(profileKeyEcpEndpointURL, func() { p.EcpEndpointURL = section.GetString(profileKeyEcpEndpointURL) })
	set(profileKeyUsername, func() { p.Username = section.GetString(profileKeyUsername) })
	set(profileKeyPassword, func() { p.Password = section.GetString(profileKeyPassword) })
	set(profileKeyRoleArn, func() { p.RoleArn = section.GetString(profileKeyRoleArn) })
	set(profileKeyFactor, func() { p.Factor = section.GetString(profileKeyFactor) })
	set(profileKeyPasscode, func() { p.Passcode = section.GetString(profileKeyPasscode) })
	set(profileKeyEnableKeyring, func() { p.EnableKeyring = parseConfigBool(section.GetString(profileKeyEnableKeyring)) })
	set(profileKeyDuration, func() { p.Duration = section.GetInt64(profileKeyDuration) })
	set(profileKeyHTTPHeaderFactor, func() { p.HTTPHeaderFactor = section.GetString(profileKeyHTTPHeaderFactor) })
	set(profileKeyHTTPHeaderPasscode, func() { p.HTTPHeaderPasscode = section.GetString(profileKeyHTTPHeaderPasscode) })
	set(profileKeyVerifySSL, func() { p.VerifySSL = parseConfigBool(section.GetString(profileKeyVerifySSL)) })
	set(profileKeyRefresh, func() { p.Refresh = section.GetInt64(profileKeyRefresh) })

	p.warnOnUnknownAttrs(section)
	return nil
}

func (p *Profile) warnOnUnknownAttrs(section *viper.Viper) {
	known := map[string]bool{}
	for _, key := range requiredKeys {
		known[key] = true
	}
	for _, key := range optionalKeys {
		known[key] = true
	}

	keys := section.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		if !known[key] {
			log.Warnf("Unknown attribute \"%s\" in %s profile", key, p.Name)
		}
	}
}

// setAttrsFromFlags applies explicitly changed command line flags. An
// explicitly supplied empty string or zero still overrides the file.
func (p *Profile) setAttrsFromFlags(flags *pflag.FlagSet) {
	if flags.Changed(FlagEcpEndpointURL) {
		p.EcpEndpointURL, _ = flags.GetString(FlagEcpEndpointURL)
	}
	if flags.Changed(FlagUsername) {
		p.Username, _ = flags.GetString(FlagUsername)
		p.fromFlags[profileKeyUsername] = true
	}
	if flags.Changed(FlagPassword) {
		p.Password, _ = flags.GetString(FlagPassword)
	}
	if flags.Changed(FlagRoleArn) {
		p.RoleArn, _ = flags.GetString(FlagRoleArn)
		p.fromFlags[profileKeyRoleArn] = true
	}
	if flags.Changed(FlagFactor) {
		p.Factor, _ = flags.GetString(FlagFactor)
	}
	if flags.Changed(FlagPasscode) {
		p.Passcode, _ = flags.GetString(FlagPasscode)
	}
	if flags.Changed(FlagEnableKeyring) {
		p.EnableKeyring, _ = flags.GetBool(FlagEnableKeyring)
	}
	if flags.Changed(FlagDuration) {
		p.Duration, _ = flags.GetInt64(FlagDuration)
	}
	if flags.Changed(FlagHTTPHeaderFactor) {
		p.HTTPHeaderFactor, _ = flags.GetString(FlagHTTPHeaderFactor)
	}
	if flags.Changed(FlagHTTPHeaderPasscode) {
		p.HTTPHeaderPasscode, _ = flags.GetString(FlagHTTPHeaderPasscode)
	}
	if flags.Changed(FlagVerifySSL) {
		p.VerifySSL, _ = flags.GetBool(FlagVerifySSL)
	}
	if flags.Changed(FlagRefresh) {
		p.Refresh, _ = flags.GetInt64(FlagRefresh)
	}
	if flags.Changed(FlagAskPassword) {
		p.AskPassword, _ = flags.GetBool(FlagAskPassword)
	}
	if flags.Changed(FlagForceRefresh) {
		p.ForceRefresh, _ = flags.GetBool(FlagForceRefresh)
	}
	if flags.Changed(FlagNoRefresh) {
		p.NoRefresh, _ = flags.GetBool(FlagNoRefresh)
	}
}

// fillFromCredentials pre-populates username and role from the persisted
// credential record to avoid re-prompting. File values win if present.
func (p *Profile) fillFromCredentials() {
	record := loadCredentials(p.Name)
	if record == nil {
		return
	}

	if len(p.Username) == 0 && !p.fromFile[profileKeyUsername] && !p.fromFlags[profileKeyUsername] && len(record.Username) > 0 {
		p.Username = record.Username
	}
	if len(p.RoleArn) == 0 && !p.fromFile[profileKeyRoleArn] && !p.fromFlags[profileKeyRoleArn] && len(record.RoleArn) > 0 {
		p.RoleArn = record.RoleArn
	}
}

func parseConfigBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "yes", "true", "on":
		return true
	default:
		return false
	}
}

// CookiePath returns the per-username cookie jar path. It is empty until a
// username is known.
func (p *Profile) CookiePath() string {
	if len(p.Username) == 0 {
		return ""
	}
	return filepath.Join(p.dir, jarDirName, p.Username+".txt")
}

func (p *Profile) PidFile() string {
	return filepath.Join(p.dir, p.Name+".pid")
}

func (p *Profile) IsFactorValid() bool {
	for _, factor := range validFactors {
		if p.Factor == factor {
			return true
		}
	}
	return false
}

func (p *Profile) RaiseIfFactorInvalid() error {
	if len(p.Factor) > 0 && !p.IsFactorValid() && !p.isFactorDisabled() {
		return errInvalidFactor(p.Factor)
	}
	return nil
}

func (p *Profile) isFactorDisabled() bool {
	factor := strings.ToLower(p.Factor)
	for _, token := range disableTokens {
		if factor == token {
			return true
		}
	}
	return false
}

func (p *Profile) isFactorPromptDisabled() bool {
	if len(p.Factor) == 0 {
		return false
	}
	return p.isFactorDisabled() || p.IsFactorValid()
}

// GetUsername prompts for the username if it is still unknown. The OS user
// is offered as the default.
func (p *Profile) GetUsername() error {
	if len(p.Username) > 0 {
		return nil
	}

	if !p.Interactive {
		return newConfigError("No username configured for profile %s", p.Name)
	}

	defaultUser := ""
	if u, err := user.Current(); err == nil {
		defaultUser = u.Username
	}

	username, err := textInput(promptUsername, defaultUser, false, nil)
	if err != nil {
		return err
	}
	p.Username = username
	return nil
}

// GetPassword resolves the password from the keyring or the user. With the
// keyring enabled the prompted password is written back for next time.
func (p *Profile) GetPassword() error {
	ukey := ""

	if p.EnableKeyring {
		if len(p.Password) > 0 {
			log.Warn("Using keyring: Ignoring password set via configuration file or command line.")
			p.Password = ""
		}

		endpoint, err := url.Parse(p.EcpEndpointURL)
		if err != nil {
			return err
		}
		ukey = p.Username + "@" + endpoint.Host

		if password, err := keyring.Get(keyringService, ukey); err == nil {
			p.Password = password
		} else {
			log.Debugf("Keyring lookup failed: %v", err)
		}
	}

	if len(p.Password) == 0 {
		if !p.Interactive {
			return newConfigError("No password configured for profile %s", p.Name)
		}

		password, err := textInput(promptPassword, "", true, nil)
		if err != nil {
			return err
		}
		p.Password = password

		if p.EnableKeyring {
			if err := keyring.Set(keyringService, ukey, p.Password); err != nil {
				log.Warnf("Could not store password in keyring: %v", err)
			}
		}
	}

	return nil
}

// GetCredentials collects username, password and multi-factor headers,
// prompting where values are missing. firstPass suppresses the passcode
// prompt unless the factor explicitly requires one.
func (p *Profile) GetCredentials(firstPass bool) (string, string, map[string]string, error) {
	if err := p.GetUsername(); err != nil {
		return "", "", nil, err
	}
	if err := p.GetPassword(); err != nil {
		return "", "", nil, err
	}

	headers := map[string]string{}

	if !p.isFactorPromptDisabled() && p.Interactive {
		factor, err := textInput(promptFactor, "", false, nil)
		if err != nil {
			return "", "", nil, err
		}
		p.Factor = factor
		if err := p.RaiseIfFactorInvalid(); err != nil {
			return "", "", nil, err
		}
	}

	if p.IsFactorValid() {
		if len(p.HTTPHeaderFactor) > 0 {
			headers[p.HTTPHeaderFactor] = p.Factor
		} else {
			headers[duoHeaderFactorCompat] = p.Factor
			headers[duoHeaderFactor] = p.Factor
		}

		if !firstPass || p.Factor == "passcode" {
			code := p.Passcode
			if len(code) == 0 {
				if !p.Interactive {
					return "", "", nil, newConfigError("No passcode configured for profile %s", p.Name)
				}
				var err error
				code, err = textInput(promptPasscode, "", false, nil)
				if err != nil {
					return "", "", nil, err
				}
			}

			if len(p.HTTPHeaderPasscode) > 0 {
				headers[p.HTTPHeaderPasscode] = code
			} else {
				headers[duoHeaderPasscodeCompat] = code
				headers[duoHeaderPasscode] = code
			}
		}
	}

	return p.Username, p.Password, headers, nil
}

// LoadCredentials returns the persisted record for this profile, nil if no
// valid record exists.
func (p *Profile) LoadCredentials() *CredentialRecord {
	return loadCredentials(p.Name)
}

// AreCredentialsExpired is true when there is no record, no parseable
// expiration or the expiration has passed.
func (p *Profile) AreCredentialsExpired() bool {
	record := loadCredentials(p.Name)
	if record == nil {
		return true
	}
	return !record.Expiration.After(timeNow())
}

// RaiseIfLoggedIn fails when an active session exists: either valid
// persisted credentials or a live refresh daemon.
func (p *Profile) RaiseIfLoggedIn() error {
	if p.LoadCredentials().IsLoggedIn() {
		return errAlreadyLoggedIn()
	}
	if pid, alive := daemonPid(p.PidFile()); alive {
		log.Debugf("Refresh daemon running with pid %d", pid)
		return errAlreadyLoggedIn()
	}
	return nil
}

func (p *Profile) RaiseIfLoggedOut() error {
	if !p.LoadCredentials().IsLoggedIn() {
		return errAlreadyLoggedOut()
	}
	return nil
}
