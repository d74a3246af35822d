package login

const (
	// global command line flags

	FlagProfile = "profile"
	FlagVerbose = "verbose"

	// login value flags

	FlagEcpEndpointURL     = "ecp-endpoint-url"
	FlagUsername           = "username"
	FlagPassword           = "password"
	FlagFactor             = "factor"
	FlagPasscode           = "passcode"
	FlagRoleArn            = "role-arn"
	FlagDuration           = "duration"
	FlagHTTPHeaderFactor   = "http-header-factor"
	FlagHTTPHeaderPasscode = "http-header-passcode"
	FlagVerifySSL          = "verify-ssl-certificate"
	FlagEnableKeyring      = "enable-keyring"
	FlagRefresh            = "refresh"

	// login cli-only flags

	FlagAskPassword  = "ask-password"
	FlagForceRefresh = "force-refresh"
	FlagNoRefresh    = "no-refresh"
	FlagWorker       = "worker"

	// logout flags

	FlagAll = "all"

	FlagDescEcpEndpointURL     = "ECP endpoint URL of the IdP."
	FlagDescUsername           = "Username to use on login to the IdP."
	FlagDescPassword           = "Password to use on login to the IdP."
	FlagDescFactor             = "The Duo factor to use on login."
	FlagDescPasscode           = "A Duo passcode."
	FlagDescRoleArn            = "The role ARN to select. A single role is autoselected."
	FlagDescDuration           = "STS credential lifetime in seconds."
	FlagDescHTTPHeaderFactor   = "HTTP header used to pass the Duo factor."
	FlagDescHTTPHeaderPasscode = "HTTP header used to pass the Duo passcode."
	FlagDescVerifySSL          = "Verify the SSL certificate of the IdP."
	FlagDescEnableKeyring      = "Retrieve the password from the OS keyring."
	FlagDescRefresh            = "Refresh interval in seconds. 0 sleeps until 90% of the credential lifetime."
	FlagDescAskPassword        = "Force prompt for password."
	FlagDescForceRefresh       = "Force a credential refresh using the stored IdP session."
	FlagDescNoRefresh          = "Do not start the background refresh process."
	FlagDescAll                = "Log out of all profiles."

	// profile config keys, one section per profile in ~/.aws-login/config

	profileKeyEcpEndpointURL     = "ecp_endpoint_url"
	profileKeyUsername           = "username"
	profileKeyPassword           = "password"
	profileKeyFactor             = "factor"
	profileKeyPasscode           = "passcode"
	profileKeyRoleArn            = "role_arn"
	profileKeyEnableKeyring      = "enable_keyring"
	profileKeyDuration           = "duration"
	profileKeyHTTPHeaderFactor   = "http_header_factor"
	profileKeyHTTPHeaderPasscode = "http_header_passcode"
	profileKeyVerifySSL          = "verify_ssl_certificate"
	profileKeyRefresh            = "refresh"

	// credential record keys, one section per profile in ~/.aws-login/credentials

	credKeyAccessKeyID     = "aws_access_key_id"
	credKeySecretAccessKey = "aws_secret_access_key"
	credKeySessionToken    = "aws_session_token"
	credKeyPrincipalArn    = "aws_principal_arn"
	credKeyRoleArn         = "aws_role_arn"
	credKeyExpiration      = "expiration"
	credKeyUsername        = "username"

	// user prompts

	promptUsername       = "Username"
	promptPassword       = "Password"
	promptFactor         = "Factor"
	promptPasscode       = "Code"
	promptSelection      = "Selection"
	promptEcpEndpointURL = "ECP Endpoint URL"
	promptEnableKeyring  = "Enable Keyring"
	promptRoleArn        = "Role ARN"

	// on-disk layout below ~/.aws-login (or $AWSCLI_LOGIN_ROOT)

	configDirName    = ".aws-login"
	configFileName   = "config"
	credsFileName    = "credentials"
	jarDirName       = "cookies"
	logDirName       = "log"
	accountCacheName = "accounts.toml"

	keyringService = "awscli_login"
)

// Duo factor handling. A factor outside of validFactors that is listed in
// disableTokens suppresses the interactive factor prompt.
var (
	validFactors  = []string{"auto", "push", "passcode", "sms", "phone"}
	disableTokens = []string{"0", "no", "false", "off", "disable"}
)

const (
	// both header spellings are sent, older Shibboleth Duo gateways
	// only understand the misspelled one
	duoHeaderFactorCompat   = "X-Shiboleth-Duo-Factor"
	duoHeaderFactor         = "X-Shibboleth-Duo-Factor"
	duoHeaderPasscodeCompat = "X-Shiboleth-Duo-Passcode"
	duoHeaderPasscode       = "X-Shibboleth-Duo-Passcode"
)
