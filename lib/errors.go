package login

import (
	"fmt"
	"strings"
)

// Exit codes returned to the shell. The values are stable, scripts depend
// on them.
const (
	ErrorNone              = 0
	ErrorUnknown           = 1
	CodeAlreadyLoggedIn    = 2
	CodeAlreadyLoggedOut   = 3
	CodeProfileNotFound    = 4
	CodeProfileMissingArgs = 5
	CodeInvalidFactor      = 6
	CodeAuthnFailed        = 7
	CodeInvalidSOAP        = 8
	CodeMissingCookieJar   = 9
	CodeRoleParseFail      = 10
	CodeInvalidSelection   = 11
)

// Error is the error type used throughout this package. Every failure the
// CLI can report maps onto one of the Code* constants above.
type Error struct {
	Code    int
	message string
	cause   error
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ExitCode maps any error onto a stable shell exit code.
func ExitCode(err error) int {
	if err == nil {
		return ErrorNone
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ErrorUnknown
}

func newConfigError(format string, args ...interface{}) *Error {
	return &Error{Code: ErrorUnknown, message: fmt.Sprintf(format, args...)}
}

func newSamlError(format string, args ...interface{}) *Error {
	return &Error{Code: ErrorUnknown, message: fmt.Sprintf(format, args...)}
}

func errAlreadyLoggedIn() *Error {
	return &Error{Code: CodeAlreadyLoggedIn, message: "Already logged in!"}
}

func errAlreadyLoggedOut() *Error {
	return &Error{Code: CodeAlreadyLoggedOut, message: "Already logged out!"}
}

func errProfileNotFound(profile string) *Error {
	return &Error{
		Code:    CodeProfileNotFound,
		message: fmt.Sprintf("The login profile (%s) could not be found!", profile),
	}
}

func errProfileMissingArgs(profile string, args ...string) *Error {
	return &Error{
		Code: CodeProfileMissingArgs,
		message: fmt.Sprintf("The login profile (%s) is missing argument(s): %s!",
			profile, strings.Join(args, ", ")),
	}
}

func errInvalidFactor(factor string) *Error {
	return &Error{
		Code: CodeInvalidFactor,
		message: fmt.Sprintf("Invalid factor %s! Valid values are: %s.",
			factor, strings.Join(validFactors, ", ")),
	}
}

func errAuthnFailed() *Error {
	return &Error{Code: CodeAuthnFailed, message: "Authentication failed!"}
}

func errInvalidSOAP(url string, cause error) *Error {
	return &Error{
		Code: CodeInvalidSOAP,
		message: fmt.Sprintf("Invalid SOAP returned by ECP Endpoint: %s!\n"+
			"ECP Endpoint URL may be bad!", url),
		cause: cause,
	}
}

func errMissingCookieJar(jar string, cause error) *Error {
	return &Error{
		Code:    CodeMissingCookieJar,
		message: fmt.Sprintf("Failed to load cookie jar: %s", jar),
		cause:   cause,
	}
}

func errRoleParseFail(value string) *Error {
	return &Error{
		Code:    CodeRoleParseFail,
		message: fmt.Sprintf("Bad SAML Response! Failed to parse role: %s!", value),
	}
}

func errInvalidSelection() *Error {
	return &Error{Code: CodeInvalidSelection, message: "Invalid selection!"}
}
