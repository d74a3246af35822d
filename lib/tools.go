package login

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// loginDir returns the state directory (~/.aws-login). AWSCLI_LOGIN_ROOT
// overrides the home directory, tests rely on this.
func loginDir() (string, error) {
	root := os.Getenv("AWSCLI_LOGIN_ROOT")
	if len(root) == 0 {
		var err error
		root, err = userHomeDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(root, configDirName), nil
}

func userHomeDir() (string, error) {
	var home string
	if runtime.GOOS == "windows" {
		home = os.Getenv("USERPROFILE")
	} else {
		home = os.Getenv("HOME")
	}

	if len(home) == 0 {
		return "", fmt.Errorf("could not determine home directory")
	}

	return home, nil
}

// initLoginDir creates the state directory tree with owner-only access.
func initLoginDir() (string, error) {
	dir, err := loginDir()
	if err != nil {
		return "", err
	}

	for _, d := range []string{dir, filepath.Join(dir, jarDirName), filepath.Join(dir, logDirName)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// storeFile atomically replaces filename with whatever writeFile produces.
// A reader never observes a partially written file.
func storeFile(filename string, writeFile func(string) error) error {
	newFilename := filename + ".NEW"
	oldFilename := filename + ".OLD"

	if err := os.Remove(newFilename); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := writeFile(newFilename); err != nil {
		return err
	}

	if _, err := os.Stat(newFilename); err == nil {
		if err := os.Rename(filename, oldFilename); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
		}
		if err := os.Rename(newFilename, filename); err != nil {
			return err
		}
		_ = os.Remove(oldFilename)
	}

	return nil
}

// secureTouch creates path if needed and restricts it to the owner.
func secureTouch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.Chmod(0600)
}

func isTTY(file *os.File) bool {
	fi, err := file.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func validateURL(input string) error {
	if len(input) == 0 {
		return nil
	}
	_, err := url.ParseRequestURI(input)
	if err != nil {
		return fmt.Errorf("could not parse '%v' as a URL", input)
	}
	return nil
}

func validateNumber(input string) error {
	if len(input) == 0 {
		return nil
	}
	_, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %v", input)
	}
	return nil
}
