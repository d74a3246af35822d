package login

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	log "github.com/sirupsen/logrus"
)

func textInput(label string, defaultValue string, hidden bool, validate promptui.ValidateFunc) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: validate,
		Stdout:   &bellSkipper{},
	}

	if hidden {
		prompt.Mask = '*'
	}

	if len(defaultValue) > 0 {
		prompt.Default = defaultValue
	}

	value, err := prompt.Run()
	if err != nil {
		checkForKeyboard(err)
		return "", err
	}

	if len(value) == 0 {
		return defaultValue, nil
	}
	return value, nil
}

func checkForKeyboard(err error) {
	if err == promptui.ErrInterrupt {
		log.Fatal("Terminated by ^C")
	} else if err == promptui.ErrEOF {
		log.Fatal("Terminated by ^D")
	}
}

// bellSkipper implements an io.WriteCloser that skips the terminal bell
// character (ASCII code 7), and writes the rest to os.Stderr. It is used to
// replace readline.Stdout, that is the package used by promptui to display
// the prompts.
//
// This is a workaround for the bell issue documented in
// https://github.com/manifoldco/promptui/issues/49.
type bellSkipper struct{}

// Write implements an io.WriterCloser over os.Stderr, but it skips the
// terminal bell character.
func (bs *bellSkipper) Write(b []byte) (int, error) {
	const charBell = 7 // c.f. readline.CharBell
	if len(b) == 1 && b[0] == charBell {
		return 0, nil
	}
	return os.Stderr.Write(b)
}

// Close implements an io.WriterCloser over os.Stderr.
func (bs *bellSkipper) Close() error {
	return os.Stderr.Close()
}

func printf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}
