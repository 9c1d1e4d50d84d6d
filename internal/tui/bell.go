package tui

import "os"

// Bell sounds the terminal bell. It satisfies the scanner's Beeper so a
// successful decode gives the operator audible feedback.
type Bell struct{}

func (Bell) Beep() error {
	_, err := os.Stdout.Write([]byte("\a"))
	return err
}
