package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("account not found")
	ErrDuplicate           = errors.New("account already exists")
	ErrCapacity            = errors.New("maximum account limit reached")
	ErrActiveAccount       = errors.New("operation refused on active account")
	ErrAlreadyRunning      = errors.New("deployment already running")
	ErrNotRunning          = errors.New("no deployment is running")
	ErrSessionBusy         = errors.New("deployment is changing state")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoAvailableAccount  = errors.New("no available account with sufficient balance")
	ErrRemoteCommand       = errors.New("remote command failed")
	ErrDecryption          = errors.New("credential decryption failed")
)

const maxStderrInError = 300

// RemoteCommandError is a non-zero exit or timeout from the command executor.
type RemoteCommandError struct {
	Op       string
	ExitCode int
	Stderr   string
}

func (e *RemoteCommandError) Error() string {
	stderr := Truncate(e.Stderr, maxStderrInError)
	if stderr == "" {
		return fmt.Sprintf("%s: exit code %d", e.Op, e.ExitCode)
	}

	return fmt.Sprintf("%s: exit code %d: %s", e.Op, e.ExitCode, stderr)
}

func (e *RemoteCommandError) Is(target error) bool {
	return target == ErrRemoteCommand
}

func Truncate(text string, max int) string {
	const suffix = "..."

	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	if max <= len(suffix) {
		return string(runes[:max])
	}

	return string(runes[:max-len(suffix)]) + suffix
}
