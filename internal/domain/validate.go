package domain

import (
	"fmt"
	"strings"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 50

	TokenIDPrefix     = "ak-"
	TokenSecretPrefix = "as-"
	TokenMinLength    = 10
)

func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username cannot be empty", ErrValidation)
	}
	if len(username) < UsernameMinLength {
		return fmt.Errorf("%w: username must be at least %d characters", ErrValidation, UsernameMinLength)
	}
	if len(username) > UsernameMaxLength {
		return fmt.Errorf("%w: username must be at most %d characters", ErrValidation, UsernameMaxLength)
	}

	for _, r := range username {
		if !isUsernameRune(r) {
			return fmt.Errorf("%w: username can only contain letters, numbers, underscore, and hyphen", ErrValidation)
		}
	}

	return nil
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	default:
		return false
	}
}

func ValidateTokens(tokenID, tokenSecret string) error {
	if tokenID == "" || tokenSecret == "" {
		return fmt.Errorf("%w: token id and secret cannot be empty", ErrValidation)
	}
	if !strings.HasPrefix(tokenID, TokenIDPrefix) {
		return fmt.Errorf("%w: token id must start with %q", ErrValidation, TokenIDPrefix)
	}
	if !strings.HasPrefix(tokenSecret, TokenSecretPrefix) {
		return fmt.Errorf("%w: token secret must start with %q", ErrValidation, TokenSecretPrefix)
	}
	if len(tokenID) < TokenMinLength {
		return fmt.Errorf("%w: token id is too short", ErrValidation)
	}
	if len(tokenSecret) < TokenMinLength {
		return fmt.Errorf("%w: token secret is too short", ErrValidation)
	}

	return nil
}
