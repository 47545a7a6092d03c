package domain

import (
	"fmt"
	"strings"
	"time"
)

type AccountID int64

type Status string

const (
	StatusReady    Status = "ready"
	StatusActive   Status = "active"
	StatusDead     Status = "dead"
	StatusBuilding Status = "building"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReady, StatusActive, StatusDead, StatusBuilding:
		return true
	default:
		return false
	}
}

func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, raw)
	}

	return status, nil
}

// Account is one Modal identity. Secrets only ever hold ciphertext.
type Account struct {
	ID          AccountID
	Username    string
	Secrets     EncryptedSecrets
	Balance     float64
	Status      Status
	IsActive    bool
	SelectedGPU string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type EncryptedSecrets struct {
	TokenID     string
	TokenSecret string
}

type Credentials struct {
	TokenID     string
	TokenSecret string
}

// BelowThreshold reports whether the cached balance cannot gate a switch to this account.
func (a Account) BelowThreshold(minBalance float64) bool {
	return a.Balance < minBalance
}
