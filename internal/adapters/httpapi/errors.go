package httpapi

import (
	"errors"
	"net/http"

	"github.com/bnema/modal-accounts-cli/internal/domain"
)

type errorMapping struct {
	code     string
	status   int
	sentinel error
}

// Checked in order; the first sentinel found in the chain wins.
var errorMappings = []errorMapping{
	{code: "validation", status: http.StatusBadRequest, sentinel: domain.ErrValidation},
	{code: "insufficient_balance", status: http.StatusPaymentRequired, sentinel: domain.ErrInsufficientBalance},
	{code: "no_available_account", status: http.StatusServiceUnavailable, sentinel: domain.ErrNoAvailableAccount},
	{code: "not_found", status: http.StatusNotFound, sentinel: domain.ErrNotFound},
	{code: "duplicate", status: http.StatusConflict, sentinel: domain.ErrDuplicate},
	{code: "capacity", status: http.StatusConflict, sentinel: domain.ErrCapacity},
	{code: "active_account", status: http.StatusConflict, sentinel: domain.ErrActiveAccount},
	{code: "already_running", status: http.StatusConflict, sentinel: domain.ErrAlreadyRunning},
	{code: "not_running", status: http.StatusConflict, sentinel: domain.ErrNotRunning},
	{code: "session_busy", status: http.StatusConflict, sentinel: domain.ErrSessionBusy},
	{code: "remote_command", status: http.StatusBadGateway, sentinel: domain.ErrRemoteCommand},
	{code: "decryption", status: http.StatusInternalServerError, sentinel: domain.ErrDecryption},
}

const internalErrorCode = "internal"

func mapError(err error) (int, string) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.sentinel) {
			return mapping.status, mapping.code
		}
	}

	return http.StatusInternalServerError, internalErrorCode
}

func sentinelForCode(code string) error {
	for _, mapping := range errorMappings {
		if mapping.code == code {
			return mapping.sentinel
		}
	}

	return nil
}
