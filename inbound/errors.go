package inbound

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-onboard/core"
)

func inboundError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func unsupportedRouteError(method string, path string) error {
	return inboundError(
		"inbound: unsupported route",
		goerrors.CategoryOperation,
		http.StatusNotFound,
		core.OnboardErrorUnsupportedRoute,
		map[string]any{"method": method, "path": path},
	)
}

// machineErrorType buckets an error for the machine endpoint's envelope:
// caller-input and collaborator faults are api_error, everything else is
// server_error.
func machineErrorType(err error) (string, int) {
	switch core.ErrorTextCode(err) {
	case core.OnboardErrorInvalidCredentials:
		return "api_error", http.StatusUnprocessableEntity
	case core.OnboardErrorAuthorisationFailed, core.OnboardErrorBadInput, core.OnboardErrorInvalidState:
		return "api_error", http.StatusBadRequest
	default:
		return "server_error", http.StatusInternalServerError
	}
}
