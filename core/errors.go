package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	OnboardErrorMissingAuthorization = "ONBOARD_MISSING_AUTHORIZATION"
	OnboardErrorMissingState         = "ONBOARD_MISSING_STATE"
	OnboardErrorInvalidState         = "ONBOARD_INVALID_STATE"
	OnboardErrorInvalidCredentials   = "ONBOARD_INVALID_CREDENTIALS"
	OnboardErrorAuthorisationFailed  = "ONBOARD_AUTHORISATION_FAILED"
	OnboardErrorPipelineStepFailed   = "ONBOARD_PIPELINE_STEP_FAILED"
	OnboardErrorUnsupportedRoute     = "ONBOARD_UNSUPPORTED_ROUTE"
	OnboardErrorBadInput             = "ONBOARD_BAD_INPUT"
	OnboardErrorInternal             = "ONBOARD_INTERNAL_ERROR"
)

func onboardErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureOnboardErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "authorization is required"), strings.Contains(msg, "credential proof"):
		return newOnboardError(err.Error(), goerrors.CategoryAuthz, OnboardErrorMissingAuthorization)
	case strings.Contains(msg, "state token"):
		return newOnboardError(err.Error(), goerrors.CategoryBadInput, OnboardErrorInvalidState)
	case strings.Contains(msg, "pipeline"):
		return newOnboardError(err.Error(), goerrors.CategoryExternal, OnboardErrorPipelineStepFailed)
	case strings.Contains(msg, "authorisation"), strings.Contains(msg, "authorise"):
		return newOnboardError(err.Error(), goerrors.CategoryAuth, OnboardErrorAuthorisationFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newOnboardError(err.Error(), goerrors.CategoryBadInput, OnboardErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureOnboardErrorEnvelope(mapped)
}

func newOnboardError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureOnboardErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureOnboardErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = onboardHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultOnboardTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultOnboardTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return OnboardErrorBadInput
	case goerrors.CategoryAuth:
		return OnboardErrorAuthorisationFailed
	case goerrors.CategoryAuthz:
		return OnboardErrorInvalidCredentials
	case goerrors.CategoryNotFound, goerrors.CategoryOperation:
		return OnboardErrorUnsupportedRoute
	case goerrors.CategoryExternal:
		return OnboardErrorPipelineStepFailed
	default:
		return OnboardErrorInternal
	}
}

func onboardHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound, goerrors.CategoryOperation:
		return http.StatusNotFound
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorTextCode extracts the taxonomy code from any error produced by this
// module; unknown errors report as internal.
func ErrorTextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && strings.TrimSpace(richErr.TextCode) != "" {
		return richErr.TextCode
	}
	return OnboardErrorInternal
}

// ErrorHTTPStatus resolves the HTTP status an error should surface with.
func ErrorHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code != 0 {
			return richErr.Code
		}
		return onboardHTTPStatus(richErr.Category)
	}
	return http.StatusInternalServerError
}

func missingAuthorizationError() error {
	return goerrors.New("core: credential proof is required", goerrors.CategoryAuthz).
		WithCode(http.StatusForbidden).
		WithTextCode(OnboardErrorMissingAuthorization)
}

func missingStateError() error {
	return goerrors.New("core: state token is required", goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(OnboardErrorMissingState)
}

func invalidStateError(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryBadInput, "core: failed to parse state token").
		WithCode(http.StatusBadRequest).
		WithTextCode(OnboardErrorInvalidState)
}

func invalidCredentialsError(source error) error {
	if source == nil {
		return goerrors.New("core: invalid credentials", goerrors.CategoryAuthz).
			WithCode(http.StatusForbidden).
			WithTextCode(OnboardErrorInvalidCredentials)
	}
	return goerrors.Wrap(source, goerrors.CategoryAuthz, "core: invalid credentials").
		WithCode(http.StatusForbidden).
		WithTextCode(OnboardErrorInvalidCredentials)
}

func authorisationFailedError(reason string) error {
	message := strings.TrimSpace(reason)
	if message == "" {
		message = "Authorisation failed"
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(OnboardErrorAuthorisationFailed)
}

func pipelineStepError(step string, source error) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, fmt.Sprintf("core: pipeline step %s failed", step)).
		WithCode(http.StatusBadGateway).
		WithTextCode(OnboardErrorPipelineStepFailed).
		WithMetadata(map[string]any{"step": step})
}
