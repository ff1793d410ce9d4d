package tariffapi

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-onboard/core"
)

func apiError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(apiTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func apiWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return apiError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(apiTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func apiTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.OnboardErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return core.OnboardErrorInvalidCredentials
	case goerrors.CategoryExternal:
		return core.OnboardErrorPipelineStepFailed
	default:
		return core.OnboardErrorInternal
	}
}
