package devkit

import (
	"context"
	"fmt"

	"github.com/goliatone/go-onboard/core"
)

// ValidateHooksConformance drives a provider pack through the full hook
// chain with the given credentials: authorise, capture with the issued
// reference, convert, and draft validation. A pack that passes here behaves
// correctly inside the onboarding flow.
func ValidateHooksConformance(
	ctx context.Context,
	hooks core.ProviderHooks,
	credentials map[string]any,
) error {
	if hooks == nil {
		return fmt.Errorf("devkit: provider hooks are required")
	}

	authorised, err := hooks.Authorise(ctx, credentials)
	if err != nil {
		return fmt.Errorf("devkit: authorise: %w", err)
	}
	if !authorised.Success {
		return fmt.Errorf("devkit: authorise rejected the credentials: %s", authorised.Error)
	}

	captured, err := hooks.Capture(ctx, authorised.Reference)
	if err != nil {
		return fmt.Errorf("devkit: capture: %w", err)
	}
	if captured.Error != "" {
		return fmt.Errorf("devkit: capture failed: %s", captured.Error)
	}
	if captured.Tariff == nil {
		return fmt.Errorf("devkit: capture returned no tariff payload")
	}

	draft, err := hooks.Convert(captured.Tariff)
	if err != nil {
		return fmt.Errorf("devkit: convert: %w", err)
	}
	if err := draft.Validate(); err != nil {
		return fmt.Errorf("devkit: converted draft is invalid: %w", err)
	}
	return nil
}
