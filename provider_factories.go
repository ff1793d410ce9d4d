package onboard

import (
	"github.com/goliatone/go-onboard/core"
	"github.com/goliatone/go-onboard/providers/fixedrate"
)

func FixedRateHooks(cfg fixedrate.Config) (core.ProviderHooks, error) {
	return fixedrate.New(cfg)
}

// DefaultExtensionHooks returns a registry preloaded with the provider packs
// shipped in this module.
func DefaultExtensionHooks() (*ExtensionHooks, error) {
	hooks := NewExtensionHooks()

	fixed, err := FixedRateHooks(fixedrate.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := hooks.RegisterHookPack(HookPack{
		Name:  fixedrate.ProviderID,
		Hooks: fixed,
	}); err != nil {
		return nil, err
	}

	return hooks, nil
}
