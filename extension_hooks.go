package onboard

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-onboard/core"
)

// HookPack bundles a named provider integration so downstream apps can pick
// one by configuration instead of importing provider packages directly.
type HookPack struct {
	Name  string
	Hooks core.ProviderHooks
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	hookPacks map[string]HookPack
	bundles   map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		hookPacks: map[string]HookPack{},
		bundles:   map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterHookPack(pack HookPack) error {
	if h == nil {
		return fmt.Errorf("onboard: extension hooks are nil")
	}
	name := strings.TrimSpace(strings.ToLower(pack.Name))
	if name == "" {
		return fmt.Errorf("onboard: hook pack name is required")
	}
	if pack.Hooks == nil {
		return fmt.Errorf("onboard: hook pack %q has no hooks", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.hookPacks[name]; exists {
		return fmt.Errorf("onboard: hook pack %q already registered", name)
	}
	h.hookPacks[name] = HookPack{Name: name, Hooks: pack.Hooks}
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("onboard: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("onboard: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("onboard: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("onboard: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// HookPack resolves a registered pack by name. Lookup is case insensitive.
func (h *ExtensionHooks) HookPack(name string) (HookPack, bool) {
	if h == nil {
		return HookPack{}, false
	}
	name = strings.TrimSpace(strings.ToLower(name))
	h.mu.RLock()
	defer h.mu.RUnlock()
	pack, ok := h.hookPacks[name]
	return pack, ok
}

func (h *ExtensionHooks) HookPacks() []HookPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.hookPacks))
	for name := range h.hookPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]HookPack, 0, len(names))
	for _, name := range names {
		out = append(out, h.hookPacks[name])
	}
	return out
}

// ServiceOptions turns a named pack into the options NewService expects.
func (h *ExtensionHooks) ServiceOptions(name string) ([]core.Option, error) {
	pack, ok := h.HookPack(name)
	if !ok {
		return nil, fmt.Errorf("onboard: hook pack %q is not registered", name)
	}
	return []core.Option{core.WithProviderHooks(pack.Hooks)}, nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("onboard: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
