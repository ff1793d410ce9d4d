package onboard

import (
	"testing"

	"github.com/goliatone/go-onboard/providers/devkit"
)

func TestExtensionHooks_RegisterAndResolveHookPacks(t *testing.T) {
	hooks := NewExtensionHooks()
	pack := HookPack{
		Name:  "Downstream-Pack",
		Hooks: devkit.NewScriptedHooks(),
	}
	if err := hooks.RegisterHookPack(pack); err != nil {
		t.Fatalf("register hook pack: %v", err)
	}
	if err := hooks.RegisterHookPack(pack); err == nil {
		t.Fatalf("expected duplicate hook pack registration error")
	}
	if err := hooks.RegisterHookPack(HookPack{Name: "empty"}); err == nil {
		t.Fatalf("expected missing hooks registration error")
	}

	resolved, ok := hooks.HookPack("downstream-pack")
	if !ok || resolved.Hooks == nil {
		t.Fatalf("expected case-insensitive hook pack lookup")
	}

	options, err := hooks.ServiceOptions("downstream-pack")
	if err != nil {
		t.Fatalf("service options: %v", err)
	}
	if len(options) != 1 {
		t.Fatalf("expected one service option, got %d", len(options))
	}
	if _, err := hooks.ServiceOptions("missing"); err == nil {
		t.Fatalf("expected unknown hook pack error")
	}
}

func TestExtensionHooks_BuildCommandQueryBundles(t *testing.T) {
	hooks := NewExtensionHooks()

	if err := hooks.RegisterCommandQueryBundle("flow_bundle", func(service CommandQueryService) (any, error) {
		return map[string]any{
			"start_fn":  service.StartFlow,
			"cancel_fn": service.CancelFlow,
		}, nil
	}); err != nil {
		t.Fatalf("register bundle: %v", err)
	}
	if err := hooks.RegisterCommandQueryBundle("flow_bundle", func(CommandQueryService) (any, error) {
		return nil, nil
	}); err == nil {
		t.Fatalf("expected duplicate bundle registration error")
	}
	if err := hooks.RegisterCommandQueryBundle("", func(CommandQueryService) (any, error) {
		return nil, nil
	}); err == nil {
		t.Fatalf("expected missing bundle name error")
	}

	svc := &stubFacadeService{}
	bundles, err := hooks.BuildCommandQueryBundles(svc)
	if err != nil {
		t.Fatalf("build bundles: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("expected one bundle, got %d", len(bundles))
	}
	if _, ok := bundles["flow_bundle"]; !ok {
		t.Fatalf("expected flow_bundle entry, got %#v", bundles)
	}
	if names := hooks.BundleNames(); len(names) != 1 || names[0] != "flow_bundle" {
		t.Fatalf("unexpected bundle names: %#v", names)
	}

	if _, err := hooks.BuildCommandQueryBundles(nil); err == nil {
		t.Fatalf("expected nil service error")
	}
}

func TestExtensionHooks_HookPacksAreSorted(t *testing.T) {
	hooks := NewExtensionHooks()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := hooks.RegisterHookPack(HookPack{
			Name:  name,
			Hooks: devkit.NewScriptedHooks(),
		}); err != nil {
			t.Fatalf("register hook pack %q: %v", name, err)
		}
	}

	packs := hooks.HookPacks()
	if len(packs) != 3 {
		t.Fatalf("expected three hook packs, got %d", len(packs))
	}
	if packs[0].Name != "alpha" || packs[1].Name != "mid" || packs[2].Name != "zeta" {
		t.Fatalf("expected sorted hook packs, got %#v", packs)
	}
}
