package onboard_test

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"

	gocmd "github.com/goliatone/go-command"
	onboard "github.com/goliatone/go-onboard"
	onboardcommand "github.com/goliatone/go-onboard/command"
	"github.com/goliatone/go-onboard/core"
	"github.com/goliatone/go-onboard/providers/devkit"
	"github.com/goliatone/go-onboard/providers/fixedrate"
	onboardquery "github.com/goliatone/go-onboard/query"
)

// memoryActivity is both the recorder the service writes to and the reader
// the facade queries, so the test exercises the full audit loop in memory.
type memoryActivity struct {
	mu      sync.Mutex
	entries []core.ActivityEntry
}

func (m *memoryActivity) Record(_ context.Context, entry core.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryActivity) List(_ context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]core.ActivityEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		if filter.Operation != "" && entry.Operation != filter.Operation {
			continue
		}
		items = append(items, entry)
	}
	return core.ActivityPage{Items: items, Total: len(items)}, nil
}

func TestDownstreamComposition_RunsFlowThroughPublicSurfaceOnly(t *testing.T) {
	billing := devkit.NewFakeBilling().
		SeedAccount(core.Account{ID: "acc_compose", LiveMode: false}).
		SeedProvider(core.Provider{ID: fixedrate.ProviderID, DisplayName: "Fixed Rate Tariff"})

	hooks, err := onboard.FixedRateHooks(fixedrate.DefaultConfig())
	if err != nil {
		t.Fatalf("fixed rate hooks: %v", err)
	}

	activity := &memoryActivity{}
	svc, err := onboard.NewService(onboard.DefaultConfig(),
		onboard.WithBillingAPI(billing),
		onboard.WithProviderHooks(hooks),
		onboard.WithActivityRecorder(activity),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	facade, err := onboard.NewFacade(svc, onboard.WithActivityReader(activity))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	proof := base64.StdEncoding.EncodeToString([]byte("pk_compose:sk_secret"))
	state := svc.Codec().NewState().Extend(map[string]any{
		"provider_id": fixedrate.ProviderID,
	})
	token, err := svc.Codec().Encode(state)
	if err != nil {
		t.Fatalf("encode seed token: %v", err)
	}

	runCommand := func(t *testing.T, execute func(ctx context.Context) error) core.FlowOutcome {
		t.Helper()
		collector := gocmd.NewResult[core.FlowOutcome]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := execute(ctx); err != nil {
			t.Fatalf("execute command: %v", err)
		}
		out, ok := collector.Load()
		if !ok {
			t.Fatalf("no outcome stored for command")
		}
		return out
	}

	start := runCommand(t, func(ctx context.Context) error {
		return facade.Commands().StartFlow.Execute(ctx, onboardcommand.StartFlowMessage{
			Request: core.FlowRequest{
				Authorization: proof,
				Token:         token,
				Input:         map[string]any{"callback_url": "https://example.com/done"},
			},
		})
	})
	if start.RedirectTo != "/auth" || start.Token == "" {
		t.Fatalf("unexpected start outcome: %#v", start)
	}

	authorised := runCommand(t, func(ctx context.Context) error {
		return facade.Commands().AuthoriseFlow.Execute(ctx, onboardcommand.AuthoriseFlowMessage{
			Request: core.FlowRequest{
				Authorization: proof,
				Token:         start.Token,
				Input: map[string]any{
					"username": "meter_owner",
					"password": "hunter2",
				},
			},
		})
	})
	if authorised.RedirectTo != "/share" {
		t.Fatalf("expected share redirect after authorise, got %#v", authorised)
	}

	connected := runCommand(t, func(ctx context.Context) error {
		return facade.Commands().ConnectFlow.Execute(ctx, onboardcommand.ConnectFlowMessage{
			Request: core.FlowRequest{
				Authorization: proof,
				Token:         authorised.Token,
			},
		})
	})
	if connected.Page != core.PageSuccess {
		t.Fatalf("expected success page after connect, got %#v", connected)
	}
	if connected.Result == nil || connected.Result.TariffID == "" {
		t.Fatalf("expected pipeline result with tariff id, got %#v", connected.Result)
	}
	if _, ok := billing.Product(connected.Result.ProductID); !ok {
		t.Fatalf("expected product %q provisioned in billing", connected.Result.ProductID)
	}
	if _, ok := billing.Tariff(connected.Result.TariffID); !ok {
		t.Fatalf("expected tariff %q provisioned in billing", connected.Result.TariffID)
	}

	snapshot, err := facade.Queries().InspectState.Query(context.Background(), onboardquery.InspectStateMessage{
		Token: connected.Token,
	})
	if err != nil {
		t.Fatalf("inspect final state: %v", err)
	}
	if snapshot["tariff_id"] != connected.Result.TariffID {
		t.Fatalf("expected tariff id in final state snapshot, got %#v", snapshot)
	}
	if _, ok := snapshot["auth_metadata"]; ok {
		t.Fatalf("auth metadata leaked into public snapshot: %#v", snapshot)
	}

	page, err := facade.Queries().ListActivity.Query(context.Background(), onboardquery.ListActivityMessage{
		Filter: core.ActivityFilter{Operation: "flow_connect"},
	})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if page.Total != 1 || page.Items[0].Outcome != "success" {
		t.Fatalf("expected one successful flow_connect entry, got %#v", page)
	}
	if page.Items[0].ProviderID != fixedrate.ProviderID {
		t.Fatalf("expected provider id on activity entry, got %#v", page.Items[0])
	}
}
