package onboard

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	onboardcommand "github.com/goliatone/go-onboard/command"
	"github.com/goliatone/go-onboard/core"
	onboardquery "github.com/goliatone/go-onboard/query"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	svc := &stubFacadeService{}
	activityReader := &stubFacadeActivityReader{}

	facade, err := NewFacade(svc,
		WithActivityReader(activityReader),
		WithStateDecoder(core.NewStateCodec()),
	)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.StartFlow == nil || commands.AuthoriseFlow == nil ||
		commands.ConnectFlow == nil || commands.CancelFlow == nil ||
		commands.PlanTariff == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.ListActivity == nil || queries.InspectState == nil {
		t.Fatalf("expected query handlers to be wired")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	svc := &stubFacadeService{}
	activityReader := &stubFacadeActivityReader{
		page: core.ActivityPage{
			Items: []core.ActivityEntry{{Operation: "start_flow"}},
			Total: 1,
		},
	}
	codec := core.NewStateCodec()

	facade, err := NewFacade(svc,
		WithActivityReader(activityReader),
		WithStateDecoder(codec),
	)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.FlowOutcome]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().StartFlow.Execute(ctx, onboardcommand.StartFlowMessage{
		Request: core.FlowRequest{Authorization: "pk_test", Token: "tok_1"},
	}); err != nil {
		t.Fatalf("execute start flow command: %v", err)
	}
	if svc.lastStart.Authorization != "pk_test" || svc.lastStart.Token != "tok_1" {
		t.Fatalf("unexpected start flow delegation payload: %#v", svc.lastStart)
	}
	if out, ok := collector.Load(); !ok || out.RedirectTo != "/auth" {
		t.Fatalf("unexpected stored start flow outcome: %#v", out)
	}

	page, err := facade.Queries().ListActivity.Query(context.Background(), onboardquery.ListActivityMessage{
		Filter: core.ActivityFilter{Operation: "start_flow", Page: 1, PerPage: 20},
	})
	if err != nil {
		t.Fatalf("query list activity: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("unexpected activity page result: %#v", page)
	}
	if activityReader.lastFilter.Operation != "start_flow" {
		t.Fatalf("unexpected activity filter: %#v", activityReader.lastFilter)
	}

	state := codec.NewState().Extend(map[string]any{"provider_id": "prv_1"})
	token, err := codec.Encode(state)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	snapshot, err := facade.Queries().InspectState.Query(context.Background(), onboardquery.InspectStateMessage{
		Token: token,
	})
	if err != nil {
		t.Fatalf("query inspect state: %v", err)
	}
	if snapshot["provider_id"] != "prv_1" {
		t.Fatalf("unexpected state snapshot: %#v", snapshot)
	}
}

func TestNewFacade_ResolvesActivityReaderFromSource(t *testing.T) {
	svc := &stubFacadeService{}
	reader := &stubFacadeActivityReader{page: core.ActivityPage{Total: 3}}

	facade, err := NewFacade(svc, WithActivitySource(stubActivitySource{reader: reader}))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	page, err := facade.Queries().ListActivity.Query(context.Background(), onboardquery.ListActivityMessage{})
	if err != nil {
		t.Fatalf("query list activity: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected reader resolved from source, got %#v", page)
	}
}

func TestNewFacade_ResolvesStateDecoderFromService(t *testing.T) {
	codec := core.NewStateCodec()
	svc := &codecFacadeService{codec: codec}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	state := codec.NewState().Extend(map[string]any{"provider_id": "prov_1"})
	token, err := codec.Encode(state)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	snapshot, err := facade.Queries().InspectState.Query(context.Background(), onboardquery.InspectStateMessage{
		Token: token,
	})
	if err != nil {
		t.Fatalf("expected decoder resolved from service codec: %v", err)
	}
	if snapshot["provider_id"] != "prov_1" {
		t.Fatalf("unexpected snapshot from service codec: %#v", snapshot)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

type stubFacadeService struct {
	lastStart  core.FlowRequest
	lastCancel core.FlowRequest
}

func (s *stubFacadeService) StartFlow(_ context.Context, req core.FlowRequest) (core.FlowOutcome, error) {
	s.lastStart = req
	return core.FlowOutcome{RedirectTo: "/auth", Token: "tok_out"}, nil
}

func (s *stubFacadeService) AuthoriseFlow(context.Context, core.FlowRequest) (core.FlowOutcome, error) {
	return core.FlowOutcome{RedirectTo: "/share"}, nil
}

func (s *stubFacadeService) ConnectFlow(context.Context, core.FlowRequest) (core.FlowOutcome, error) {
	return core.FlowOutcome{Page: core.PageSuccess}, nil
}

func (s *stubFacadeService) CancelFlow(_ context.Context, req core.FlowRequest) (core.FlowOutcome, error) {
	s.lastCancel = req
	return core.FlowOutcome{Page: core.PageCancel}, nil
}

func (s *stubFacadeService) TariffPlan(context.Context, core.TariffPlanInput) (core.TariffDraft, error) {
	return core.TariffDraft{DisplayName: "Stub Tariff"}, nil
}

type codecFacadeService struct {
	stubFacadeService
	codec *core.StateCodec
}

func (s *codecFacadeService) Codec() *core.StateCodec {
	return s.codec
}

type stubFacadeActivityReader struct {
	page       core.ActivityPage
	lastFilter core.ActivityFilter
}

func (r *stubFacadeActivityReader) List(_ context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	r.lastFilter = filter
	return r.page, nil
}

type stubActivitySource struct {
	reader *stubFacadeActivityReader
}

func (s stubActivitySource) ActivityStore() *stubFacadeActivityReader {
	return s.reader
}
