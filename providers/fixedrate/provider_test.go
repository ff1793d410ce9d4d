package fixedrate

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-onboard/core"
)

func newTestHooks(t *testing.T, cfg Config) *Hooks {
	t.Helper()
	hooks, err := New(cfg)
	if err != nil {
		t.Fatalf("new hooks: %v", err)
	}
	return hooks
}

func TestAuthorise_RejectsMissingCredentials(t *testing.T) {
	hooks := newTestHooks(t, Config{})

	result, err := hooks.Authorise(context.Background(), map[string]any{"username": "kwh"})
	if err != nil {
		t.Fatalf("authorise: %v", err)
	}
	if result.Success {
		t.Fatalf("expected rejection without a password")
	}
	if !strings.Contains(result.Error, "password") {
		t.Fatalf("expected the missing field in the error, got %q", result.Error)
	}
}

func TestAuthorise_IssuesSessionReference(t *testing.T) {
	hooks := newTestHooks(t, Config{})

	result, err := hooks.Authorise(context.Background(), map[string]any{
		"username": "kwh",
		"password": "secret",
	})
	if err != nil {
		t.Fatalf("authorise: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Reference["session_id"] == "" {
		t.Fatalf("expected a session reference: %#v", result.Reference)
	}
	if result.Reference["account"] != "kwh" {
		t.Fatalf("expected the account identifier in the reference: %#v", result.Reference)
	}
}

func TestCaptureAndConvert_ProduceValidDraft(t *testing.T) {
	hooks := newTestHooks(t, Config{DisplayName: "Standard Variable", Rate: 0.31})

	capture, err := hooks.Capture(context.Background(), map[string]any{"session_id": "sess_1"})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if capture.Error != "" {
		t.Fatalf("unexpected capture error: %q", capture.Error)
	}

	draft, err := hooks.Convert(capture.Tariff)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if err := draft.Validate(); err != nil {
		t.Fatalf("draft validation: %v", err)
	}

	if draft.DisplayName != "Standard Variable" {
		t.Fatalf("unexpected display name: %q", draft.DisplayName)
	}
	if draft.ReferenceID != "sess_1" || draft.ProviderTariffReference != "sess_1" {
		t.Fatalf("session reference not threaded: %+v", draft)
	}
	if draft.Direction != core.DirectionImport || draft.ConnectionType != core.ConnectionTypeDirect {
		t.Fatalf("unexpected contract shape: %+v", draft)
	}
	if draft.ContractEndDate == "" {
		t.Fatalf("expected a contract end date")
	}

	if len(draft.Data) != 1 || len(draft.Data[0].DaysAndHours) != 1 {
		t.Fatalf("expected one all-week schedule, got %+v", draft.Data)
	}
	span := draft.Data[0].DaysAndHours[0]
	if len(span.Days) != 7 {
		t.Fatalf("expected all seven days, got %v", span.Days)
	}
	if len(span.Hours) != 1 || len(span.Hours[0].Rate) != 1 {
		t.Fatalf("expected one flat rate band, got %+v", span.Hours)
	}
	if span.Hours[0].Rate[0].Value != 0.31 {
		t.Fatalf("unexpected rate: %v", span.Hours[0].Rate[0].Value)
	}
	if span.Hours[0].Rate[0].ToKwh != nil {
		t.Fatalf("flat band must be open ended")
	}
}

func TestCapture_RequiresSessionReference(t *testing.T) {
	hooks := newTestHooks(t, Config{})

	capture, err := hooks.Capture(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if capture.Error == "" {
		t.Fatalf("expected a capture error without a session reference")
	}
}

func TestConvert_RejectsForeignPayload(t *testing.T) {
	hooks := newTestHooks(t, Config{})

	if _, err := hooks.Convert("not a tariff"); err == nil {
		t.Fatalf("expected an error for a non-map payload")
	}
	if _, err := hooks.Convert(map[string]any{"display_name": "x"}); err == nil {
		t.Fatalf("expected an error for a payload without a rate")
	}
}
