package devkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-onboard/core"
)

// ScriptedHooks is a configurable core.ProviderHooks fixture. Unset functions
// fall back to an always-successful pack that echoes its inputs.
type ScriptedHooks struct {
	mu sync.Mutex

	AuthoriseFn func(ctx context.Context, credentials map[string]any) (core.AuthoriseResult, error)
	CaptureFn   func(ctx context.Context, reference map[string]any) (core.CaptureResult, error)
	ConvertFn   func(tariff any) (core.TariffDraft, error)

	authoriseCalls []map[string]any
	captureCalls   []map[string]any
	convertCalls   []any
}

func NewScriptedHooks() *ScriptedHooks {
	return &ScriptedHooks{}
}

func (h *ScriptedHooks) Authorise(ctx context.Context, credentials map[string]any) (core.AuthoriseResult, error) {
	if h == nil {
		return core.AuthoriseResult{}, fmt.Errorf("devkit: scripted hooks are nil")
	}
	h.mu.Lock()
	h.authoriseCalls = append(h.authoriseCalls, cloneAnyMap(credentials))
	fn := h.AuthoriseFn
	h.mu.Unlock()

	if fn != nil {
		return fn(ctx, credentials)
	}
	return core.AuthoriseResult{
		Success:   true,
		Reference: map[string]any{"session_id": "devkit_session"},
	}, nil
}

func (h *ScriptedHooks) Capture(ctx context.Context, reference map[string]any) (core.CaptureResult, error) {
	if h == nil {
		return core.CaptureResult{}, fmt.Errorf("devkit: scripted hooks are nil")
	}
	h.mu.Lock()
	h.captureCalls = append(h.captureCalls, cloneAnyMap(reference))
	fn := h.CaptureFn
	h.mu.Unlock()

	if fn != nil {
		return fn(ctx, reference)
	}
	return core.CaptureResult{Tariff: map[string]any{"display_name": "Devkit Tariff"}}, nil
}

func (h *ScriptedHooks) Convert(tariff any) (core.TariffDraft, error) {
	if h == nil {
		return core.TariffDraft{}, fmt.Errorf("devkit: scripted hooks are nil")
	}
	h.mu.Lock()
	h.convertCalls = append(h.convertCalls, tariff)
	fn := h.ConvertFn
	h.mu.Unlock()

	if fn != nil {
		return fn(tariff)
	}
	return DraftFixture(), nil
}

func (h *ScriptedHooks) AuthoriseCalls() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]map[string]any(nil), h.authoriseCalls...)
}

func (h *ScriptedHooks) CaptureCalls() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]map[string]any(nil), h.captureCalls...)
}

func (h *ScriptedHooks) ConvertCalls() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]any(nil), h.convertCalls...)
}

// DraftFixture returns a minimal draft that passes core validation: one
// all-week flat-rate schedule.
func DraftFixture() core.TariffDraft {
	return core.TariffDraft{
		DisplayName:    "Devkit Tariff",
		Timezone:       "Europe/London",
		Direction:      core.DirectionImport,
		ConnectionType: core.ConnectionTypeDirect,
		Data: []core.SchedulePeriod{
			{
				Months: []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
				DaysAndHours: []core.DaySpan{
					{
						Days: []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
						Hours: []core.HoursRate{
							{
								ValidFrom: "00:00:00",
								ValidTo:   "23:59:59",
								Rate:      []core.RateBand{{Value: 0.25}},
							},
						},
					},
				},
			},
		},
	}
}

func cloneAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var _ core.ProviderHooks = (*ScriptedHooks)(nil)
