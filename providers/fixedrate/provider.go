package fixedrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-onboard/core"
	"github.com/google/uuid"
)

const (
	ProviderID         = "fixedrate"
	DefaultDisplayName = "Fixed Rate Tariff"
	DefaultTimezone    = "Europe/London"
	DefaultRate        = 0.28
)

var allDays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var allMonths = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Config shapes the single flat-rate tariff the pack hands back for every
// account. RequiredFields lists the credential keys Authorise expects.
type Config struct {
	DisplayName    string
	Timezone       string
	Rate           float64
	ContractMonths int
	RequiredFields []string
}

func DefaultConfig() Config {
	return Config{
		DisplayName:    DefaultDisplayName,
		Timezone:       DefaultTimezone,
		Rate:           DefaultRate,
		ContractMonths: 12,
		RequiredFields: []string{"username", "password"},
	}
}

// Hooks is a reference integration pack: the provider account is assumed to
// hold one flat import tariff, so capture needs no upstream calls.
type Hooks struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) (*Hooks, error) {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.DisplayName) == "" {
		cfg.DisplayName = defaults.DisplayName
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = defaults.Timezone
	}
	if cfg.Rate <= 0 {
		cfg.Rate = defaults.Rate
	}
	if cfg.ContractMonths <= 0 {
		cfg.ContractMonths = defaults.ContractMonths
	}
	if len(cfg.RequiredFields) == 0 {
		cfg.RequiredFields = defaults.RequiredFields
	}
	return &Hooks{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (h *Hooks) Authorise(_ context.Context, credentials map[string]any) (core.AuthoriseResult, error) {
	for _, field := range h.cfg.RequiredFields {
		if credentialString(credentials, field) == "" {
			return core.AuthoriseResult{
				Success: false,
				Error:   fmt.Sprintf("%s is required", field),
			}, nil
		}
	}

	reference := map[string]any{
		"session_id": uuid.NewString(),
		"account":    credentialString(credentials, h.cfg.RequiredFields[0]),
	}
	return core.AuthoriseResult{Success: true, Reference: reference}, nil
}

func (h *Hooks) Capture(_ context.Context, reference map[string]any) (core.CaptureResult, error) {
	sessionID := credentialString(reference, "session_id")
	if sessionID == "" {
		return core.CaptureResult{Error: "session reference is missing"}, nil
	}

	contractEnd := h.now().AddDate(0, h.cfg.ContractMonths, 0)
	tariff := map[string]any{
		"display_name":      h.cfg.DisplayName,
		"timezone":          h.cfg.Timezone,
		"rate":              h.cfg.Rate,
		"reporting_id":      sessionID,
		"contract_end_date": contractEnd.Format(time.RFC3339),
	}
	return core.CaptureResult{Tariff: tariff}, nil
}

func (h *Hooks) Convert(tariff any) (core.TariffDraft, error) {
	payload, ok := tariff.(map[string]any)
	if !ok {
		return core.TariffDraft{}, fmt.Errorf("fixedrate: unexpected tariff payload %T", tariff)
	}

	rate, ok := payload["rate"].(float64)
	if !ok || rate <= 0 {
		return core.TariffDraft{}, fmt.Errorf("fixedrate: tariff payload has no rate")
	}
	displayName := credentialString(payload, "display_name")
	if displayName == "" {
		displayName = h.cfg.DisplayName
	}
	timezone := credentialString(payload, "timezone")
	if timezone == "" {
		timezone = h.cfg.Timezone
	}

	draft := core.TariffDraft{
		DisplayName:             displayName,
		ReferenceID:             credentialString(payload, "reporting_id"),
		Timezone:                timezone,
		ContractEndDate:         credentialString(payload, "contract_end_date"),
		IntegrationInstance:     ProviderID,
		ProviderTariffReference: credentialString(payload, "reporting_id"),
		Direction:               core.DirectionImport,
		ConnectionType:          core.ConnectionTypeDirect,
		Data: []core.SchedulePeriod{
			{
				Months: allMonths,
				DaysAndHours: []core.DaySpan{
					{
						Days: allDays,
						Hours: []core.HoursRate{
							{
								ValidFrom: "00:00:00",
								ValidTo:   "23:59:59",
								Rate:      []core.RateBand{{Value: rate}},
							},
						},
					},
				},
			},
		},
	}
	return draft, nil
}

func credentialString(values map[string]any, key string) string {
	if len(values) == 0 {
		return ""
	}
	value, ok := values[key]
	if !ok || value == nil {
		return ""
	}
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

var _ core.ProviderHooks = (*Hooks)(nil)
