package core

import (
	"fmt"
	"regexp"
	"strings"
)

type ContractDirection string

const (
	DirectionImport ContractDirection = "IMPORT"
	DirectionExport ContractDirection = "EXPORT"
)

type ConnectionType string

const (
	ConnectionTypeDirect  ConnectionType = "DIRECT"
	ConnectionTypeMarket  ConnectionType = "MARKET"
	ConnectionTypeLibrary ConnectionType = "LIBRARY"
)

// LanguageAsset holds the display strings an account or provider publishes
// for a single language.
type LanguageAsset struct {
	DisplayName string `json:"display_name,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	PrivacyURL  string `json:"privacy_url,omitempty"`
	TermsURL    string `json:"terms_url,omitempty"`
	SupportURL  string `json:"support_url,omitempty"`
}

type DisplaySettings struct {
	Default     LanguageAsset `json:"default_language_asset,omitempty"`
	AccentColor string        `json:"accent_color,omitempty"`
}

const defaultAccentColor = "#333333"

func (s DisplaySettings) Accent() string {
	if strings.TrimSpace(s.AccentColor) == "" {
		return defaultAccentColor
	}
	return s.AccentColor
}

type Account struct {
	ID              string          `json:"id"`
	LiveMode        bool            `json:"live_mode"`
	DisplaySettings DisplaySettings `json:"display_settings,omitempty"`
}

type Provider struct {
	ID              string          `json:"id"`
	CodeName        string          `json:"code_name,omitempty"`
	DisplayName     string          `json:"display_name,omitempty"`
	IntegrationType string          `json:"integration_type,omitempty"`
	LiveMode        bool            `json:"live_mode"`
	DisplaySettings DisplaySettings `json:"display_settings,omitempty"`
}

type PostalAddress struct {
	Address1    string `json:"address_line1,omitempty"`
	Address2    string `json:"address_line2,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostCode    string `json:"post_code,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

func (a *PostalAddress) IsZero() bool {
	return a == nil || *a == PostalAddress{}
}

type Customer struct {
	ID         string `json:"id"`
	Reference  string `json:"reference,omitempty"`
	IsDisabled bool   `json:"is_disabled"`
}

type CustomerCreate struct {
	Reference  string `json:"reference,omitempty"`
	IsDisabled bool   `json:"is_disabled"`
}

// AuthMetadataEnvelope carries provider-authentication evidence keyed by the
// provider reference it was captured for.
type AuthMetadataEnvelope struct {
	ReferenceID string         `json:"reference_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

type TariffSettings struct {
	ReferenceID    string               `json:"reference_id,omitempty"`
	TariffID       string               `json:"tariff_id,omitempty"`
	IsDisabled     bool                 `json:"is_disabled"`
	Integrated     bool                 `json:"integrated"`
	FailedAttempts int                  `json:"failed_attempts"`
	AuthMetadata   AuthMetadataEnvelope `json:"auth_metadata,omitempty"`
}

type Product struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customer_id,omitempty"`
	ProviderID      string          `json:"provider_id,omitempty"`
	Timezone        string          `json:"timezone,omitempty"`
	IsDisabled      bool            `json:"is_disabled"`
	TariffSettings  *TariffSettings `json:"tariff_settings,omitempty"`
	ContractEndDate string          `json:"contract_end_date,omitempty"`
	PostalAddress   *PostalAddress  `json:"postal_address,omitempty"`
	GeoLocation     []float64       `json:"geo_location,omitempty"`
}

type ProductCreate struct {
	CustomerID string `json:"customer_id"`
	ProviderID string `json:"provider_id"`
	Timezone   string `json:"timezone,omitempty"`
	IsDisabled bool   `json:"is_disabled"`
}

type ProductPatch struct {
	TariffSettings  *TariffSettings `json:"tariff_settings,omitempty"`
	ContractEndDate string          `json:"contract_end_date,omitempty"`
	PostalAddress   *PostalAddress  `json:"postal_address,omitempty"`
	GeoLocation     []float64       `json:"geo_location,omitempty"`
}

// RateBand prices consumption up to ToKwh; a nil ToKwh marks the open-ended
// tail band.
type RateBand struct {
	ToKwh *float64 `json:"to_kwh,omitempty"`
	Value float64  `json:"value"`
}

type HoursRate struct {
	ValidFrom string     `json:"valid_from"`
	ValidTo   string     `json:"valid_to"`
	Rate      []RateBand `json:"rate"`
}

type DaySpan struct {
	Days  []string    `json:"days"`
	Hours []HoursRate `json:"hours"`
}

type SchedulePeriod struct {
	Months       []string  `json:"months"`
	DaysAndHours []DaySpan `json:"days_and_hours"`
}

// TariffDraft is the normalized tariff produced by a provider pack's Convert
// hook, ready to be created against the billing API.
type TariffDraft struct {
	DisplayName              string            `json:"display_name"`
	ReferenceID              string            `json:"reference_id,omitempty"`
	ProductID                string            `json:"product_id,omitempty"`
	Timezone                 string            `json:"timezone,omitempty"`
	ContractEndDate          string            `json:"contract_end_date,omitempty"`
	IntegrationInstance      string            `json:"integration_instance,omitempty"`
	ProviderTariffReference  string            `json:"provider_tariff_reference,omitempty"`
	ProviderTariffExpiryDate string            `json:"provider_tariff_expiry_date,omitempty"`
	Direction                ContractDirection `json:"direction"`
	ConnectionType           ConnectionType    `json:"connection_type"`
	Data                     []SchedulePeriod  `json:"data"`
}

var clockTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d):([0-5]\d)$`)

func (d TariffDraft) Validate() error {
	if strings.TrimSpace(d.DisplayName) == "" {
		return fmt.Errorf("core: tariff display_name is required")
	}
	switch d.Direction {
	case DirectionImport, DirectionExport:
	default:
		return fmt.Errorf("core: invalid tariff direction %q", d.Direction)
	}
	switch d.ConnectionType {
	case ConnectionTypeDirect, ConnectionTypeMarket, ConnectionTypeLibrary:
	default:
		return fmt.Errorf("core: invalid tariff connection_type %q", d.ConnectionType)
	}
	for pi, period := range d.Data {
		for si, span := range period.DaysAndHours {
			for hi, hours := range span.Hours {
				if !clockTimePattern.MatchString(hours.ValidFrom) {
					return fmt.Errorf(
						"core: data[%d].days_and_hours[%d].hours[%d].valid_from must be hh:mm:ss, got %q",
						pi, si, hi, hours.ValidFrom,
					)
				}
				if !clockTimePattern.MatchString(hours.ValidTo) {
					return fmt.Errorf(
						"core: data[%d].days_and_hours[%d].hours[%d].valid_to must be hh:mm:ss, got %q",
						pi, si, hi, hours.ValidTo,
					)
				}
			}
		}
	}
	return nil
}

type Tariff struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
	ContractEndDate string `json:"contract_end_date,omitempty"`
}

// PipelineResult is folded back into the flow state after a successful
// tariff connection run.
type PipelineResult struct {
	CustomerID string `json:"customer_id"`
	ProductID  string `json:"product_id"`
	TariffID   string `json:"tariff_id"`
}

// ValidGeoLocation reports whether a geo-location carries exactly a
// latitude/longitude pair. Anything else is treated as absent, not an error.
func ValidGeoLocation(location []float64) bool {
	return len(location) == 2
}
