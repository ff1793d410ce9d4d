package core

import (
	"strings"

	"github.com/google/uuid"
)

// Flow state key names as they appear in the wire token.
const (
	StateKeyProviderID    = "provider_id"
	StateKeyProductID     = "product_id"
	StateKeyCustomerID    = "customer_id"
	StateKeyCallbackURL   = "callback_url"
	StateKeyPostalAddress = "postal_address"
	StateKeyGeoLocation   = "geo_location"
	StateKeyRequestID     = "request_id"
	StateKeyTariffID      = "tariff_id"
	StateKeyAuthMetadata  = "auth_metadata"
)

// The merge whitelist is split in three disjoint classes. Input keys may be
// supplied by the caller on any hop; generated keys are written once by the
// system; private keys never leave the server-facing token projection.
var (
	inputStateKeys = []string{
		StateKeyProviderID,
		StateKeyProductID,
		StateKeyCustomerID,
		StateKeyCallbackURL,
		StateKeyPostalAddress,
		StateKeyGeoLocation,
	}
	generatedStateKeys = []string{StateKeyRequestID, StateKeyTariffID}
	privateStateKeys   = []string{StateKeyAuthMetadata}
)

// FlowState is the whitelisted key bundle threading one onboarding flow
// across stateless requests. It is only ever mutated through Extend and the
// system write paths; the token produced by the codec is its sole
// persistence.
type FlowState struct {
	providerID    string
	productID     string
	customerID    string
	callbackURL   string
	requestID     string
	tariffID      string
	postalAddress *PostalAddress
	geoLocation   []float64
	authMetadata  map[string]any

	extensionKeys []string
	extra         map[string]any
}

// NewFlowState returns an empty state. Extension keys name additional
// provider-defined input fields that survive the merge whitelist.
func NewFlowState(extensionKeys ...string) *FlowState {
	return &FlowState{
		extensionKeys: normalizeKeys(extensionKeys),
		extra:         map[string]any{},
	}
}

func newFlowStateFromSnapshot(data map[string]any, extensionKeys []string) *FlowState {
	state := NewFlowState(extensionKeys...)
	state.Extend(data)
	state.mergeSystemKeys(data)
	return state
}

// Extend merges caller-supplied input into the state. Only input-class keys
// (and registered extension keys) are honored; everything else, including the
// generated and private key classes, is dropped.
func (s *FlowState) Extend(input map[string]any) *FlowState {
	if s == nil || len(input) == 0 {
		return s
	}
	for _, key := range inputStateKeys {
		value, ok := input[key]
		if !ok {
			continue
		}
		switch key {
		case StateKeyProviderID:
			s.providerID = stateString(value, s.providerID)
		case StateKeyProductID:
			s.productID = stateString(value, s.productID)
		case StateKeyCustomerID:
			s.customerID = stateString(value, s.customerID)
		case StateKeyCallbackURL:
			s.callbackURL = stateString(value, s.callbackURL)
		case StateKeyPostalAddress:
			if address, ok := statePostalAddress(value); ok {
				s.postalAddress = address
			}
		case StateKeyGeoLocation:
			if location, ok := stateGeoLocation(value); ok {
				s.geoLocation = location
			}
		}
	}
	for _, key := range s.extensionKeys {
		if value, ok := input[key]; ok {
			if s.extra == nil {
				s.extra = map[string]any{}
			}
			s.extra[key] = value
		}
	}
	return s
}

// mergeSystemKeys rehydrates generated and private keys from a snapshot the
// codec already validated. Not reachable from untrusted input.
func (s *FlowState) mergeSystemKeys(data map[string]any) {
	if s == nil || len(data) == 0 {
		return
	}
	if s.requestID == "" {
		s.requestID = stateString(data[StateKeyRequestID], "")
	}
	if value := stateString(data[StateKeyTariffID], ""); value != "" {
		s.tariffID = value
	}
	if metadata, ok := data[StateKeyAuthMetadata].(map[string]any); ok && len(metadata) > 0 {
		s.authMetadata = copyAnyMap(metadata)
	}
}

// EnsureRequestID assigns the request id exactly once and returns it.
func (s *FlowState) EnsureRequestID() string {
	if s == nil {
		return ""
	}
	if s.requestID == "" {
		s.requestID = uuid.NewString()
	}
	return s.requestID
}

// SetAuthMetadata records provider-authentication evidence. Presence of this
// metadata is the precondition gate for the consent step.
func (s *FlowState) SetAuthMetadata(data map[string]any) {
	if s == nil {
		return
	}
	if len(data) == 0 {
		s.authMetadata = nil
		return
	}
	s.authMetadata = copyAnyMap(data)
}

// ApplyResult folds a successful pipeline run into the state.
func (s *FlowState) ApplyResult(result PipelineResult) {
	if s == nil {
		return
	}
	if id := strings.TrimSpace(result.CustomerID); id != "" {
		s.customerID = id
	}
	if id := strings.TrimSpace(result.ProductID); id != "" {
		s.productID = id
	}
	if id := strings.TrimSpace(result.TariffID); id != "" {
		s.tariffID = id
	}
}

func (s *FlowState) ProviderID() string {
	if s == nil {
		return ""
	}
	return s.providerID
}

func (s *FlowState) ProductID() string {
	if s == nil {
		return ""
	}
	return s.productID
}

func (s *FlowState) CustomerID() string {
	if s == nil {
		return ""
	}
	return s.customerID
}

func (s *FlowState) CallbackURL() string {
	if s == nil {
		return ""
	}
	return s.callbackURL
}

func (s *FlowState) RequestID() string {
	if s == nil {
		return ""
	}
	return s.requestID
}

func (s *FlowState) TariffID() string {
	if s == nil {
		return ""
	}
	return s.tariffID
}

// Authorised reports whether the authorization step has recorded provider
// evidence on this state.
func (s *FlowState) Authorised() bool {
	return s != nil && len(s.authMetadata) > 0
}

func (s *FlowState) PostalAddress() *PostalAddress {
	if s == nil || s.postalAddress == nil {
		return nil
	}
	address := *s.postalAddress
	return &address
}

func (s *FlowState) GeoLocation() []float64 {
	if s == nil {
		return nil
	}
	return append([]float64(nil), s.geoLocation...)
}

func (s *FlowState) AuthMetadata() map[string]any {
	if s == nil || s.authMetadata == nil {
		return nil
	}
	return copyAnyMap(s.authMetadata)
}

// Extension returns a registered provider-defined field.
func (s *FlowState) Extension(key string) (any, bool) {
	if s == nil || s.extra == nil {
		return nil, false
	}
	value, ok := s.extra[key]
	return value, ok
}

// Public returns a projection with the private key class removed, safe to
// embed in pages that echo the token back to the browser.
func (s *FlowState) Public() *FlowState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.authMetadata = nil
	clone.geoLocation = append([]float64(nil), s.geoLocation...)
	clone.extra = copyAnyMap(s.extra)
	clone.extensionKeys = append([]string(nil), s.extensionKeys...)
	if s.postalAddress != nil {
		address := *s.postalAddress
		clone.postalAddress = &address
	}
	return &clone
}

// Snapshot renders the state as the wire map the codec serializes. Empty
// fields are omitted entirely.
func (s *FlowState) Snapshot() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	data := map[string]any{
		StateKeyProviderID: s.providerID,
	}
	if s.productID != "" {
		data[StateKeyProductID] = s.productID
	}
	if s.customerID != "" {
		data[StateKeyCustomerID] = s.customerID
	}
	if s.callbackURL != "" {
		data[StateKeyCallbackURL] = s.callbackURL
	}
	if s.requestID != "" {
		data[StateKeyRequestID] = s.requestID
	}
	if s.tariffID != "" {
		data[StateKeyTariffID] = s.tariffID
	}
	if s.postalAddress != nil && !s.postalAddress.IsZero() {
		data[StateKeyPostalAddress] = postalAddressMap(*s.postalAddress)
	}
	if len(s.geoLocation) > 0 {
		data[StateKeyGeoLocation] = append([]float64(nil), s.geoLocation...)
	}
	if len(s.authMetadata) > 0 {
		data[StateKeyAuthMetadata] = copyAnyMap(s.authMetadata)
	}
	for key, value := range s.extra {
		data[key] = value
	}
	return data
}

func stateString(value any, fallback string) string {
	text, ok := value.(string)
	if !ok {
		return fallback
	}
	return strings.TrimSpace(text)
}

func statePostalAddress(value any) (*PostalAddress, bool) {
	switch typed := value.(type) {
	case *PostalAddress:
		if typed == nil {
			return nil, false
		}
		address := *typed
		return &address, true
	case PostalAddress:
		return &typed, true
	case map[string]any:
		address := PostalAddress{
			Address1:    stateString(typed["address_line1"], ""),
			Address2:    stateString(typed["address_line2"], ""),
			City:        stateString(typed["city"], ""),
			State:       stateString(typed["state"], ""),
			PostCode:    stateString(typed["post_code"], ""),
			CountryCode: stateString(typed["country_code"], ""),
		}
		if address.IsZero() {
			return nil, false
		}
		return &address, true
	}
	return nil, false
}

func stateGeoLocation(value any) ([]float64, bool) {
	switch typed := value.(type) {
	case []float64:
		return append([]float64(nil), typed...), true
	case []any:
		location := make([]float64, 0, len(typed))
		for _, element := range typed {
			number, ok := element.(float64)
			if !ok {
				return nil, false
			}
			location = append(location, number)
		}
		return location, true
	}
	return nil, false
}

func postalAddressMap(address PostalAddress) map[string]any {
	data := map[string]any{}
	if address.Address1 != "" {
		data["address_line1"] = address.Address1
	}
	if address.Address2 != "" {
		data["address_line2"] = address.Address2
	}
	if address.City != "" {
		data["city"] = address.City
	}
	if address.State != "" {
		data["state"] = address.State
	}
	if address.PostCode != "" {
		data["post_code"] = address.PostCode
	}
	if address.CountryCode != "" {
		data["country_code"] = address.CountryCode
	}
	return data
}

func normalizeKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(strings.ToLower(key))
		if key == "" || isReservedStateKey(key) {
			continue
		}
		normalized = append(normalized, key)
	}
	return normalized
}

func isReservedStateKey(key string) bool {
	for _, reserved := range inputStateKeys {
		if key == reserved {
			return true
		}
	}
	for _, reserved := range generatedStateKeys {
		if key == reserved {
			return true
		}
	}
	for _, reserved := range privateStateKeys {
		if key == reserved {
			return true
		}
	}
	return false
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
