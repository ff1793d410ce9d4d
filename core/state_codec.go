package core

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const defaultMaxTokenBytes = 16 << 10 // 16 KiB

// StateCodec turns a FlowState into the opaque token round-tripped through
// the caller and back. The token is base64 over JSON with no signature;
// schema validation on decode is the sole structural defense, so nothing
// downstream may touch a state the codec has not accepted.
type StateCodec struct {
	extensionKeys []string
	maxTokenBytes int
}

type StateCodecOption func(*StateCodec)

// WithExtensionKeys registers provider-defined input fields the codec keeps
// through decode and the state keeps through merge.
func WithExtensionKeys(keys ...string) StateCodecOption {
	return func(c *StateCodec) {
		c.extensionKeys = normalizeKeys(keys)
	}
}

// WithMaxTokenBytes bounds the decoded payload size.
func WithMaxTokenBytes(limit int) StateCodecOption {
	return func(c *StateCodec) {
		if limit > 0 {
			c.maxTokenBytes = limit
		}
	}
}

func NewStateCodec(opts ...StateCodecOption) *StateCodec {
	codec := &StateCodec{maxTokenBytes: defaultMaxTokenBytes}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(codec)
	}
	return codec
}

// NewState returns an empty state configured with the codec's extension keys.
func (c *StateCodec) NewState() *FlowState {
	if c == nil {
		return NewFlowState()
	}
	return NewFlowState(c.extensionKeys...)
}

// Encode serializes a state into its URL-safe token form.
func (c *StateCodec) Encode(state *FlowState) (string, error) {
	if state == nil {
		return "", malformedTokenError(fmt.Errorf("core: state is required"))
	}
	payload, err := json.Marshal(state.Snapshot())
	if err != nil {
		return "", malformedTokenError(fmt.Errorf("core: encode state payload: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// Decode parses and validates a token. Malformed payloads and schema
// violations surface as distinct error categories; no partial state is ever
// returned.
func (c *StateCodec) Decode(token string) (*FlowState, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, missingStateError()
	}

	payload, err := decodeTokenBase64(token)
	if err != nil {
		return nil, malformedTokenError(err)
	}
	limit := defaultMaxTokenBytes
	if c != nil && c.maxTokenBytes > 0 {
		limit = c.maxTokenBytes
	}
	if len(payload) > limit {
		return nil, malformedTokenError(fmt.Errorf("core: state payload exceeds %d bytes", limit))
	}

	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, malformedTokenError(fmt.Errorf("core: state payload is not a JSON object: %w", err))
	}

	if err := validateStateSchema(data); err != nil {
		return nil, err
	}

	var extensionKeys []string
	if c != nil {
		extensionKeys = c.extensionKeys
	}
	return newFlowStateFromSnapshot(data, extensionKeys), nil
}

// Tokens issued by older stacks use the standard padded alphabet; ours are
// raw URL-safe. Accept all four variants.
func decodeTokenBase64(token string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var lastErr error
	for _, encoding := range encodings {
		payload, err := encoding.DecodeString(token)
		if err == nil {
			return payload, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("core: state token is not base64: %w", lastErr)
}

func validateStateSchema(data map[string]any) error {
	if value, ok := data[StateKeyProviderID]; !ok {
		return schemaViolationError(StateKeyProviderID, "is required")
	} else if text, ok := value.(string); !ok || strings.TrimSpace(text) == "" {
		return schemaViolationError(StateKeyProviderID, "must be a non-empty string")
	}

	for _, key := range []string{
		StateKeyProductID,
		StateKeyCustomerID,
		StateKeyCallbackURL,
		StateKeyRequestID,
		StateKeyTariffID,
	} {
		value, ok := data[key]
		if !ok || value == nil {
			continue
		}
		if _, ok := value.(string); !ok {
			return schemaViolationError(key, "must be a string")
		}
	}

	if value, ok := data[StateKeyGeoLocation]; ok && value != nil {
		elements, ok := value.([]any)
		if !ok {
			return schemaViolationError(StateKeyGeoLocation, "must be an array of numbers")
		}
		for i, element := range elements {
			if _, ok := element.(float64); !ok {
				return schemaViolationError(
					fmt.Sprintf("%s[%d]", StateKeyGeoLocation, i),
					"must be a number",
				)
			}
		}
	}

	if value, ok := data[StateKeyPostalAddress]; ok && value != nil {
		address, ok := value.(map[string]any)
		if !ok {
			return schemaViolationError(StateKeyPostalAddress, "must be an object")
		}
		for field, fieldValue := range address {
			if fieldValue == nil {
				continue
			}
			if _, ok := fieldValue.(string); !ok {
				return schemaViolationError(
					fmt.Sprintf("%s.%s", StateKeyPostalAddress, field),
					"must be a string",
				)
			}
		}
	}

	if value, ok := data[StateKeyAuthMetadata]; ok && value != nil {
		if _, ok := value.(map[string]any); !ok {
			return schemaViolationError(StateKeyAuthMetadata, "must be an object")
		}
	}

	return nil
}

func malformedTokenError(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryBadInput, "core: malformed state token").
		WithCode(http.StatusBadRequest).
		WithTextCode(OnboardErrorInvalidState)
}

func schemaViolationError(field string, reason string) error {
	return goerrors.NewValidation(
		fmt.Sprintf("core: state schema violation: %s %s", field, reason),
		goerrors.FieldError{Field: field, Message: reason},
	).
		WithCode(http.StatusBadRequest).
		WithTextCode(OnboardErrorInvalidState).
		WithSeverity(goerrors.SeverityError)
}

// IsSchemaViolation reports whether an error came from state schema
// validation rather than payload parsing.
func IsSchemaViolation(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryValidation &&
		richErr.TextCode == OnboardErrorInvalidState
}

// IsMalformedToken reports whether an error came from an unparseable token
// payload.
func IsMalformedToken(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryBadInput &&
		richErr.TextCode == OnboardErrorInvalidState
}
