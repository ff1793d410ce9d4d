// Package tariffapi is the REST client for the upstream energy billing
// platform. It exposes the platform as the core.BillingAPI surface and keeps
// every call scoped to the caller's publishable key.
package tariffapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-onboard/core"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL              string
	client               HTTPDoer
	logger               core.Logger
	maxResponseBodyBytes int64
}

type ClientOption func(*Client)

func WithHTTPClient(client HTTPDoer) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

func WithLogger(logger core.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMaxResponseBodyBytes(limit int64) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.maxResponseBodyBytes = limit
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("tariffapi: base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("tariffapi: invalid base url: %w", err)
	}
	client := &Client{
		baseURL:              baseURL,
		client:               &http.Client{Timeout: defaultClientTimeout},
		logger:               glog.Ensure(nil),
		maxResponseBodyBytes: defaultResponseBodyLimit,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(client)
	}
	return client, nil
}

func (c *Client) Accounts() core.AccountsAPI   { return accountsAPI{c} }
func (c *Client) Providers() core.ProvidersAPI { return providersAPI{c} }
func (c *Client) Customers() core.CustomersAPI { return customersAPI{c} }
func (c *Client) Products() core.ProductsAPI   { return productsAPI{c} }
func (c *Client) Tariffs() core.TariffsAPI     { return tariffsAPI{c} }

// errorEnvelope is the platform's uniform failure body. It can arrive with
// any HTTP status, including 200.
type errorEnvelope struct {
	Object  string `json:"object"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	publicKey string,
	headers map[string]string,
	payload any,
	out any,
) error {
	if c == nil || c.client == nil {
		return apiError(
			"tariffapi: client is not configured",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if strings.TrimSpace(publicKey) == "" {
		return apiError(
			"tariffapi: a publishable key is required",
			goerrors.CategoryAuth,
			http.StatusUnauthorized,
			map[string]any{"path": path},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return apiWrapError(
				err,
				goerrors.CategoryBadInput,
				"tariffapi: encode request payload",
				http.StatusBadRequest,
				map[string]any{"path": path},
			)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apiWrapError(
			err,
			goerrors.CategoryBadInput,
			"tariffapi: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "path": path},
		)
	}
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(publicKey))
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	startedAt := time.Now().UTC()
	httpRes, err := c.client.Do(httpReq)
	if err != nil {
		return apiWrapError(
			err,
			goerrors.CategoryExternal,
			"tariffapi: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": method, "path": path},
		)
	}
	defer httpRes.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpRes.Body, c.maxResponseBodyBytes+1))
	if err != nil {
		return apiWrapError(
			err,
			goerrors.CategoryExternal,
			"tariffapi: read response body",
			http.StatusBadGateway,
			map[string]any{"path": path, "status_code": httpRes.StatusCode},
		)
	}
	if int64(len(raw)) > c.maxResponseBodyBytes {
		return apiError(
			fmt.Sprintf("tariffapi: response body exceeds limit of %d bytes", c.maxResponseBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"path": path, "status_code": httpRes.StatusCode},
		)
	}

	c.logger.Debug("api call completed",
		"method", method,
		"path", path,
		"status_code", httpRes.StatusCode,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)

	// The platform reports failures through an error envelope regardless
	// of transport status.
	var envelope errorEnvelope
	if len(raw) > 0 && json.Unmarshal(raw, &envelope) == nil && envelope.Object == "error" {
		return apiError(
			envelope.Message,
			goerrors.CategoryExternal,
			httpStatusOr(httpRes.StatusCode, http.StatusBadGateway),
			map[string]any{"path": path, "type": envelope.Type},
		)
	}
	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return apiError(
			fmt.Sprintf("tariffapi: unexpected status %d", httpRes.StatusCode),
			goerrors.CategoryExternal,
			httpRes.StatusCode,
			map[string]any{"path": path},
		)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apiWrapError(
			err,
			goerrors.CategoryExternal,
			"tariffapi: decode response payload",
			http.StatusBadGateway,
			map[string]any{"path": path},
		)
	}
	return nil
}

func httpStatusOr(status int, fallback int) int {
	if status >= 400 {
		return status
	}
	return fallback
}

type accountsAPI struct{ c *Client }

func (a accountsAPI) Current(ctx context.Context, publicKey string) (core.Account, error) {
	var account core.Account
	err := a.c.do(ctx, http.MethodGet, "/accounts/current", publicKey, nil, nil, &account)
	return account, err
}

type providersAPI struct{ c *Client }

func (a providersAPI) Retrieve(ctx context.Context, publicKey string, providerID string) (core.Provider, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return core.Provider{}, apiError(
			"tariffapi: provider id is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	var provider core.Provider
	err := a.c.do(ctx, http.MethodGet, "/providers/"+url.PathEscape(providerID), publicKey, nil, nil, &provider)
	return provider, err
}

type customersAPI struct{ c *Client }

func (a customersAPI) Retrieve(ctx context.Context, publicKey string, customerID string) (core.Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return core.Customer{}, apiError(
			"tariffapi: customer id is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	var customer core.Customer
	err := a.c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(customerID), publicKey, nil, nil, &customer)
	return customer, err
}

func (a customersAPI) Create(ctx context.Context, publicKey string, input core.CustomerCreate) (core.Customer, error) {
	var customer core.Customer
	err := a.c.do(ctx, http.MethodPost, "/customers", publicKey, nil, input, &customer)
	return customer, err
}

type productsAPI struct{ c *Client }

func (a productsAPI) Retrieve(ctx context.Context, publicKey string, productID string) (core.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return core.Product{}, apiError(
			"tariffapi: product id is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	var product core.Product
	err := a.c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID), publicKey, nil, nil, &product)
	return product, err
}

func (a productsAPI) Create(ctx context.Context, publicKey string, input core.ProductCreate) (core.Product, error) {
	var product core.Product
	err := a.c.do(ctx, http.MethodPost, "/products", publicKey, nil, input, &product)
	return product, err
}

func (a productsAPI) Update(ctx context.Context, publicKey string, productID string, patch core.ProductPatch) (core.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return core.Product{}, apiError(
			"tariffapi: product id is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	var product core.Product
	err := a.c.do(ctx, http.MethodPost, "/products/"+url.PathEscape(productID), publicKey, nil, patch, &product)
	return product, err
}

type tariffsAPI struct{ c *Client }

func (a tariffsAPI) Create(ctx context.Context, publicKey string, draft core.TariffDraft, requestID string) (core.Tariff, error) {
	headers := map[string]string{}
	if strings.TrimSpace(requestID) != "" {
		headers["Idempotency-Key"] = strings.TrimSpace(requestID)
	}
	var tariff core.Tariff
	err := a.c.do(ctx, http.MethodPost, "/tariffs", publicKey, headers, draft, &tariff)
	return tariff, err
}

var _ core.BillingAPI = (*Client)(nil)
