package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Logger aliases keep downstream packages off a direct logging import.
type Logger = glog.Logger
type LoggerProvider = glog.LoggerProvider
type FieldsLogger = glog.FieldsLogger

// AuthoriseResult is what a provider integration returns from a credentials
// exchange. Reference carries whatever the provider needs to resume the
// session on later requests.
type AuthoriseResult struct {
	Success   bool
	Error     string
	Reference map[string]any
}

// CaptureResult is what a provider integration returns once a tariff is
// captured from the provider account. Tariff is provider-shaped until
// Convert turns it into a draft.
type CaptureResult struct {
	Tariff        any
	PostalAddress *PostalAddress
	Error         string
}

// ProviderHooks is the per-provider integration surface. Implementations
// talk to the energy provider; the flow engine owns everything else.
type ProviderHooks interface {
	Authorise(ctx context.Context, credentials map[string]any) (AuthoriseResult, error)
	Capture(ctx context.Context, reference map[string]any) (CaptureResult, error)
	Convert(tariff any) (TariffDraft, error)
}

// AccountsAPI resolves the account owning a publishable key.
type AccountsAPI interface {
	Current(ctx context.Context, publicKey string) (Account, error)
}

// ProvidersAPI resolves provider records.
type ProvidersAPI interface {
	Retrieve(ctx context.Context, publicKey string, providerID string) (Provider, error)
}

// CustomersAPI resolves or creates customer records.
type CustomersAPI interface {
	Retrieve(ctx context.Context, publicKey string, customerID string) (Customer, error)
	Create(ctx context.Context, publicKey string, input CustomerCreate) (Customer, error)
}

// ProductsAPI resolves, creates, and updates product records.
type ProductsAPI interface {
	Retrieve(ctx context.Context, publicKey string, productID string) (Product, error)
	Create(ctx context.Context, publicKey string, input ProductCreate) (Product, error)
	Update(ctx context.Context, publicKey string, productID string, patch ProductPatch) (Product, error)
}

// TariffsAPI creates tariff records from validated drafts. RequestID is
// forwarded as an idempotency hint.
type TariffsAPI interface {
	Create(ctx context.Context, publicKey string, draft TariffDraft, requestID string) (Tariff, error)
}

// BillingAPI aggregates the upstream platform surface the flow needs.
type BillingAPI interface {
	Accounts() AccountsAPI
	Providers() ProvidersAPI
	Customers() CustomersAPI
	Products() ProductsAPI
	Tariffs() TariffsAPI
}

// ContextDirectory is the read side of BillingAPI the guard uses. A caching
// decorator satisfies it without touching the write paths.
type ContextDirectory interface {
	CurrentAccount(ctx context.Context, publicKey string) (Account, error)
	RetrieveProvider(ctx context.Context, publicKey string, providerID string) (Provider, error)
}

// ActivityEntry is one audit record of a flow operation. ID and CreatedAt
// are filled by the recorder when absent.
type ActivityEntry struct {
	ID         string
	RequestID  string
	ProviderID string
	Operation  string
	Outcome    string
	Detail     string
	CreatedAt  time.Time
}

// ActivityRecorder persists the flow audit trail. Recording failures are
// logged and never fail the operation they describe.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) error
}

// ActivityFilter narrows an audit trail listing. Zero fields match
// everything; paging defaults are applied by the store.
type ActivityFilter struct {
	RequestID  string
	ProviderID string
	Operation  string
	Outcome    string
	From       *time.Time
	To         *time.Time
	Page       int
	PerPage    int
}

type ActivityPage struct {
	Items      []ActivityEntry
	Page       int
	PerPage    int
	Total      int
	HasNext    bool
	NextCursor string
}

// ActivityRetentionPolicy bounds the audit trail. TTL removes entries older
// than the window; RowCap removes the oldest entries beyond the cap.
type ActivityRetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

// ActivityReader is the query side of the audit trail.
type ActivityReader interface {
	List(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

// ActivityRetentionPruner deletes audit entries outside the retention policy
// and reports how many rows were removed.
type ActivityRetentionPruner interface {
	Prune(ctx context.Context, policy ActivityRetentionPolicy) (int, error)
}

// MetricsRecorder receives operation counters and timings.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// Renderer produces the caller-facing representation of a flow page.
type Renderer interface {
	Render(ctx context.Context, view View) ([]byte, string, error)
}

// View is the render model for a flow page. A non-empty RedirectTo tells the
// renderer to produce a hop to the next route instead of a page.
type View struct {
	Page            string
	Title           string
	RedirectTo      string
	ProviderName    string
	Display         DisplaySettings
	SharedState     string
	PublicState     string
	CallbackURL     string
	HasAuthMetadata bool
	Error           string
}

