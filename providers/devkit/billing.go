package devkit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-onboard/core"
	"github.com/google/uuid"
)

// FakeBilling is an in-memory core.BillingAPI. It hands out records seeded
// through the Seed helpers and creates customers, products, and tariffs with
// generated ids.
type FakeBilling struct {
	mu sync.Mutex

	account   core.Account
	providers map[string]core.Provider
	customers map[string]core.Customer
	products  map[string]core.Product
	tariffs   map[string]core.Tariff

	lastIdempotencyKey string
}

func NewFakeBilling() *FakeBilling {
	return &FakeBilling{
		account:   core.Account{ID: "acc_devkit", LiveMode: false},
		providers: map[string]core.Provider{},
		customers: map[string]core.Customer{},
		products:  map[string]core.Product{},
		tariffs:   map[string]core.Tariff{},
	}
}

func (b *FakeBilling) SeedAccount(account core.Account) *FakeBilling {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.account = account
	return b
}

func (b *FakeBilling) SeedProvider(provider core.Provider) *FakeBilling {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers[provider.ID] = provider
	return b
}

func (b *FakeBilling) SeedCustomer(customer core.Customer) *FakeBilling {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customers[customer.ID] = customer
	return b
}

func (b *FakeBilling) SeedProduct(product core.Product) *FakeBilling {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products[product.ID] = product
	return b
}

func (b *FakeBilling) Product(id string) (core.Product, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	product, ok := b.products[id]
	return product, ok
}

func (b *FakeBilling) Tariff(id string) (core.Tariff, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tariff, ok := b.tariffs[id]
	return tariff, ok
}

func (b *FakeBilling) LastIdempotencyKey() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastIdempotencyKey
}

func (b *FakeBilling) Accounts() core.AccountsAPI   { return fakeAccounts{b} }
func (b *FakeBilling) Providers() core.ProvidersAPI { return fakeProviders{b} }
func (b *FakeBilling) Customers() core.CustomersAPI { return fakeCustomers{b} }
func (b *FakeBilling) Products() core.ProductsAPI   { return fakeProducts{b} }
func (b *FakeBilling) Tariffs() core.TariffsAPI     { return fakeTariffs{b} }

type fakeAccounts struct{ b *FakeBilling }

func (a fakeAccounts) Current(_ context.Context, publicKey string) (core.Account, error) {
	if strings.TrimSpace(publicKey) == "" {
		return core.Account{}, fmt.Errorf("devkit: a public key is required")
	}
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	return a.b.account, nil
}

type fakeProviders struct{ b *FakeBilling }

func (p fakeProviders) Retrieve(_ context.Context, _ string, providerID string) (core.Provider, error) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	provider, ok := p.b.providers[providerID]
	if !ok {
		return core.Provider{}, fmt.Errorf("devkit: unknown provider %q", providerID)
	}
	return provider, nil
}

type fakeCustomers struct{ b *FakeBilling }

func (c fakeCustomers) Retrieve(_ context.Context, _ string, customerID string) (core.Customer, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	customer, ok := c.b.customers[customerID]
	if !ok {
		return core.Customer{}, fmt.Errorf("devkit: unknown customer %q", customerID)
	}
	return customer, nil
}

func (c fakeCustomers) Create(_ context.Context, _ string, input core.CustomerCreate) (core.Customer, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	customer := core.Customer{
		ID:         "cus_" + uuid.NewString(),
		Reference:  input.Reference,
		IsDisabled: input.IsDisabled,
	}
	c.b.customers[customer.ID] = customer
	return customer, nil
}

type fakeProducts struct{ b *FakeBilling }

func (p fakeProducts) Retrieve(_ context.Context, _ string, productID string) (core.Product, error) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	product, ok := p.b.products[productID]
	if !ok {
		return core.Product{}, fmt.Errorf("devkit: unknown product %q", productID)
	}
	return product, nil
}

func (p fakeProducts) Create(_ context.Context, _ string, input core.ProductCreate) (core.Product, error) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	product := core.Product{
		ID:         "prod_" + uuid.NewString(),
		CustomerID: input.CustomerID,
		ProviderID: input.ProviderID,
		Timezone:   input.Timezone,
		IsDisabled: input.IsDisabled,
	}
	p.b.products[product.ID] = product
	return product, nil
}

func (p fakeProducts) Update(_ context.Context, _ string, productID string, patch core.ProductPatch) (core.Product, error) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	product, ok := p.b.products[productID]
	if !ok {
		return core.Product{}, fmt.Errorf("devkit: unknown product %q", productID)
	}
	if patch.TariffSettings != nil {
		settings := *patch.TariffSettings
		product.TariffSettings = &settings
		product.IsDisabled = settings.IsDisabled
	}
	if patch.ContractEndDate != "" {
		product.ContractEndDate = patch.ContractEndDate
	}
	if patch.PostalAddress != nil {
		address := *patch.PostalAddress
		product.PostalAddress = &address
	}
	if len(patch.GeoLocation) > 0 {
		product.GeoLocation = append([]float64(nil), patch.GeoLocation...)
	}
	p.b.products[productID] = product
	return product, nil
}

type fakeTariffs struct{ b *FakeBilling }

func (t fakeTariffs) Create(_ context.Context, _ string, draft core.TariffDraft, requestID string) (core.Tariff, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	tariff := core.Tariff{
		ID:              "tar_" + uuid.NewString(),
		ProductID:       draft.ProductID,
		DisplayName:     draft.DisplayName,
		ContractEndDate: draft.ContractEndDate,
	}
	t.b.tariffs[tariff.ID] = tariff
	t.b.lastIdempotencyKey = requestID
	return tariff, nil
}

var _ core.BillingAPI = (*FakeBilling)(nil)
