package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type fakeBilling struct {
	mu sync.Mutex

	customerRetrieves int
	customerCreates   int
	productRetrieves  int
	productCreates    int
	productUpdates    int
	tariffCreates     int

	lastCustomerCreate CustomerCreate
	lastProductCreate  ProductCreate
	lastPatch          ProductPatch
	lastDraft          TariffDraft
	lastIdempotency    string

	account  Account
	provider Provider

	tariff Tariff

	customerErr error
	productErr  error
	tariffErr   error
	updateErr   error
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{
		account:  Account{ID: "acc_1"},
		provider: Provider{ID: "prov_1"},
		tariff:   Tariff{ID: "tar_x"},
	}
}

func (b *fakeBilling) Accounts() AccountsAPI   { return fakeAccounts{b} }
func (b *fakeBilling) Providers() ProvidersAPI { return fakeProviders{b} }
func (b *fakeBilling) Customers() CustomersAPI { return fakeCustomers{b} }
func (b *fakeBilling) Products() ProductsAPI   { return fakeProducts{b} }
func (b *fakeBilling) Tariffs() TariffsAPI     { return fakeTariffs{b} }

type fakeAccounts struct{ b *fakeBilling }

func (f fakeAccounts) Current(ctx context.Context, publicKey string) (Account, error) {
	return f.b.account, nil
}

type fakeProviders struct{ b *fakeBilling }

func (f fakeProviders) Retrieve(ctx context.Context, publicKey string, providerID string) (Provider, error) {
	return f.b.provider, nil
}

type fakeCustomers struct{ b *fakeBilling }

func (f fakeCustomers) Retrieve(ctx context.Context, publicKey string, customerID string) (Customer, error) {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()
	f.b.customerRetrieves++
	if f.b.customerErr != nil {
		return Customer{}, f.b.customerErr
	}
	return Customer{ID: customerID}, nil
}

func (f fakeCustomers) Create(ctx context.Context, publicKey string, input CustomerCreate) (Customer, error) {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()
	f.b.customerCreates++
	f.b.lastCustomerCreate = input
	if f.b.customerErr != nil {
		return Customer{}, f.b.customerErr
	}
	return Customer{ID: "cus_new"}, nil
}

type fakeProducts struct{ b *fakeBilling }

func (f fakeProducts) Retrieve(ctx context.Context, publicKey string, productID string) (Product, error) {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()
	f.b.productRetrieves++
	if f.b.productErr != nil {
		return Product{}, f.b.productErr
	}
	return Product{ID: productID}, nil
}

func (f fakeProducts) Create(ctx context.Context, publicKey string, input ProductCreate) (Product, error) {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()
	f.b.productCreates++
	f.b.lastProductCreate = input
	if f.b.productErr != nil {
		return Product{}, f.b.productErr
	}
	return Product{ID: "prod_new", CustomerID: input.CustomerID}, nil
}

func (f fakeProducts) Update(ctx context.Context, publicKey string, productID string, patch ProductPatch) (Product, error) {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()
	f.b.productUpdates++
	f.b.lastPatch = patch
	if f.b.updateErr != nil {
		return Product{}, f.b.updateErr
	}
	return Product{ID: productID, TariffSettings: patch.TariffSettings}, nil
}

type fakeTariffs struct{ b *fakeBilling }

func (f fakeTariffs) Create(ctx context.Context, publicKey string, draft TariffDraft, requestID string) (Tariff, error) {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()
	f.b.tariffCreates++
	f.b.lastDraft = draft
	f.b.lastIdempotency = requestID
	if f.b.tariffErr != nil {
		return Tariff{}, f.b.tariffErr
	}
	return f.b.tariff, nil
}

func pipelineState(t *testing.T, data map[string]any) *FlowState {
	t.Helper()
	state := NewFlowState()
	state.Extend(data)
	state.EnsureRequestID()
	state.SetAuthMetadata(map[string]any{"user": "u"})
	return state
}

func TestPipelineReusesExistingIdentifiers(t *testing.T) {
	billing := newFakeBilling()
	pipeline := NewPipeline(billing, "")
	state := pipelineState(t, map[string]any{
		"provider_id": "prov_1",
		"customer_id": "cus_1",
		"product_id":  "prod_1",
	})

	result, err := pipeline.Connect(context.Background(), PipelineInput{
		PublicKey: "pk_test",
		State:     state,
		Draft:     TariffDraft{DisplayName: "Fixed", ReferenceID: "ref_1"},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if billing.customerCreates != 0 || billing.productCreates != 0 {
		t.Fatalf("creates issued for existing ids: %d/%d", billing.customerCreates, billing.productCreates)
	}
	if billing.customerRetrieves != 1 || billing.productRetrieves != 1 {
		t.Fatalf("expected one retrieve each, got %d/%d", billing.customerRetrieves, billing.productRetrieves)
	}
	if billing.tariffCreates != 1 || billing.productUpdates != 1 {
		t.Fatalf("tariff create/product update missing: %d/%d", billing.tariffCreates, billing.productUpdates)
	}
	if result.CustomerID != "cus_1" || result.ProductID != "prod_1" || result.TariffID != "tar_x" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPipelineCreatesDisabledResources(t *testing.T) {
	billing := newFakeBilling()
	pipeline := NewPipeline(billing, "")
	state := pipelineState(t, map[string]any{"provider_id": "prov_state"})

	_, err := pipeline.Connect(context.Background(), PipelineInput{
		PublicKey: "pk_test",
		State:     state,
		Draft:     TariffDraft{DisplayName: "Fixed", Timezone: "Europe/London"},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if !billing.lastCustomerCreate.IsDisabled {
		t.Fatal("customer created enabled")
	}
	create := billing.lastProductCreate
	if !create.IsDisabled {
		t.Fatal("product created enabled")
	}
	if create.ProviderID != "prov_state" {
		t.Fatalf("product provider wrong: %q", create.ProviderID)
	}
	if create.Timezone != "Europe/London" {
		t.Fatalf("draft timezone not forwarded: %q", create.Timezone)
	}
	if create.CustomerID != "cus_new" {
		t.Fatalf("product not linked to resolved customer: %q", create.CustomerID)
	}
}

func TestPipelineConfiguredProviderWinsOnProductCreate(t *testing.T) {
	billing := newFakeBilling()
	pipeline := NewPipeline(billing, "prov_cfg")
	state := pipelineState(t, map[string]any{"provider_id": "prov_state"})

	if _, err := pipeline.Connect(context.Background(), PipelineInput{
		PublicKey: "pk_test",
		State:     state,
		Draft:     TariffDraft{DisplayName: "Fixed"},
	}); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if billing.lastProductCreate.ProviderID != "prov_cfg" {
		t.Fatalf("configured provider did not win: %q", billing.lastProductCreate.ProviderID)
	}
}

func TestPipelineThreadsDraftAndIdempotencyIntoTariffCreate(t *testing.T) {
	billing := newFakeBilling()
	pipeline := NewPipeline(billing, "")
	state := pipelineState(t, map[string]any{"provider_id": "prov_1"})

	if _, err := pipeline.Connect(context.Background(), PipelineInput{
		PublicKey: "pk_test",
		State:     state,
		Draft:     TariffDraft{DisplayName: "Fixed", ReferenceID: "ref_1"},
	}); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if billing.lastDraft.ProductID != "prod_new" {
		t.Fatalf("draft not linked to product: %q", billing.lastDraft.ProductID)
	}
	if billing.lastIdempotency != state.RequestID() {
		t.Fatalf("idempotency hint %q does not match request id %q", billing.lastIdempotency, state.RequestID())
	}
}

func TestPipelineGeoLocationValidity(t *testing.T) {
	billing := newFakeBilling()
	pipeline := NewPipeline(billing, "")

	state := pipelineState(t, map[string]any{
		"provider_id":  "prov_1",
		"geo_location": []any{1.0},
	})
	if _, err := pipeline.Connect(context.Background(), PipelineInput{
		PublicKey: "pk_test",
		State:     state,
		Draft:     TariffDraft{DisplayName: "Fixed"},
	}); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if billing.lastPatch.GeoLocation != nil {
		t.Fatalf("one-element geo location sent: %v", billing.lastPatch.GeoLocation)
	}

	state = pipelineState(t, map[string]any{
		"provider_id":  "prov_1",
		"geo_location": []any{1.0, 2.0},
	})
	if _, err := pipeline.Connect(context.Background(), PipelineInput{
		PublicKey: "pk_test",
		State:     state,
		Draft:     TariffDraft{DisplayName: "Fixed"},
	}); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if got := billing.lastPatch.GeoLocation; len(got) != 2 || got[0] != 1.0 || got[1] != 2.0 {
		t.Fatalf("two-element geo location mangled: %v", got)
	}
}

func TestPipelineAttachesSettingsAndEvidence(t *testing.T) {
	billing := newFakeBilling()
	billing.tariff = Tariff{ID: "tar_x", ContractEndDate: "2027-01-01"}
	pipeline := NewPipeline(billing, "")
	state := pipelineState(t, map[string]any{"provider_id": "prov_1"})

	if _, err := pipeline.Connect(context.Background(), PipelineInput{
		PublicKey:     "pk_test",
		State:         state,
		Draft:         TariffDraft{DisplayName: "Fixed", ReferenceID: "ref_1"},
		PostalAddress: &PostalAddress{Address1: "1 Main St", City: "Springfield"},
	}); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	patch := billing.lastPatch
	settings := patch.TariffSettings
	if settings == nil {
		t.Fatal("no tariff settings in update")
	}
	if settings.IsDisabled || !settings.Integrated {
		t.Fatalf("settings flags wrong: %+v", settings)
	}
	if settings.TariffID != "tar_x" || settings.ReferenceID != "ref_1" {
		t.Fatalf("settings identifiers wrong: %+v", settings)
	}
	if settings.AuthMetadata.ReferenceID != "ref_1" || settings.AuthMetadata.Data["user"] != "u" {
		t.Fatalf("evidence envelope wrong: %+v", settings.AuthMetadata)
	}
	if patch.ContractEndDate != "2027-01-01" {
		t.Fatalf("contract end date not attached: %q", patch.ContractEndDate)
	}
	if patch.PostalAddress == nil || patch.PostalAddress.Address1 != "1 Main St" {
		t.Fatalf("postal address not attached: %+v", patch.PostalAddress)
	}
}

func TestPipelineOmitsAbsentOptionals(t *testing.T) {
	billing := newFakeBilling()
	pipeline := NewPipeline(billing, "")
	state := pipelineState(t, map[string]any{"provider_id": "prov_1"})

	if _, err := pipeline.Connect(context.Background(), PipelineInput{
		PublicKey: "pk_test",
		State:     state,
		Draft:     TariffDraft{DisplayName: "Fixed"},
	}); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	patch := billing.lastPatch
	if patch.ContractEndDate != "" || patch.PostalAddress != nil || patch.GeoLocation != nil {
		t.Fatalf("absent optionals serialized: %+v", patch)
	}
}

func TestPipelineFailsFastAndNamesTheStep(t *testing.T) {
	billing := newFakeBilling()
	billing.tariffErr = fmt.Errorf("upstream rejected the draft")
	pipeline := NewPipeline(billing, "")
	state := pipelineState(t, map[string]any{"provider_id": "prov_1"})

	_, err := pipeline.Connect(context.Background(), PipelineInput{
		PublicKey: "pk_test",
		State:     state,
		Draft:     TariffDraft{DisplayName: "Fixed"},
	})
	if err == nil {
		t.Fatal("expected pipeline failure")
	}
	if got := ErrorTextCode(err); got != OnboardErrorPipelineStepFailed {
		t.Fatalf("expected %s, got %s", OnboardErrorPipelineStepFailed, got)
	}
	if !strings.Contains(err.Error(), StepCreateTariff) {
		t.Fatalf("error does not name the failing step: %v", err)
	}
	if billing.productUpdates != 0 {
		t.Fatalf("update issued after failed create: %d", billing.productUpdates)
	}
}
