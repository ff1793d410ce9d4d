package core

import (
	"context"
	"fmt"
)

const (
	StepResolveCustomer      = "resolve_customer"
	StepResolveProduct       = "resolve_product"
	StepCreateTariff         = "create_tariff"
	StepAttachTariffSettings = "attach_tariff_settings"
)

// PipelineInput is everything a tariff connection run needs beyond the
// billing API itself.
type PipelineInput struct {
	PublicKey     string
	State         *FlowState
	Draft         TariffDraft
	PostalAddress *PostalAddress
}

// Pipeline provisions a customer, a product, and a tariff against the
// billing API and links them. Steps run strictly in order; the first failing
// step aborts the run with no rollback of resources already created, which
// stay disabled until a retry completes the link.
type Pipeline struct {
	billing    BillingAPI
	providerID string
}

func NewPipeline(billing BillingAPI, providerID string) *Pipeline {
	return &Pipeline{billing: billing, providerID: providerID}
}

type pipelineRun struct {
	input    PipelineInput
	customer Customer
	product  Product
	tariff   Tariff
}

type pipelineStep struct {
	name string
	run  func(ctx context.Context, run *pipelineRun) error
}

// Connect runs the full provisioning sequence and returns the identifiers a
// successful run produced. Existing customer and product ids in state are
// reused; tariff creation always issues a create.
func (p *Pipeline) Connect(ctx context.Context, input PipelineInput) (PipelineResult, error) {
	if p == nil || p.billing == nil {
		return PipelineResult{}, fmt.Errorf("core: pipeline is not configured")
	}
	if input.State == nil {
		return PipelineResult{}, fmt.Errorf("core: pipeline needs a flow state")
	}

	run := &pipelineRun{input: input}
	steps := []pipelineStep{
		{name: StepResolveCustomer, run: p.resolveCustomer},
		{name: StepResolveProduct, run: p.resolveProduct},
		{name: StepCreateTariff, run: p.createTariff},
		{name: StepAttachTariffSettings, run: p.attachTariffSettings},
	}
	for _, step := range steps {
		if err := step.run(ctx, run); err != nil {
			return PipelineResult{}, pipelineStepError(step.name, err)
		}
	}

	return PipelineResult{
		CustomerID: run.customer.ID,
		ProductID:  run.product.ID,
		TariffID:   run.tariff.ID,
	}, nil
}

func (p *Pipeline) resolveCustomer(ctx context.Context, run *pipelineRun) error {
	if customerID := run.input.State.CustomerID(); customerID != "" {
		customer, err := p.billing.Customers().Retrieve(ctx, run.input.PublicKey, customerID)
		if err != nil {
			return err
		}
		run.customer = customer
		return nil
	}
	customer, err := p.billing.Customers().Create(ctx, run.input.PublicKey, CustomerCreate{
		IsDisabled: true,
	})
	if err != nil {
		return err
	}
	run.customer = customer
	return nil
}

func (p *Pipeline) resolveProduct(ctx context.Context, run *pipelineRun) error {
	if productID := run.input.State.ProductID(); productID != "" {
		product, err := p.billing.Products().Retrieve(ctx, run.input.PublicKey, productID)
		if err != nil {
			return err
		}
		run.product = product
		return nil
	}
	providerID := p.providerID
	if providerID == "" {
		providerID = run.input.State.ProviderID()
	}
	product, err := p.billing.Products().Create(ctx, run.input.PublicKey, ProductCreate{
		CustomerID: run.customer.ID,
		ProviderID: providerID,
		Timezone:   run.input.Draft.Timezone,
		IsDisabled: true,
	})
	if err != nil {
		return err
	}
	run.product = product
	return nil
}

func (p *Pipeline) createTariff(ctx context.Context, run *pipelineRun) error {
	draft := run.input.Draft
	draft.ProductID = run.product.ID
	tariff, err := p.billing.Tariffs().Create(ctx, run.input.PublicKey, draft, run.input.State.RequestID())
	if err != nil {
		return err
	}
	run.tariff = tariff
	return nil
}

func (p *Pipeline) attachTariffSettings(ctx context.Context, run *pipelineRun) error {
	state := run.input.State
	patch := ProductPatch{
		TariffSettings: &TariffSettings{
			ReferenceID:    run.input.Draft.ReferenceID,
			TariffID:       run.tariff.ID,
			IsDisabled:     false,
			Integrated:     true,
			FailedAttempts: 0,
			AuthMetadata: AuthMetadataEnvelope{
				ReferenceID: run.input.Draft.ReferenceID,
				Data:        state.AuthMetadata(),
			},
		},
	}
	if run.tariff.ContractEndDate != "" {
		patch.ContractEndDate = run.tariff.ContractEndDate
	}
	postalAddress := run.input.PostalAddress
	if postalAddress == nil {
		postalAddress = state.PostalAddress()
	}
	if postalAddress != nil && !postalAddress.IsZero() {
		patch.PostalAddress = postalAddress
	}
	if location := state.GeoLocation(); ValidGeoLocation(location) {
		patch.GeoLocation = location
	}

	product, err := p.billing.Products().Update(ctx, run.input.PublicKey, run.product.ID, patch)
	if err != nil {
		return err
	}
	run.product = product
	return nil
}
