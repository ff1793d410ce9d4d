package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Flow pages named by the route that renders them.
const (
	PageAuth    = "auth"
	PageShare   = "share"
	PageSuccess = "success"
	PageCancel  = "cancel"
)

// FlowRequest is the raw material of one flow hop: the credential proof,
// the inbound state token, and whatever the caller submitted in the body.
type FlowRequest struct {
	Authorization string
	Token         string
	Input         map[string]any
}

// FlowOutcome is what a flow operation hands back to the transport layer.
// RedirectTo is set when the caller should hop to another route; Page when
// the transport should render. Token always carries the re-encoded state.
type FlowOutcome struct {
	Page        string
	RedirectTo  string
	Token       string
	PublicToken string
	Context     RequestContext
	Result      *PipelineResult
}

// Service drives the onboarding flow: guard, state transitions, and the
// tariff connection pipeline. It holds no per-flow state; everything a flow
// knows rides in the token.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	billing         BillingAPI
	directory       ContextDirectory
	hooks           ProviderHooks
	activity        ActivityRecorder
	codec           *StateCodec
	guard           *Guard
	pipeline        *Pipeline
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("onboard", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("onboard"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.billing == nil {
		return nil, fmt.Errorf("core: a billing API is required")
	}
	if builder.hooks == nil {
		return nil, fmt.Errorf("core: provider hooks are required")
	}
	if builder.directory == nil {
		builder.directory = NewBillingDirectory(builder.billing)
	}
	if builder.codec == nil {
		builder.codec = NewStateCodec(
			WithExtensionKeys(finalConfig.State.ExtensionKeys...),
			WithMaxTokenBytes(finalConfig.State.MaxTokenBytes),
		)
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		billing:         builder.billing,
		directory:       builder.directory,
		hooks:           builder.hooks,
		activity:        builder.activity,
		codec:           builder.codec,
		guard:           NewGuard(builder.directory, builder.codec, finalConfig.ProviderID),
		pipeline:        NewPipeline(builder.billing, finalConfig.ProviderID),
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Guard() *Guard {
	if s == nil {
		return nil
	}
	return s.guard
}

func (s *Service) Codec() *StateCodec {
	if s == nil {
		return nil
	}
	return s.codec
}

func (s *Service) Logger() Logger {
	if s == nil {
		return nil
	}
	return s.logger
}

func (s *Service) MapError(err error) error {
	if s == nil || s.errorMapper == nil {
		return err
	}
	if err == nil {
		return nil
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

// StartFlow is the entry hop: it validates proof and token, folds any
// caller-supplied input keys into the state, and redirects to auth with a
// fresh token.
func (s *Service) StartFlow(ctx context.Context, req FlowRequest) (out FlowOutcome, err error) {
	startedAt := time.Now()
	defer func() {
		s.finishOperation(ctx, startedAt, "flow_start", out.Context.State, err)
	}()

	rc, err := s.guard.Authorize(ctx, req.Authorization, req.Token)
	if err != nil {
		return FlowOutcome{}, s.MapError(err)
	}
	rc.State.Extend(req.Input)
	return s.outcome(rc, FlowOutcome{RedirectTo: "/auth"})
}

// AuthFlow renders the credential collection page.
func (s *Service) AuthFlow(ctx context.Context, req FlowRequest) (out FlowOutcome, err error) {
	startedAt := time.Now()
	defer func() {
		s.finishOperation(ctx, startedAt, "flow_auth", out.Context.State, err)
	}()

	rc, err := s.guard.Authorize(ctx, req.Authorization, req.Token)
	if err != nil {
		return FlowOutcome{}, s.MapError(err)
	}
	return s.outcome(rc, FlowOutcome{Page: PageAuth})
}

// AuthoriseFlow exchanges submitted credentials with the provider. Success
// stores them as authentication evidence and moves the flow to share;
// failure leaves the state untouched so the caller can retry the same page.
func (s *Service) AuthoriseFlow(ctx context.Context, req FlowRequest) (out FlowOutcome, err error) {
	startedAt := time.Now()
	defer func() {
		s.finishOperation(ctx, startedAt, "flow_authorise", out.Context.State, err)
	}()

	rc, err := s.guard.Authorize(ctx, req.Authorization, req.Token)
	if err != nil {
		return FlowOutcome{}, s.MapError(err)
	}

	credentials := credentialInput(req.Input)
	result, hookErr := s.hooks.Authorise(ctx, credentials)
	if hookErr != nil {
		return FlowOutcome{}, s.MapError(authorisationFailedError(hookErr.Error()))
	}
	if result.Error != "" || !result.Success {
		return FlowOutcome{}, s.MapError(authorisationFailedError(result.Error))
	}

	rc.State.SetAuthMetadata(credentials)
	return s.outcome(rc, FlowOutcome{RedirectTo: "/share"})
}

// ShareFlow renders the consent page. Without authentication evidence the
// flow is bounced back to auth instead.
func (s *Service) ShareFlow(ctx context.Context, req FlowRequest) (out FlowOutcome, err error) {
	startedAt := time.Now()
	defer func() {
		s.finishOperation(ctx, startedAt, "flow_share", out.Context.State, err)
	}()

	rc, err := s.guard.Authorize(ctx, req.Authorization, req.Token)
	if err != nil {
		return FlowOutcome{}, s.MapError(err)
	}
	if !rc.State.Authorised() {
		return s.outcome(rc, FlowOutcome{RedirectTo: "/auth"})
	}
	return s.outcome(rc, FlowOutcome{Page: PageShare})
}

// ConnectFlow is the terminal hop: it re-verifies the stored evidence,
// captures the tariff from the provider, and runs the connection pipeline.
// The pipeline result reaches the state only when every step succeeded.
func (s *Service) ConnectFlow(ctx context.Context, req FlowRequest) (out FlowOutcome, err error) {
	startedAt := time.Now()
	defer func() {
		s.finishOperation(ctx, startedAt, "flow_connect", out.Context.State, err)
	}()

	rc, err := s.guard.Authorize(ctx, req.Authorization, req.Token)
	if err != nil {
		return FlowOutcome{}, s.MapError(err)
	}
	if !rc.State.Authorised() {
		return s.outcome(rc, FlowOutcome{RedirectTo: "/auth"})
	}

	draft, postalAddress, err := s.captureTariff(ctx, rc.State.AuthMetadata(), "")
	if err != nil {
		return FlowOutcome{}, s.MapError(err)
	}

	result, err := s.pipeline.Connect(ctx, PipelineInput{
		PublicKey:     rc.PublicKey,
		State:         rc.State,
		Draft:         draft,
		PostalAddress: postalAddress,
	})
	if err != nil {
		return FlowOutcome{}, s.MapError(err)
	}

	rc.State.ApplyResult(result)
	return s.outcome(rc, FlowOutcome{Page: PageSuccess, Result: &result})
}

// CancelFlow ends the flow on caller rejection. Terminal; there is no next
// hop.
func (s *Service) CancelFlow(ctx context.Context, req FlowRequest) (out FlowOutcome, err error) {
	startedAt := time.Now()
	defer func() {
		s.finishOperation(ctx, startedAt, "flow_cancel", out.Context.State, err)
	}()

	rc, err := s.guard.Authorize(ctx, req.Authorization, req.Token)
	if err != nil {
		return FlowOutcome{}, s.MapError(err)
	}
	return s.outcome(rc, FlowOutcome{Page: PageCancel})
}

// TariffPlanInput is the machine endpoint's request body.
type TariffPlanInput struct {
	AuthMetadata AuthMetadataEnvelope `json:"auth_metadata"`
}

// TariffPlan runs authorise, capture, and convert headlessly and returns the
// validated draft. It bypasses the guard: the evidence in the body is the
// whole session.
func (s *Service) TariffPlan(ctx context.Context, input TariffPlanInput) (draft TariffDraft, err error) {
	startedAt := time.Now()
	defer func() {
		s.finishOperation(ctx, startedAt, "tariff_plan", nil, err)
	}()

	if len(input.AuthMetadata.Data) == 0 {
		return TariffDraft{}, s.MapError(invalidCredentialsError(
			fmt.Errorf("core: tariff_plan request has no auth_metadata data"),
		))
	}

	draft, _, err = s.captureTariff(ctx, input.AuthMetadata.Data, input.AuthMetadata.ReferenceID)
	if err != nil {
		return TariffDraft{}, s.MapError(err)
	}
	return draft, nil
}

// captureTariff re-verifies evidence with the provider, captures the raw
// tariff, and converts it into a validated draft.
func (s *Service) captureTariff(
	ctx context.Context,
	credentials map[string]any,
	referenceID string,
) (TariffDraft, *PostalAddress, error) {
	authResult, err := s.hooks.Authorise(ctx, credentials)
	if err != nil {
		return TariffDraft{}, nil, authorisationFailedError(err.Error())
	}
	if authResult.Error != "" || !authResult.Success {
		return TariffDraft{}, nil, authorisationFailedError(authResult.Error)
	}

	reference := copyAnyMap(authResult.Reference)
	if reference == nil {
		reference = map[string]any{}
	}
	if strings.TrimSpace(referenceID) != "" {
		reference["reference_id"] = referenceID
	}

	captureResult, err := s.hooks.Capture(ctx, reference)
	if err != nil {
		return TariffDraft{}, nil, authorisationFailedError(err.Error())
	}
	if captureResult.Error != "" {
		return TariffDraft{}, nil, authorisationFailedError(captureResult.Error)
	}

	draft, err := s.hooks.Convert(captureResult.Tariff)
	if err != nil {
		return TariffDraft{}, nil, authorisationFailedError(err.Error())
	}
	if err := draft.Validate(); err != nil {
		return TariffDraft{}, nil, err
	}
	return draft, captureResult.PostalAddress, nil
}

func (s *Service) outcome(rc RequestContext, out FlowOutcome) (FlowOutcome, error) {
	token, err := s.codec.Encode(rc.State)
	if err != nil {
		return FlowOutcome{}, s.MapError(err)
	}
	publicToken, err := s.codec.Encode(rc.State.Public())
	if err != nil {
		return FlowOutcome{}, s.MapError(err)
	}
	out.Token = token
	out.PublicToken = publicToken
	out.Context = rc
	return out, nil
}

func (s *Service) finishOperation(ctx context.Context, startedAt time.Time, operation string, state *FlowState, err error) {
	fields := map[string]any{}
	if state != nil {
		fields["provider_id"] = state.ProviderID()
		fields["request_id"] = state.RequestID()
	}
	s.observeOperation(ctx, startedAt, operation, err, fields)
	s.recordActivity(ctx, operation, state, err)
}

func (s *Service) recordActivity(ctx context.Context, operation string, state *FlowState, err error) {
	if s == nil || s.activity == nil {
		return
	}
	entry := ActivityEntry{Operation: operation, Outcome: "success"}
	if state != nil {
		entry.RequestID = state.RequestID()
		entry.ProviderID = state.ProviderID()
	}
	if err != nil {
		entry.Outcome = "failure"
		entry.Detail = err.Error()
	}
	if recordErr := s.activity.Record(ctx, entry); recordErr != nil {
		s.logError(ctx, "activity record failed", map[string]any{
			"operation": operation,
			"error":     recordErr.Error(),
		})
	}
}

// credentialInput strips transport envelope keys so only provider
// credentials reach the hooks.
func credentialInput(input map[string]any) map[string]any {
	credentials := make(map[string]any, len(input))
	for key, value := range input {
		switch key {
		case "auth", "state":
			continue
		}
		credentials[key] = value
	}
	return credentials
}

// NewBillingDirectory adapts the billing API read paths to the guard's
// lookup surface.
func NewBillingDirectory(billing BillingAPI) ContextDirectory {
	return billingDirectory{billing: billing}
}

type billingDirectory struct {
	billing BillingAPI
}

func (d billingDirectory) CurrentAccount(ctx context.Context, publicKey string) (Account, error) {
	return d.billing.Accounts().Current(ctx, publicKey)
}

func (d billingDirectory) RetrieveProvider(ctx context.Context, publicKey string, providerID string) (Provider, error) {
	return d.billing.Providers().Retrieve(ctx, publicKey, providerID)
}
