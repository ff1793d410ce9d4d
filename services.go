package onboard

import "github.com/goliatone/go-onboard/core"

type Config = core.Config

type APIConfig = core.APIConfig

type StateConfig = core.StateConfig

type Option = core.Option

type Service = core.Service

type BillingAPI = core.BillingAPI
type ContextDirectory = core.ContextDirectory
type ProviderHooks = core.ProviderHooks
type ActivityRecorder = core.ActivityRecorder
type ActivityReader = core.ActivityReader
type ActivityEntry = core.ActivityEntry
type StateCodec = core.StateCodec
type FlowState = core.FlowState

type FlowRequest = core.FlowRequest
type FlowOutcome = core.FlowOutcome

type TariffPlanInput = core.TariffPlanInput
type TariffDraft = core.TariffDraft

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithErrorMapper      = core.WithErrorMapper
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithBillingAPI       = core.WithBillingAPI
	WithContextDirectory = core.WithContextDirectory
	WithProviderHooks    = core.WithProviderHooks
	WithActivityRecorder = core.WithActivityRecorder
	WithStateCodec       = core.WithStateCodec
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
