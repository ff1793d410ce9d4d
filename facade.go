package onboard

import (
	"fmt"
	"reflect"

	onboardcommand "github.com/goliatone/go-onboard/command"
	"github.com/goliatone/go-onboard/core"
	onboardquery "github.com/goliatone/go-onboard/query"
)

// CommandQueryService is the surface the facade wires commands and queries
// against. *core.Service satisfies it.
type CommandQueryService interface {
	onboardcommand.MutatingService
}

type Commands struct {
	StartFlow     *onboardcommand.StartFlowCommand
	AuthoriseFlow *onboardcommand.AuthoriseFlowCommand
	ConnectFlow   *onboardcommand.ConnectFlowCommand
	CancelFlow    *onboardcommand.CancelFlowCommand
	PlanTariff    *onboardcommand.PlanTariffCommand
}

type Queries struct {
	ListActivity *onboardquery.ListActivityQuery
	InspectState *onboardquery.InspectStateQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	activityReader core.ActivityReader
	activitySource any
	stateDecoder   onboardquery.StateDecoder
}

func WithActivityReader(reader core.ActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

// WithActivitySource accepts anything exposing an ActivityStore() accessor,
// such as the SQL repository factory, and resolves the reader from it.
func WithActivitySource(source any) FacadeOption {
	return func(options *facadeOptions) {
		options.activitySource = source
	}
}

func WithStateDecoder(decoder onboardquery.StateDecoder) FacadeOption {
	return func(options *facadeOptions) {
		options.stateDecoder = decoder
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("onboard: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.activityReader
	if reader == nil && cfg.activitySource != nil {
		reader = resolveActivityReader(cfg.activitySource)
	}
	if reader == nil {
		reader = resolveActivityReader(service)
	}

	decoder := cfg.stateDecoder
	if decoder == nil {
		decoder = resolveStateDecoder(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		StartFlow:     onboardcommand.NewStartFlowCommand(service),
		AuthoriseFlow: onboardcommand.NewAuthoriseFlowCommand(service),
		ConnectFlow:   onboardcommand.NewConnectFlowCommand(service),
		CancelFlow:    onboardcommand.NewCancelFlowCommand(service),
		PlanTariff:    onboardcommand.NewPlanTariffCommand(service),
	}
	facade.queries = Queries{
		ListActivity: onboardquery.NewListActivityQuery(reader),
		InspectState: onboardquery.NewInspectStateQuery(decoder),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveStateDecoder(service CommandQueryService) onboardquery.StateDecoder {
	if service == nil {
		return nil
	}
	if decoder, ok := service.(onboardquery.StateDecoder); ok {
		return decoder
	}
	provider, ok := service.(interface {
		Codec() *core.StateCodec
	})
	if !ok {
		return nil
	}
	codec := provider.Codec()
	if codec == nil {
		return nil
	}
	return codec
}

func resolveActivityReader(source any) core.ActivityReader {
	if source == nil {
		return nil
	}
	if reader, ok := source.(core.ActivityReader); ok {
		return reader
	}

	sourceValue := reflect.ValueOf(source)
	if !sourceValue.IsValid() {
		return nil
	}
	if sourceValue.Kind() == reflect.Ptr && sourceValue.IsNil() {
		return nil
	}
	method := sourceValue.MethodByName("ActivityStore")
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil
	}

	results, ok := safeReflectCall(method)
	if !ok {
		return nil
	}
	if len(results) != 1 {
		return nil
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return nil
	}
	if candidate.Kind() == reflect.Ptr && candidate.IsNil() {
		return nil
	}
	reader, ok := candidate.Interface().(core.ActivityReader)
	if !ok {
		return nil
	}
	return reader
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
