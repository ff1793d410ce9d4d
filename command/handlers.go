package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-onboard/core"
)

// MutatingService is the slice of the flow service the command layer drives.
type MutatingService interface {
	StartFlow(ctx context.Context, req core.FlowRequest) (core.FlowOutcome, error)
	AuthoriseFlow(ctx context.Context, req core.FlowRequest) (core.FlowOutcome, error)
	ConnectFlow(ctx context.Context, req core.FlowRequest) (core.FlowOutcome, error)
	CancelFlow(ctx context.Context, req core.FlowRequest) (core.FlowOutcome, error)
	TariffPlan(ctx context.Context, input core.TariffPlanInput) (core.TariffDraft, error)
}

type StartFlowCommand struct {
	service MutatingService
}

func NewStartFlowCommand(service MutatingService) *StartFlowCommand {
	return &StartFlowCommand{service: service}
}

func (c *StartFlowCommand) Execute(ctx context.Context, msg StartFlowMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: start flow service is required")
	}
	out, err := c.service.StartFlow(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AuthoriseFlowCommand struct {
	service MutatingService
}

func NewAuthoriseFlowCommand(service MutatingService) *AuthoriseFlowCommand {
	return &AuthoriseFlowCommand{service: service}
}

func (c *AuthoriseFlowCommand) Execute(ctx context.Context, msg AuthoriseFlowMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: authorise flow service is required")
	}
	out, err := c.service.AuthoriseFlow(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ConnectFlowCommand struct {
	service MutatingService
}

func NewConnectFlowCommand(service MutatingService) *ConnectFlowCommand {
	return &ConnectFlowCommand{service: service}
}

func (c *ConnectFlowCommand) Execute(ctx context.Context, msg ConnectFlowMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect flow service is required")
	}
	out, err := c.service.ConnectFlow(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CancelFlowCommand struct {
	service MutatingService
}

func NewCancelFlowCommand(service MutatingService) *CancelFlowCommand {
	return &CancelFlowCommand{service: service}
}

func (c *CancelFlowCommand) Execute(ctx context.Context, msg CancelFlowMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: cancel flow service is required")
	}
	out, err := c.service.CancelFlow(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type PlanTariffCommand struct {
	service MutatingService
}

func NewPlanTariffCommand(service MutatingService) *PlanTariffCommand {
	return &PlanTariffCommand{service: service}
}

func (c *PlanTariffCommand) Execute(ctx context.Context, msg PlanTariffMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: tariff plan service is required")
	}
	draft, err := c.service.TariffPlan(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, draft)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
