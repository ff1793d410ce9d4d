package command

import (
	"strings"

	"github.com/goliatone/go-onboard/core"
)

const (
	TypeStartFlow     = "onboard.command.flow.start"
	TypeAuthoriseFlow = "onboard.command.flow.authorise"
	TypeConnectFlow   = "onboard.command.flow.connect"
	TypeCancelFlow    = "onboard.command.flow.cancel"
	TypePlanTariff    = "onboard.command.tariff.plan"
)

type StartFlowMessage struct {
	Request core.FlowRequest
}

func (StartFlowMessage) Type() string { return TypeStartFlow }

func (m StartFlowMessage) Validate() error {
	if strings.TrimSpace(m.Request.Authorization) == "" {
		return commandValidationError("authorization", "a credential proof is required")
	}
	return nil
}

type AuthoriseFlowMessage struct {
	Request core.FlowRequest
}

func (AuthoriseFlowMessage) Type() string { return TypeAuthoriseFlow }

func (m AuthoriseFlowMessage) Validate() error {
	if strings.TrimSpace(m.Request.Authorization) == "" {
		return commandValidationError("authorization", "a credential proof is required")
	}
	if strings.TrimSpace(m.Request.Token) == "" {
		return commandValidationError("state", "a state token is required")
	}
	if len(m.Request.Input) == 0 {
		return commandValidationError("input", "credential input is required")
	}
	return nil
}

type ConnectFlowMessage struct {
	Request core.FlowRequest
}

func (ConnectFlowMessage) Type() string { return TypeConnectFlow }

func (m ConnectFlowMessage) Validate() error {
	if strings.TrimSpace(m.Request.Authorization) == "" {
		return commandValidationError("authorization", "a credential proof is required")
	}
	if strings.TrimSpace(m.Request.Token) == "" {
		return commandValidationError("state", "a state token is required")
	}
	return nil
}

type CancelFlowMessage struct {
	Request core.FlowRequest
}

func (CancelFlowMessage) Type() string { return TypeCancelFlow }

func (m CancelFlowMessage) Validate() error {
	if strings.TrimSpace(m.Request.Token) == "" {
		return commandValidationError("state", "a state token is required")
	}
	return nil
}

type PlanTariffMessage struct {
	Input core.TariffPlanInput
}

func (PlanTariffMessage) Type() string { return TypePlanTariff }

func (m PlanTariffMessage) Validate() error {
	if len(m.Input.AuthMetadata.Data) == 0 {
		return commandValidationError("auth_metadata.data", "auth metadata is required")
	}
	return nil
}
