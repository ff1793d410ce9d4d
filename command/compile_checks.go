package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[StartFlowMessage]     = (*StartFlowCommand)(nil)
	_ gocmd.Commander[AuthoriseFlowMessage] = (*AuthoriseFlowCommand)(nil)
	_ gocmd.Commander[ConnectFlowMessage]   = (*ConnectFlowCommand)(nil)
	_ gocmd.Commander[CancelFlowMessage]    = (*CancelFlowCommand)(nil)
	_ gocmd.Commander[PlanTariffMessage]    = (*PlanTariffCommand)(nil)
)
