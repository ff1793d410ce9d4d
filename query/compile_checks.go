package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-onboard/core"
)

var (
	_ gocmd.Querier[ListActivityMessage, core.ActivityPage] = (*ListActivityQuery)(nil)
	_ gocmd.Querier[InspectStateMessage, map[string]any]    = (*InspectStateQuery)(nil)
	_ StateDecoder                                          = (*core.StateCodec)(nil)
)
