package query

import (
	"strings"

	"github.com/goliatone/go-onboard/core"
)

const (
	TypeListActivity = "onboard.query.activity.list"
	TypeInspectState = "onboard.query.state.inspect"
)

type ListActivityMessage struct {
	Filter core.ActivityFilter
}

func (ListActivityMessage) Type() string { return TypeListActivity }

func (m ListActivityMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	return nil
}

type InspectStateMessage struct {
	Token string
}

func (InspectStateMessage) Type() string { return TypeInspectState }

func (m InspectStateMessage) Validate() error {
	if strings.TrimSpace(m.Token) == "" {
		return queryValidationError("state", "a state token is required")
	}
	return nil
}
