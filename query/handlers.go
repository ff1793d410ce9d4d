package query

import (
	"context"

	"github.com/goliatone/go-onboard/core"
)

// StateDecoder decodes a shared-state token. *core.StateCodec satisfies it.
type StateDecoder interface {
	Decode(token string) (*core.FlowState, error)
}

type ListActivityQuery struct {
	reader core.ActivityReader
}

func NewListActivityQuery(reader core.ActivityReader) *ListActivityQuery {
	return &ListActivityQuery{reader: reader}
}

func (q *ListActivityQuery) Query(ctx context.Context, msg ListActivityMessage) (core.ActivityPage, error) {
	if q == nil || q.reader == nil {
		return core.ActivityPage{}, queryDependencyError("query: activity reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}

// InspectStateQuery decodes a token into its schema-checked snapshot. It
// never exposes auth metadata; the public view is what an operator console
// is allowed to see.
type InspectStateQuery struct {
	decoder StateDecoder
}

func NewInspectStateQuery(decoder StateDecoder) *InspectStateQuery {
	return &InspectStateQuery{decoder: decoder}
}

func (q *InspectStateQuery) Query(_ context.Context, msg InspectStateMessage) (map[string]any, error) {
	if q == nil || q.decoder == nil {
		return nil, queryDependencyError("query: state decoder is required")
	}
	state, err := q.decoder.Decode(msg.Token)
	if err != nil {
		return nil, err
	}
	return state.Public().Snapshot(), nil
}
