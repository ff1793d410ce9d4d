package sqlstore

import "github.com/goliatone/go-onboard/core"

var (
	_ core.ActivityRecorder        = (*ActivityStore)(nil)
	_ core.ActivityReader          = (*ActivityStore)(nil)
	_ core.ActivityRetentionPruner = (*ActivityStore)(nil)
)
