package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type activityEntryRecord struct {
	bun.BaseModel `bun:"table:onboard_activity_entries,alias:oae"`

	ID         string    `bun:"id,pk"`
	RequestID  string    `bun:"request_id,notnull"`
	ProviderID string    `bun:"provider_id,notnull"`
	Operation  string    `bun:"operation,notnull"`
	Outcome    string    `bun:"outcome,notnull"`
	Detail     string    `bun:"detail"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
