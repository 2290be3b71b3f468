package activity

import "context"

// Mirror stores the raw event audit trail, separate from the aggregated
// attendance record. Writes are best-effort: attendance operations log
// mirror failures and carry on.
type Mirror interface {
	Upsert(ctx context.Context, ev Event) error
}
