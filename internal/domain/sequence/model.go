package sequence

import (
	"time"
)

// Counter is the persisted last-issued number of one scope's numbering
// stream. Exactly one row exists per scope key, created lazily on first
// allocation. LastIssued never decreases.
type Counter struct {
	ScopeKey   string    `db:"scope_key" json:"scope_key"`
	LastIssued int64     `db:"last_issued" json:"last_issued"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
