package domain

import "time"

// AuditEntry is one recorded action.
type AuditEntry struct {
	ID        int64
	AccountID int64
	ActorName string // empty when the account no longer exists
	Action    string
	IP        string
	At        time.Time
}
