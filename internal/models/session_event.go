package models

import "time"

// SessionEventType identifies the kind of ledger mutation recorded.
type SessionEventType string

const (
	SessionEventAttended   SessionEventType = "attended"
	SessionEventSettled    SessionEventType = "settled"
	SessionEventOverridden SessionEventType = "overridden"
)

// SessionEvent is one entry of the append-only ledger mutation journal. The
// counters snapshot the ledger after the mutation; the journal is never read
// back to rebuild state.
type SessionEvent struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	Type           SessionEventType `db:"event_type" json:"event_type"`
	PaidSessions   int              `db:"paid_sessions" json:"paid_sessions"`
	UnpaidSessions int              `db:"unpaid_sessions" json:"unpaid_sessions"`
	FromStatus     SettlementStatus `db:"from_status" json:"from_status"`
	ToStatus       SettlementStatus `db:"to_status" json:"to_status"`
	ActorID        *string          `db:"actor_id" json:"actor_id,omitempty"`
	OccurredAt     time.Time        `db:"occurred_at" json:"occurred_at"`
}
