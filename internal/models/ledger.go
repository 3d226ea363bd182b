package models

import "time"

// SettlementStatus describes how much of a student's ledger has been paid.
// It is always derived from the two counters, never stored.
type SettlementStatus string

const (
	SettlementStatusPending SettlementStatus = "pending"
	SettlementStatusPartial SettlementStatus = "partial"
	SettlementStatusSettled SettlementStatus = "settled"
)

// Valid reports whether the status is one of the known values.
func (s SettlementStatus) Valid() bool {
	switch s {
	case SettlementStatusPending, SettlementStatusPartial, SettlementStatusSettled:
		return true
	}
	return false
}

// SessionLedger is the per-student record of paid and unpaid tutoring
// sessions. It is the single source of truth for both consoles; every
// monetary or percentage figure is recomputed from these counters on read.
type SessionLedger struct {
	ID                 string     `db:"id" json:"id"`
	StudentID          string     `db:"student_id" json:"student_id"`
	PaidSessions       int        `db:"paid_sessions" json:"paid_sessions"`
	UnpaidSessions     int        `db:"unpaid_sessions" json:"unpaid_sessions"`
	LastAttendanceDate *time.Time `db:"last_attendance_date" json:"last_attendance_date,omitempty"`
	LastSettlementDate *time.Time `db:"last_settlement_date" json:"last_settlement_date,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// TotalSessions returns the combined session count.
func (l SessionLedger) TotalSessions() int {
	return l.PaidSessions + l.UnpaidSessions
}

// Status derives the settlement status from the counters.
func (l SessionLedger) Status() SettlementStatus {
	switch {
	case l.UnpaidSessions == 0:
		return SettlementStatusSettled
	case l.PaidSessions > 0:
		return SettlementStatusPartial
	default:
		return SettlementStatusPending
	}
}

// DerivedView contains every display value computed from a ledger and the
// system price. Both the attendance and payments consoles render from this
// projection so they can never disagree.
type DerivedView struct {
	TotalSessions int              `json:"total_sessions"`
	AmountTotal   float64          `json:"amount_total"`
	AmountPaid    float64          `json:"amount_paid"`
	AmountDue     float64          `json:"amount_due"`
	PercentPaid   int              `json:"percent_paid"`
	Status        SettlementStatus `json:"status"`
}

// RosterRow joins a student with their ledger counters for console tables.
// Students without a ledger yet appear with zero counters.
type RosterRow struct {
	StudentID          string     `db:"student_id" json:"student_id"`
	StudentName        string     `db:"student_name" json:"student_name"`
	PaidSessions       int        `db:"paid_sessions" json:"paid_sessions"`
	UnpaidSessions     int        `db:"unpaid_sessions" json:"unpaid_sessions"`
	LastAttendanceDate *time.Time `db:"last_attendance_date" json:"last_attendance_date,omitempty"`
	LastSettlementDate *time.Time `db:"last_settlement_date" json:"last_settlement_date,omitempty"`
}

// RosterFilter captures the allowed search parameters for roster listings.
type RosterFilter struct {
	Search    string
	Status    *SettlementStatus
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
