package dto

import (
	"github.com/noah-isme/tutor-center-api/internal/models"
)

// MarkAttendanceRequest records a presence toggle for one student on a date.
type MarkAttendanceRequest struct {
	Date    string `json:"date" validate:"required"`
	Present bool   `json:"present"`
}

// OverrideSessionsRequest is the manual-edit payload for both counters.
// Pointers distinguish an explicit zero from a missing field.
type OverrideSessionsRequest struct {
	PaidSessions   *int `json:"paid_sessions" validate:"required,gte=0"`
	UnpaidSessions *int `json:"unpaid_sessions" validate:"required,gte=0"`
}

// ProjectionResponse is returned by every ledger mutation: the ledger after
// the write plus the derived view both consoles render.
type ProjectionResponse struct {
	StudentID       string              `json:"student_id"`
	Ledger          models.SessionLedger `json:"ledger"`
	Projection      models.DerivedView  `json:"projection"`
	PricePerSession float64             `json:"price_per_session"`
	Currency        string              `json:"currency"`
}

// StatementResponse is the full per-student view: ledger, projection and the
// recent mutation journal.
type StatementResponse struct {
	Student         models.Student        `json:"student"`
	Ledger          models.SessionLedger  `json:"ledger"`
	Projection      models.DerivedView    `json:"projection"`
	Events          []models.SessionEvent `json:"events"`
	PricePerSession float64               `json:"price_per_session"`
	Currency        string                `json:"currency"`
}

// RosterEntry is one console table row.
type RosterEntry struct {
	models.RosterRow
	Projection models.DerivedView `json:"projection"`
}

// RosterAggregate sums the filtered roster for the console footer.
type RosterAggregate struct {
	Students      int     `json:"students"`
	TotalSessions int     `json:"total_sessions"`
	AmountTotal   float64 `json:"amount_total"`
	AmountPaid    float64 `json:"amount_paid"`
	AmountDue     float64 `json:"amount_due"`
	PercentPaid   int     `json:"percent_paid"`
}

// RosterResponse is the cached listing consumed by both consoles.
type RosterResponse struct {
	Rows            []RosterEntry   `json:"rows"`
	Aggregate       RosterAggregate `json:"aggregate"`
	PricePerSession float64         `json:"price_per_session"`
	Currency        string          `json:"currency"`
}
