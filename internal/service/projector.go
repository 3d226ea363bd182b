package service

import (
	"math"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

// Project computes every display value from a ledger and the system-wide
// session price. It is a pure function: both the attendance and payments
// consoles render from its output over the same ledger read, which is what
// keeps the two views consistent.
func Project(ledger models.SessionLedger, price float64) models.DerivedView {
	total := ledger.TotalSessions()
	view := models.DerivedView{
		TotalSessions: total,
		AmountTotal:   float64(total) * price,
		AmountPaid:    float64(ledger.PaidSessions) * price,
		AmountDue:     float64(ledger.UnpaidSessions) * price,
		Status:        ledger.Status(),
	}
	if total > 0 {
		view.PercentPaid = int(math.Round(100 * float64(ledger.PaidSessions) / float64(total)))
	}
	return view
}
