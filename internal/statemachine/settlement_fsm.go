package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

// SettlementFSM tracks the settlement status of a ledger across mutations.
// The authoritative status is always derived from the counters; the machine
// validates the transition and supplies the from/to pair recorded in the
// session event journal.
type SettlementFSM struct {
	fsm *fsm.FSM
}

// NewSettlementFSM creates a machine positioned at the ledger's current status.
func NewSettlementFSM(current models.SettlementStatus) *SettlementFSM {
	if !current.Valid() {
		current = models.SettlementStatusPending
	}

	m := fsm.NewFSM(
		string(current),
		fsm.Events{
			// settle-all reclassifies every unpaid session, from any state
			{Name: "settle", Src: []string{
				string(models.SettlementStatusPending),
				string(models.SettlementStatusPartial),
				string(models.SettlementStatusSettled),
			}, Dst: string(models.SettlementStatusSettled)},

			// attendance adds an unpaid session; destination depends on
			// whether any paid sessions exist
			{Name: "accrue_unpaid", Src: []string{
				string(models.SettlementStatusPending),
				string(models.SettlementStatusSettled),
			}, Dst: string(models.SettlementStatusPending)},

			{Name: "accrue_partial", Src: []string{
				string(models.SettlementStatusPartial),
				string(models.SettlementStatusSettled),
			}, Dst: string(models.SettlementStatusPartial)},
		},
		fsm.Callbacks{},
	)

	return &SettlementFSM{fsm: m}
}

// Current returns the machine's status.
func (m *SettlementFSM) Current() models.SettlementStatus {
	return models.SettlementStatus(m.fsm.Current())
}

// Settle transitions to settled regardless of the starting state.
func (m *SettlementFSM) Settle(ctx context.Context) error {
	return m.event(ctx, "settle")
}

// Accrue transitions to the status the new unpaid session produces.
func (m *SettlementFSM) Accrue(ctx context.Context, to models.SettlementStatus) error {
	switch to {
	case models.SettlementStatusPending:
		return m.event(ctx, "accrue_unpaid")
	case models.SettlementStatusPartial:
		return m.event(ctx, "accrue_partial")
	default:
		return fmt.Errorf("attendance cannot move ledger to status %q", to)
	}
}

// Override forces the machine to the given status. An administrator override
// is an unconditional counter rewrite, so it bypasses the event table.
func (m *SettlementFSM) Override(to models.SettlementStatus) {
	if !to.Valid() {
		to = models.SettlementStatusPending
	}
	m.fsm.SetState(string(to))
}

func (m *SettlementFSM) event(ctx context.Context, name string) error {
	err := m.fsm.Event(ctx, name)
	if err == nil {
		return nil
	}
	// staying in the same state is fine: the counters changed even when the
	// derived status did not (e.g. settling an already settled ledger)
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return fmt.Errorf("settlement transition %s from %s: %w", name, m.fsm.Current(), err)
}
