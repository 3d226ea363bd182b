package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

func TestSettlementFSMSettle(t *testing.T) {
	ctx := context.Background()

	for _, from := range []models.SettlementStatus{
		models.SettlementStatusPending,
		models.SettlementStatusPartial,
		models.SettlementStatusSettled,
	} {
		t.Run(string(from), func(t *testing.T) {
			m := NewSettlementFSM(from)
			require.NoError(t, m.Settle(ctx))
			assert.Equal(t, models.SettlementStatusSettled, m.Current())
		})
	}
}

func TestSettlementFSMAccrue(t *testing.T) {
	ctx := context.Background()

	t.Run("pending stays pending", func(t *testing.T) {
		m := NewSettlementFSM(models.SettlementStatusPending)
		require.NoError(t, m.Accrue(ctx, models.SettlementStatusPending))
		assert.Equal(t, models.SettlementStatusPending, m.Current())
	})

	t.Run("settled to pending when nothing was paid", func(t *testing.T) {
		m := NewSettlementFSM(models.SettlementStatusSettled)
		require.NoError(t, m.Accrue(ctx, models.SettlementStatusPending))
		assert.Equal(t, models.SettlementStatusPending, m.Current())
	})

	t.Run("settled to partial after payments", func(t *testing.T) {
		m := NewSettlementFSM(models.SettlementStatusSettled)
		require.NoError(t, m.Accrue(ctx, models.SettlementStatusPartial))
		assert.Equal(t, models.SettlementStatusPartial, m.Current())
	})

	t.Run("partial stays partial", func(t *testing.T) {
		m := NewSettlementFSM(models.SettlementStatusPartial)
		require.NoError(t, m.Accrue(ctx, models.SettlementStatusPartial))
		assert.Equal(t, models.SettlementStatusPartial, m.Current())
	})

	t.Run("rejects accrual into settled", func(t *testing.T) {
		m := NewSettlementFSM(models.SettlementStatusPending)
		err := m.Accrue(ctx, models.SettlementStatusSettled)
		require.Error(t, err)
		assert.Equal(t, models.SettlementStatusPending, m.Current())
	})
}

func TestSettlementFSMOverride(t *testing.T) {
	m := NewSettlementFSM(models.SettlementStatusSettled)
	m.Override(models.SettlementStatusPartial)
	assert.Equal(t, models.SettlementStatusPartial, m.Current())

	m.Override(models.SettlementStatus("bogus"))
	assert.Equal(t, models.SettlementStatusPending, m.Current())
}

func TestNewSettlementFSMInvalidStart(t *testing.T) {
	m := NewSettlementFSM(models.SettlementStatus(""))
	assert.Equal(t, models.SettlementStatusPending, m.Current())
}
