package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

func TestSessionEventRepositoryAppend(t *testing.T) {
	db, mock, cleanup := newLedgerMock(t)
	defer cleanup()
	repo := NewSessionEventRepository(db)

	mock.ExpectExec("INSERT INTO session_events").
		WithArgs(sqlmock.AnyArg(), "student-1", models.SessionEventAttended, 0, 1, models.SettlementStatusSettled, models.SettlementStatusPending, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.SessionEvent{
		StudentID:      "student-1",
		Type:           models.SessionEventAttended,
		PaidSessions:   0,
		UnpaidSessions: 1,
		FromStatus:     models.SettlementStatusSettled,
		ToStatus:       models.SettlementStatusPending,
	}
	require.NoError(t, repo.Append(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.OccurredAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionEventRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newLedgerMock(t)
	defer cleanup()
	repo := NewSessionEventRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "event_type", "paid_sessions", "unpaid_sessions", "from_status", "to_status", "actor_id", "occurred_at"}).
		AddRow("event-2", "student-1", "settled", 3, 0, "pending", "settled", "admin-1", time.Now()).
		AddRow("event-1", "student-1", "attended", 0, 3, "settled", "pending", nil, time.Now().Add(-time.Hour))
	mock.ExpectQuery("SELECT .* FROM session_events WHERE student_id").
		WithArgs("student-1").
		WillReturnRows(rows)

	events, err := repo.ListByStudent(context.Background(), "student-1", 20)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.SessionEventSettled, events[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
