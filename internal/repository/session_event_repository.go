package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

// SessionEventRepository persists the append-only ledger mutation journal.
type SessionEventRepository struct {
	db *sqlx.DB
}

// NewSessionEventRepository constructs the repository.
func NewSessionEventRepository(db *sqlx.DB) *SessionEventRepository {
	return &SessionEventRepository{db: db}
}

// Append inserts one journal entry. Entries are never updated or deleted.
func (r *SessionEventRepository) Append(ctx context.Context, event *models.SessionEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO session_events (id, student_id, event_type, paid_sessions, unpaid_sessions, from_status, to_status, actor_id, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query, event.ID, event.StudentID, event.Type, event.PaidSessions, event.UnpaidSessions, event.FromStatus, event.ToStatus, event.ActorID, event.OccurredAt); err != nil {
		return fmt.Errorf("append session event: %w", err)
	}
	return nil
}

// ListByStudent returns the most recent journal entries for one student.
func (r *SessionEventRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.SessionEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, student_id, event_type, paid_sessions, unpaid_sessions, from_status, to_status, actor_id, occurred_at
FROM session_events WHERE student_id = $1
ORDER BY occurred_at DESC
LIMIT %d`, limit)
	var events []models.SessionEvent
	if err := r.db.SelectContext(ctx, &events, query, studentID); err != nil {
		return nil, fmt.Errorf("list session events: %w", err)
	}
	return events, nil
}
