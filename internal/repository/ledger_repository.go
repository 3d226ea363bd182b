package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

const ledgerColumns = `id, student_id, paid_sessions, unpaid_sessions, last_attendance_date, last_settlement_date, created_at, updated_at`

// statusExpr derives the settlement status in SQL so roster filtering matches
// the projector rule exactly.
const statusExpr = `CASE
WHEN COALESCE(l.unpaid_sessions, 0) = 0 THEN 'settled'
WHEN COALESCE(l.paid_sessions, 0) > 0 THEN 'partial'
ELSE 'pending' END`

// LedgerRepository is the single writer-facing store for session ledgers.
// Every mutation is a single SQL statement, so concurrent administrators can
// never lose each other's updates.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Get returns the ledger for a student. Callers receive sql.ErrNoRows when
// the student has no recorded sessions yet.
func (r *LedgerRepository) Get(ctx context.Context, studentID string) (*models.SessionLedger, error) {
	query := fmt.Sprintf(`SELECT %s FROM session_ledgers WHERE student_id = $1 LIMIT 1`, ledgerColumns)
	var ledger models.SessionLedger
	if err := r.db.GetContext(ctx, &ledger, query, studentID); err != nil {
		return nil, err
	}
	return &ledger, nil
}

// Upsert writes both counters atomically as absolute values. Negative
// counters are rejected before the statement runs.
func (r *LedgerRepository) Upsert(ctx context.Context, studentID string, paid, unpaid int) (*models.SessionLedger, error) {
	if paid < 0 || unpaid < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session counters must not be negative")
	}
	now := time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO session_ledgers (id, student_id, paid_sessions, unpaid_sessions, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (student_id)
DO UPDATE SET paid_sessions = EXCLUDED.paid_sessions, unpaid_sessions = EXCLUDED.unpaid_sessions, updated_at = EXCLUDED.updated_at
RETURNING %s`, ledgerColumns)
	var stored models.SessionLedger
	if err := r.db.GetContext(ctx, &stored, query, uuid.NewString(), studentID, paid, unpaid, now); err != nil {
		return nil, fmt.Errorf("upsert session ledger: %w", err)
	}
	return &stored, nil
}

// RecordAttendance adds exactly one unpaid session, creating the ledger
// lazily on first attendance. The increment happens inside the statement, so
// a concurrent settlement cannot be overwritten.
func (r *LedgerRepository) RecordAttendance(ctx context.Context, studentID string, date time.Time) (*models.SessionLedger, error) {
	now := time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO session_ledgers (id, student_id, paid_sessions, unpaid_sessions, last_attendance_date, created_at, updated_at)
VALUES ($1, $2, 0, 1, $3, $4, $4)
ON CONFLICT (student_id)
DO UPDATE SET unpaid_sessions = session_ledgers.unpaid_sessions + 1, last_attendance_date = EXCLUDED.last_attendance_date, updated_at = EXCLUDED.updated_at
RETURNING %s`, ledgerColumns)
	var stored models.SessionLedger
	if err := r.db.GetContext(ctx, &stored, query, uuid.NewString(), studentID, date, now); err != nil {
		return nil, fmt.Errorf("record attendance: %w", err)
	}
	return &stored, nil
}

// SettleAll reclassifies every unpaid session as paid in one statement. The
// total session count is preserved; settling twice is a no-op the second
// time. Returns sql.ErrNoRows when the student has no ledger.
func (r *LedgerRepository) SettleAll(ctx context.Context, studentID string, settledAt time.Time) (*models.SessionLedger, error) {
	query := fmt.Sprintf(`UPDATE session_ledgers
SET paid_sessions = paid_sessions + unpaid_sessions, unpaid_sessions = 0, last_settlement_date = $2, updated_at = $2
WHERE student_id = $1
RETURNING %s`, ledgerColumns)
	var stored models.SessionLedger
	if err := r.db.GetContext(ctx, &stored, query, studentID, settledAt); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListRoster returns students joined with their ledger counters. Students
// without a ledger appear with zero counters so consoles can render the full
// class list.
func (r *LedgerRepository) ListRoster(ctx context.Context, filter models.RosterFilter) ([]models.RosterRow, int, error) {
	base := `FROM students s
LEFT JOIN session_ledgers l ON l.student_id = s.id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("LOWER(s.full_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("(%s) = $%d", statusExpr, len(args)+1))
		args = append(args, string(*filter.Status))
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"name":            "s.full_name",
		"unpaid_sessions": "COALESCE(l.unpaid_sessions, 0)",
		"last_attendance": "l.last_attendance_date",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "s.full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id AS student_id, s.full_name AS student_name,
        COALESCE(l.paid_sessions, 0) AS paid_sessions, COALESCE(l.unpaid_sessions, 0) AS unpaid_sessions,
        l.last_attendance_date, l.last_settlement_date
        %s WHERE %s
        ORDER BY %s %s
        LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.RosterRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list roster: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count roster: %w", err)
	}
	return rows, total, nil
}
