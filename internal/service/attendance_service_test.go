package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

// stubLedgerStore keeps a single in-memory ledger and mirrors the repository's
// single-statement semantics.
type stubLedgerStore struct {
	ledger          *models.SessionLedger
	getErr          error
	attendErr       error
	settleErr       error
	upsertErr       error
	attendanceCalls int
	settleCalls     int
	upsertCalls     int
}

func (s *stubLedgerStore) Get(_ context.Context, studentID string) (*models.SessionLedger, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.ledger == nil {
		return nil, sql.ErrNoRows
	}
	copied := *s.ledger
	return &copied, nil
}

func (s *stubLedgerStore) RecordAttendance(_ context.Context, studentID string, date time.Time) (*models.SessionLedger, error) {
	s.attendanceCalls++
	if s.attendErr != nil {
		return nil, s.attendErr
	}
	if s.ledger == nil {
		s.ledger = &models.SessionLedger{ID: "ledger-1", StudentID: studentID}
	}
	s.ledger.UnpaidSessions++
	s.ledger.LastAttendanceDate = &date
	copied := *s.ledger
	return &copied, nil
}

func (s *stubLedgerStore) SettleAll(_ context.Context, studentID string, settledAt time.Time) (*models.SessionLedger, error) {
	s.settleCalls++
	if s.settleErr != nil {
		return nil, s.settleErr
	}
	if s.ledger == nil {
		return nil, sql.ErrNoRows
	}
	s.ledger.PaidSessions += s.ledger.UnpaidSessions
	s.ledger.UnpaidSessions = 0
	s.ledger.LastSettlementDate = &settledAt
	copied := *s.ledger
	return &copied, nil
}

func (s *stubLedgerStore) Upsert(_ context.Context, studentID string, paid, unpaid int) (*models.SessionLedger, error) {
	s.upsertCalls++
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	if paid < 0 || unpaid < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session counters must not be negative")
	}
	if s.ledger == nil {
		s.ledger = &models.SessionLedger{ID: "ledger-1", StudentID: studentID}
	}
	s.ledger.PaidSessions = paid
	s.ledger.UnpaidSessions = unpaid
	copied := *s.ledger
	return &copied, nil
}

type stubStudentDirectory struct {
	exists bool
	err    error
}

func (s *stubStudentDirectory) Exists(_ context.Context, _ string) (bool, error) {
	return s.exists, s.err
}

type stubEventJournal struct {
	events []*models.SessionEvent
	err    error
}

func (s *stubEventJournal) Append(_ context.Context, event *models.SessionEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubRosterCache struct {
	store          map[string][]byte
	deletePatterns []string
	getErr         error
	setErr         error
}

func (s *stubRosterCache) Get(_ context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	raw, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubRosterCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.store == nil {
		s.store = map[string][]byte{}
	}
	s.store[key] = raw
	return nil
}

func (s *stubRosterCache) DeleteByPattern(_ context.Context, pattern string) error {
	s.deletePatterns = append(s.deletePatterns, pattern)
	s.store = nil
	return nil
}

func newTestAttendanceService(ledgers *stubLedgerStore, students *stubStudentDirectory, journal *stubEventJournal, cache *stubRosterCache) *AttendanceService {
	return NewAttendanceService(ledgers, students, journal, cache, nil, nil, AttendanceServiceConfig{PricePerSession: 25, Currency: "USD"})
}

func TestAttendanceServicePresentMark(t *testing.T) {
	ledgers := &stubLedgerStore{}
	journal := &stubEventJournal{}
	cache := &stubRosterCache{}
	svc := newTestAttendanceService(ledgers, &stubStudentDirectory{exists: true}, journal, cache)

	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	resp, err := svc.RecordAttendance(context.Background(), "student-1", date, true, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Ledger.UnpaidSessions)
	assert.Equal(t, 0, resp.Ledger.PaidSessions)
	assert.Equal(t, 25.0, resp.Projection.AmountDue)
	assert.Equal(t, models.SettlementStatusPending, resp.Projection.Status)
	assert.Equal(t, 1, ledgers.attendanceCalls)

	require.Len(t, journal.events, 1)
	event := journal.events[0]
	assert.Equal(t, models.SessionEventAttended, event.Type)
	assert.Equal(t, models.SettlementStatusSettled, event.FromStatus)
	assert.Equal(t, models.SettlementStatusPending, event.ToStatus)
	require.NotNil(t, event.ActorID)
	assert.Equal(t, "admin-1", *event.ActorID)

	assert.Equal(t, []string{"ledger:roster:*"}, cache.deletePatterns)
}

func TestAttendanceServiceAbsentMarkIsNoOp(t *testing.T) {
	ledgers := &stubLedgerStore{ledger: &models.SessionLedger{StudentID: "student-1", PaidSessions: 2, UnpaidSessions: 3}}
	journal := &stubEventJournal{}
	cache := &stubRosterCache{}
	svc := newTestAttendanceService(ledgers, &stubStudentDirectory{exists: true}, journal, cache)

	resp, err := svc.RecordAttendance(context.Background(), "student-1", time.Now(), false, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Ledger.UnpaidSessions)
	assert.Equal(t, 0, ledgers.attendanceCalls)
	assert.Empty(t, journal.events)
	assert.Empty(t, cache.deletePatterns)
}

func TestAttendanceServiceAbsentMarkUnknownLedger(t *testing.T) {
	svc := newTestAttendanceService(&stubLedgerStore{}, &stubStudentDirectory{exists: true}, &stubEventJournal{}, &stubRosterCache{})

	resp, err := svc.RecordAttendance(context.Background(), "student-1", time.Now(), false, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Projection.TotalSessions)
	assert.Equal(t, 0, resp.Projection.PercentPaid)
}

func TestAttendanceServiceRepeatedMarksAccumulate(t *testing.T) {
	ledgers := &stubLedgerStore{}
	svc := newTestAttendanceService(ledgers, &stubStudentDirectory{exists: true}, &stubEventJournal{}, &stubRosterCache{})

	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := svc.RecordAttendance(context.Background(), "student-1", date, true, nil)
		require.NoError(t, err)
	}

	// same-day marks are not deduplicated
	assert.Equal(t, 3, ledgers.ledger.UnpaidSessions)
}

func TestAttendanceServiceStudentNotFound(t *testing.T) {
	ledgers := &stubLedgerStore{}
	svc := newTestAttendanceService(ledgers, &stubStudentDirectory{exists: false}, &stubEventJournal{}, &stubRosterCache{})

	_, err := svc.RecordAttendance(context.Background(), "ghost", time.Now(), true, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, ledgers.attendanceCalls)
}

func TestAttendanceServiceJournalFailureDoesNotBlock(t *testing.T) {
	ledgers := &stubLedgerStore{}
	journal := &stubEventJournal{err: assert.AnError}
	svc := newTestAttendanceService(ledgers, &stubStudentDirectory{exists: true}, journal, &stubRosterCache{})

	resp, err := svc.RecordAttendance(context.Background(), "student-1", time.Now(), true, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Ledger.UnpaidSessions)
}

func TestAttendanceServicePartialLedgerStaysPartial(t *testing.T) {
	ledgers := &stubLedgerStore{ledger: &models.SessionLedger{StudentID: "student-1", PaidSessions: 2, UnpaidSessions: 1}}
	journal := &stubEventJournal{}
	svc := newTestAttendanceService(ledgers, &stubStudentDirectory{exists: true}, journal, &stubRosterCache{})

	resp, err := svc.RecordAttendance(context.Background(), "student-1", time.Now(), true, nil)
	require.NoError(t, err)

	assert.Equal(t, models.SettlementStatusPartial, resp.Projection.Status)
	require.Len(t, journal.events, 1)
	assert.Equal(t, models.SettlementStatusPartial, journal.events[0].FromStatus)
	assert.Equal(t, models.SettlementStatusPartial, journal.events[0].ToStatus)
}
