package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

type stubRosterStore struct {
	ledger     *models.SessionLedger
	rows       []models.RosterRow
	total      int
	listErr    error
	listCalls  int
	lastFilter models.RosterFilter
}

func (s *stubRosterStore) Get(_ context.Context, studentID string) (*models.SessionLedger, error) {
	if s.ledger == nil {
		return nil, sql.ErrNoRows
	}
	copied := *s.ledger
	return &copied, nil
}

func (s *stubRosterStore) ListRoster(_ context.Context, filter models.RosterFilter) ([]models.RosterRow, int, error) {
	s.listCalls++
	s.lastFilter = filter
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.rows, s.total, nil
}

type stubStudentReader struct {
	student *models.Student
	err     error
}

func (s *stubStudentReader) FindByID(_ context.Context, id string) (*models.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.student == nil {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

type stubEventReader struct {
	events    []models.SessionEvent
	err       error
	lastLimit int
}

func (s *stubEventReader) ListByStudent(_ context.Context, _ string, limit int) ([]models.SessionEvent, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func newTestLedgerService(ledgers *stubRosterStore, students *stubStudentReader, events *stubEventReader, cache *stubRosterCache) *LedgerService {
	return NewLedgerService(ledgers, students, events, cache, nil, nil, LedgerServiceConfig{
		PricePerSession: 25,
		Currency:        "USD",
		EventHistoryMax: 20,
	})
}

func TestLedgerServiceGetStatement(t *testing.T) {
	ledgers := &stubRosterStore{ledger: &models.SessionLedger{StudentID: "student-1", PaidSessions: 2, UnpaidSessions: 3}}
	events := &stubEventReader{events: []models.SessionEvent{{StudentID: "student-1", Type: models.SessionEventAttended}}}
	svc := newTestLedgerService(ledgers, &stubStudentReader{student: &models.Student{ID: "student-1", FullName: "Budi"}}, events, &stubRosterCache{})

	resp, err := svc.GetStatement(context.Background(), "student-1")
	require.NoError(t, err)

	assert.Equal(t, "Budi", resp.Student.FullName)
	assert.Equal(t, 5, resp.Projection.TotalSessions)
	assert.Equal(t, 40, resp.Projection.PercentPaid)
	assert.Len(t, resp.Events, 1)
	assert.Equal(t, 20, events.lastLimit)
	assert.Equal(t, 25.0, resp.PricePerSession)
}

func TestLedgerServiceGetStatementNoLedger(t *testing.T) {
	svc := newTestLedgerService(&stubRosterStore{}, &stubStudentReader{student: &models.Student{ID: "student-1", FullName: "Budi"}}, &stubEventReader{}, &stubRosterCache{})

	resp, err := svc.GetStatement(context.Background(), "student-1")
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Projection.TotalSessions)
	assert.Equal(t, models.SettlementStatusSettled, resp.Projection.Status)
}

func TestLedgerServiceGetStatementStudentNotFound(t *testing.T) {
	svc := newTestLedgerService(&stubRosterStore{}, &stubStudentReader{}, &stubEventReader{}, &stubRosterCache{})

	_, err := svc.GetStatement(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLedgerServiceListRoster(t *testing.T) {
	ledgers := &stubRosterStore{
		rows: []models.RosterRow{
			{StudentID: "student-1", StudentName: "Budi", PaidSessions: 2, UnpaidSessions: 3},
			{StudentID: "student-2", StudentName: "Sari", PaidSessions: 4, UnpaidSessions: 0},
		},
		total: 2,
	}
	svc := newTestLedgerService(ledgers, &stubStudentReader{}, &stubEventReader{}, &stubRosterCache{})

	resp, pagination, hit, err := svc.ListRoster(context.Background(), models.RosterFilter{})
	require.NoError(t, err)
	assert.False(t, hit)

	require.Len(t, resp.Rows, 2)
	assert.Equal(t, models.SettlementStatusPartial, resp.Rows[0].Projection.Status)
	assert.Equal(t, models.SettlementStatusSettled, resp.Rows[1].Projection.Status)

	assert.Equal(t, 2, resp.Aggregate.Students)
	assert.Equal(t, 9, resp.Aggregate.TotalSessions)
	assert.Equal(t, 225.0, resp.Aggregate.AmountTotal)
	assert.Equal(t, 150.0, resp.Aggregate.AmountPaid)
	assert.Equal(t, 75.0, resp.Aggregate.AmountDue)
	assert.Equal(t, 67, resp.Aggregate.PercentPaid)

	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
}

func TestLedgerServiceListRosterCacheRoundTrip(t *testing.T) {
	ledgers := &stubRosterStore{
		rows:  []models.RosterRow{{StudentID: "student-1", StudentName: "Budi", UnpaidSessions: 1}},
		total: 1,
	}
	cache := &stubRosterCache{}
	svc := newTestLedgerService(ledgers, &stubStudentReader{}, &stubEventReader{}, cache)

	_, _, hit, err := svc.ListRoster(context.Background(), models.RosterFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, ledgers.listCalls)

	resp, pagination, hit, err := svc.ListRoster(context.Background(), models.RosterFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, ledgers.listCalls, "a cache hit must not reach the store")
	assert.Len(t, resp.Rows, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestLedgerServiceListRosterDistinctFiltersMiss(t *testing.T) {
	ledgers := &stubRosterStore{}
	cache := &stubRosterCache{}
	svc := newTestLedgerService(ledgers, &stubStudentReader{}, &stubEventReader{}, cache)

	_, _, _, err := svc.ListRoster(context.Background(), models.RosterFilter{Search: "bud"})
	require.NoError(t, err)
	_, _, hit, err := svc.ListRoster(context.Background(), models.RosterFilter{Search: "sar"})
	require.NoError(t, err)

	assert.False(t, hit)
	assert.Equal(t, 2, ledgers.listCalls)
}

func TestLedgerServiceListRosterWithoutCache(t *testing.T) {
	ledgers := &stubRosterStore{}
	svc := NewLedgerService(ledgers, &stubStudentReader{}, &stubEventReader{}, nil, nil, nil, LedgerServiceConfig{PricePerSession: 25})

	_, _, hit, err := svc.ListRoster(context.Background(), models.RosterFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, ledgers.listCalls)
}
