package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

type ledgerViewStore interface {
	Get(ctx context.Context, studentID string) (*models.SessionLedger, error)
	ListRoster(ctx context.Context, filter models.RosterFilter) ([]models.RosterRow, int, error)
}

type statementStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type statementEventReader interface {
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.SessionEvent, error)
}

type rosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// LedgerServiceConfig tunes projection reads.
type LedgerServiceConfig struct {
	PricePerSession float64
	Currency        string
	RosterCacheTTL  time.Duration
	EventHistoryMax int
}

// LedgerService serves the read side of both consoles: per-student
// statements and the cached roster projection listing.
type LedgerService struct {
	ledgers  ledgerViewStore
	students statementStudentReader
	events   statementEventReader
	cache    rosterCache
	metrics  *MetricsService
	logger   *zap.Logger
	config   LedgerServiceConfig
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(ledgers ledgerViewStore, students statementStudentReader, events statementEventReader, cache rosterCache, metrics *MetricsService, logger *zap.Logger, cfg LedgerServiceConfig) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EventHistoryMax <= 0 {
		cfg.EventHistoryMax = 50
	}
	return &LedgerService{ledgers: ledgers, students: students, events: events, cache: cache, metrics: metrics, logger: logger, config: cfg}
}

// GetStatement returns the student, their ledger, its projection and the
// recent mutation journal. Students with no recorded sessions get a
// zero-counter ledger.
func (s *LedgerService) GetStatement(ctx context.Context, studentID string) (*dto.StatementResponse, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read student")
	}

	ledger, err := s.ledgers.Get(ctx, studentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read ledger")
		}
		ledger = &models.SessionLedger{StudentID: studentID}
	}

	events, err := s.events.ListByStudent(ctx, studentID, s.config.EventHistoryMax)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read session events")
	}

	return &dto.StatementResponse{
		Student:         *student,
		Ledger:          *ledger,
		Projection:      Project(*ledger, s.config.PricePerSession),
		Events:          events,
		PricePerSession: s.config.PricePerSession,
		Currency:        s.config.Currency,
	}, nil
}

type cachedRoster struct {
	Response   dto.RosterResponse `json:"response"`
	Pagination models.Pagination  `json:"pagination"`
}

// ListRoster returns projected rows plus the aggregate footer for the
// filtered roster. Results are cached until the next ledger mutation or TTL
// expiry; the second return value reports a cache hit.
func (s *LedgerService) ListRoster(ctx context.Context, filter models.RosterFilter) (*dto.RosterResponse, *models.Pagination, bool, error) {
	key := rosterCacheKey(filter)
	if s.cache != nil {
		var cached cachedRoster
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached.Response, &cached.Pagination, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("roster cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	rows, total, err := s.ledgers.ListRoster(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list roster")
	}

	entries := make([]dto.RosterEntry, 0, len(rows))
	aggregate := dto.RosterAggregate{Students: total}
	var paidSessions int
	for _, row := range rows {
		ledger := models.SessionLedger{
			StudentID:      row.StudentID,
			PaidSessions:   row.PaidSessions,
			UnpaidSessions: row.UnpaidSessions,
		}
		projection := Project(ledger, s.config.PricePerSession)
		entries = append(entries, dto.RosterEntry{RosterRow: row, Projection: projection})

		aggregate.TotalSessions += projection.TotalSessions
		aggregate.AmountTotal += projection.AmountTotal
		aggregate.AmountPaid += projection.AmountPaid
		aggregate.AmountDue += projection.AmountDue
		paidSessions += row.PaidSessions
	}
	if aggregate.TotalSessions > 0 {
		aggregate.PercentPaid = int(math.Round(100 * float64(paidSessions) / float64(aggregate.TotalSessions)))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	pagination := models.Pagination{Page: page, PageSize: size, TotalCount: total}

	response := dto.RosterResponse{
		Rows:            entries,
		Aggregate:       aggregate,
		PricePerSession: s.config.PricePerSession,
		Currency:        s.config.Currency,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedRoster{Response: response, Pagination: pagination}, s.config.RosterCacheTTL); err != nil {
			s.logger.Warn("roster cache write failed", zap.Error(err))
		}
	}

	return &response, &pagination, false, nil
}

func rosterCacheKey(filter models.RosterFilter) string {
	status := ""
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	active := ""
	if filter.Active != nil {
		active = fmt.Sprintf("%t", *filter.Active)
	}
	return fmt.Sprintf("ledger:roster:%s:%s:%s:%d:%d:%s:%s",
		filter.Search, status, active, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}
