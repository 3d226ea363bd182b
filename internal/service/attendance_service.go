package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/internal/statemachine"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

// rosterCachePattern matches every cached roster projection; busted on each
// ledger write so no derived value survives a mutation.
const rosterCachePattern = "ledger:roster:*"

type attendanceLedgerStore interface {
	Get(ctx context.Context, studentID string) (*models.SessionLedger, error)
	RecordAttendance(ctx context.Context, studentID string, date time.Time) (*models.SessionLedger, error)
}

type studentDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type eventJournal interface {
	Append(ctx context.Context, event *models.SessionEvent) error
}

type rosterCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AttendanceServiceConfig carries billing settings into responses.
type AttendanceServiceConfig struct {
	PricePerSession float64
	Currency        string
}

// AttendanceService translates presence marks into ledger mutations.
type AttendanceService struct {
	ledgers  attendanceLedgerStore
	students studentDirectory
	events   eventJournal
	cache    rosterCacheInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	config   AttendanceServiceConfig
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(ledgers attendanceLedgerStore, students studentDirectory, events eventJournal, cache rosterCacheInvalidator, metrics *MetricsService, logger *zap.Logger, cfg AttendanceServiceConfig) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{ledgers: ledgers, students: students, events: events, cache: cache, metrics: metrics, logger: logger, config: cfg}
}

// RecordAttendance handles one presence toggle. An absent mark never touches
// the ledger; a present mark adds exactly one unpaid session. Marks are not
// deduplicated by date: N present marks add N sessions.
func (s *AttendanceService) RecordAttendance(ctx context.Context, studentID string, date time.Time, present bool, actor *models.JWTClaims) (*dto.ProjectionResponse, error) {
	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to look up student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	if !present {
		ledger, err := s.currentLedger(ctx, studentID)
		if err != nil {
			return nil, err
		}
		return s.projectionResponse(studentID, *ledger), nil
	}

	stored, err := s.ledgers.RecordAttendance(ctx, studentID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to record attendance")
	}

	// the statement added exactly one unpaid session, so the prior status
	// follows from the stored counters
	prior := *stored
	prior.UnpaidSessions--
	machine := statemachine.NewSettlementFSM(prior.Status())
	if err := machine.Accrue(ctx, stored.Status()); err != nil {
		s.logger.Warn("unexpected settlement transition", zap.String("student_id", studentID), zap.Error(err))
	}

	s.appendEvent(ctx, models.SessionEventAttended, stored, prior.Status(), machine.Current(), actor)
	s.invalidateRoster(ctx)
	s.metrics.IncLedgerMutation("attendance")

	s.logger.Info("attendance recorded",
		zap.String("student_id", studentID),
		zap.Time("date", date),
		zap.Int("unpaid_sessions", stored.UnpaidSessions))

	return s.projectionResponse(studentID, *stored), nil
}

func (s *AttendanceService) currentLedger(ctx context.Context, studentID string) (*models.SessionLedger, error) {
	ledger, err := s.ledgers.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.SessionLedger{StudentID: studentID}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read ledger")
	}
	return ledger, nil
}

func (s *AttendanceService) projectionResponse(studentID string, ledger models.SessionLedger) *dto.ProjectionResponse {
	return &dto.ProjectionResponse{
		StudentID:       studentID,
		Ledger:          ledger,
		Projection:      Project(ledger, s.config.PricePerSession),
		PricePerSession: s.config.PricePerSession,
		Currency:        s.config.Currency,
	}
}

func (s *AttendanceService) appendEvent(ctx context.Context, eventType models.SessionEventType, ledger *models.SessionLedger, from, to models.SettlementStatus, actor *models.JWTClaims) {
	event := &models.SessionEvent{
		StudentID:      ledger.StudentID,
		Type:           eventType,
		PaidSessions:   ledger.PaidSessions,
		UnpaidSessions: ledger.UnpaidSessions,
		FromStatus:     from,
		ToStatus:       to,
	}
	if actor != nil {
		event.ActorID = &actor.UserID
	}
	if err := s.events.Append(ctx, event); err != nil {
		s.logger.Warn("failed to append session event", zap.String("student_id", ledger.StudentID), zap.Error(err))
	}
}

func (s *AttendanceService) invalidateRoster(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, rosterCachePattern); err != nil {
		s.logger.Warn("failed to invalidate roster cache", zap.Error(err))
	}
}
