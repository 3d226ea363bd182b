package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/internal/statemachine"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

type reconcilerLedgerStore interface {
	Get(ctx context.Context, studentID string) (*models.SessionLedger, error)
	Upsert(ctx context.Context, studentID string, paid, unpaid int) (*models.SessionLedger, error)
	SettleAll(ctx context.Context, studentID string, settledAt time.Time) (*models.SessionLedger, error)
}

// ReconcilerServiceConfig carries billing settings into responses.
type ReconcilerServiceConfig struct {
	PricePerSession float64
	Currency        string
}

// ReconcilerService moves sessions between the unpaid and paid pools under
// administrator control.
type ReconcilerService struct {
	ledgers   reconcilerLedgerStore
	students  studentDirectory
	events    eventJournal
	cache     rosterCacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    ReconcilerServiceConfig
}

// NewReconcilerService constructs a ReconcilerService.
func NewReconcilerService(ledgers reconcilerLedgerStore, students studentDirectory, events eventJournal, cache rosterCacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ReconcilerServiceConfig) *ReconcilerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcilerService{ledgers: ledgers, students: students, events: events, cache: cache, metrics: metrics, validator: validate, logger: logger, config: cfg}
}

// SettleAll reclassifies every unpaid session as paid. Total sessions are
// preserved and repeating the call is a no-op.
func (s *ReconcilerService) SettleAll(ctx context.Context, studentID string, actor *models.JWTClaims) (*dto.ProjectionResponse, error) {
	prior, err := s.ledgers.Get(ctx, studentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read ledger")
		}
		exists, lookupErr := s.students.Exists(ctx, studentID)
		if lookupErr != nil {
			return nil, appErrors.Wrap(lookupErr, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to look up student")
		}
		if !exists {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		// no sessions recorded yet: nothing to settle, nothing written
		empty := models.SessionLedger{StudentID: studentID}
		return s.projectionResponse(studentID, empty), nil
	}

	stored, err := s.ledgers.SettleAll(ctx, studentID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to settle ledger")
	}

	machine := statemachine.NewSettlementFSM(prior.Status())
	if err := machine.Settle(ctx); err != nil {
		s.logger.Warn("unexpected settlement transition", zap.String("student_id", studentID), zap.Error(err))
	}

	s.appendEvent(ctx, models.SessionEventSettled, stored, prior.Status(), machine.Current(), actor)
	s.invalidateRoster(ctx)
	s.metrics.IncLedgerMutation("settle_all")

	s.logger.Info("ledger settled",
		zap.String("student_id", studentID),
		zap.Int("paid_sessions", stored.PaidSessions),
		zap.Int("sessions_settled", prior.UnpaidSessions))

	return s.projectionResponse(studentID, *stored), nil
}

// Override sets both counters to administrator-supplied absolute values. It
// is a pure counter reset: the attendance and settlement timestamps are left
// untouched and the total session count may change.
func (s *ReconcilerService) Override(ctx context.Context, studentID string, req dto.OverrideSessionsRequest, actor *models.JWTClaims) (*dto.ProjectionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "both session counters must be integers >= 0")
	}
	paid := *req.PaidSessions
	unpaid := *req.UnpaidSessions
	if paid < 0 || unpaid < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session counters must not be negative")
	}

	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to look up student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	prior, err := s.currentLedger(ctx, studentID)
	if err != nil {
		return nil, err
	}

	stored, err := s.ledgers.Upsert(ctx, studentID, paid, unpaid)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to override ledger")
	}

	machine := statemachine.NewSettlementFSM(prior.Status())
	machine.Override(stored.Status())

	s.appendEvent(ctx, models.SessionEventOverridden, stored, prior.Status(), machine.Current(), actor)
	s.invalidateRoster(ctx)
	s.metrics.IncLedgerMutation("override")

	s.logger.Info("ledger overridden",
		zap.String("student_id", studentID),
		zap.Int("paid_sessions", stored.PaidSessions),
		zap.Int("unpaid_sessions", stored.UnpaidSessions))

	return s.projectionResponse(studentID, *stored), nil
}

func (s *ReconcilerService) currentLedger(ctx context.Context, studentID string) (*models.SessionLedger, error) {
	ledger, err := s.ledgers.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.SessionLedger{StudentID: studentID}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read ledger")
	}
	return ledger, nil
}

func (s *ReconcilerService) projectionResponse(studentID string, ledger models.SessionLedger) *dto.ProjectionResponse {
	return &dto.ProjectionResponse{
		StudentID:       studentID,
		Ledger:          ledger,
		Projection:      Project(ledger, s.config.PricePerSession),
		PricePerSession: s.config.PricePerSession,
		Currency:        s.config.Currency,
	}
}

func (s *ReconcilerService) appendEvent(ctx context.Context, eventType models.SessionEventType, ledger *models.SessionLedger, from, to models.SettlementStatus, actor *models.JWTClaims) {
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

func (s *ReconcilerService) invalidateRoster(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, rosterCachePattern); err != nil {
		s.logger.Warn("failed to invalidate roster cache", zap.Error(err))
	}
}
