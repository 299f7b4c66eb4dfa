package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"unihub/internal/events"
	"unihub/internal/models"
	"unihub/internal/repositories"
	"unihub/internal/validation"
)

// gamificationService implements GamificationService
type gamificationService struct {
	repos       *repositories.Collection
	tx          TransactionService
	ladders     *LadderLoader
	transitions *BadgeTransitionEngine
	leaderboard LeaderboardService
	events      events.EventBus
	logger      *zap.Logger
}

// NewGamificationService creates the points facade. Every committed mutation
// drops cached rankings before returning and is announced on bus; leaderboard
// and bus may be nil.
func NewGamificationService(
	repos *repositories.Collection,
	tx TransactionService,
	ladders *LadderLoader,
	leaderboard LeaderboardService,
	bus events.EventBus,
	logger *zap.Logger,
) GamificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gamificationService{
		repos:       repos,
		tx:          tx,
		ladders:     ladders,
		transitions: NewBadgeTransitionEngine(logger),
		leaderboard: leaderboard,
		events:      bus,
		logger:      logger.With(zap.String("component", "gamification_service")),
	}
}

// pointsMutation is an award or deduction after request validation
type pointsMutation struct {
	userID          int64
	delta           int
	sourceType      models.SourceType
	sourceID        *int64
	description     string
	notifyDashboard bool
}

// ===============================
// POINTS MUTATIONS
// ===============================

// AwardPoints adds points and promotes the user if a higher tier is reached
func (s *gamificationService) AwardPoints(ctx context.Context, req *AwardPointsRequest) (*PointsResult, error) {
	if req == nil {
		return nil, NewValidationError("award request is required", nil)
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid award points request", err)
	}

	return s.apply(ctx, "award_points", pointsMutation{
		userID:          req.UserID,
		delta:           req.Amount,
		sourceType:      req.SourceType,
		sourceID:        req.SourceID,
		description:     req.Description,
		notifyDashboard: req.NotifyDashboard,
	})
}

// DeductPoints removes points, flooring at zero, and demotes the user if the
// current tier is no longer met. The ledger keeps the full requested amount.
func (s *gamificationService) DeductPoints(ctx context.Context, req *DeductPointsRequest) (*PointsResult, error) {
	if req == nil {
		return nil, NewValidationError("deduct request is required", nil)
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid deduct points request", err)
	}

	return s.apply(ctx, "deduct_points", pointsMutation{
		userID:      req.UserID,
		delta:       -req.Amount,
		sourceType:  req.SourceType,
		sourceID:    req.SourceID,
		description: req.Description,
	})
}

func (s *gamificationService) apply(ctx context.Context, operation string, m pointsMutation) (*PointsResult, error) {
	// a started mutation runs to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	// loaded outside the transaction: tiers are read-mostly and change only at setup
	ladder, err := s.ladders.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load badge ladder", zap.Error(err))
		return nil, NewInternalError("failed to load badge tiers").WithCause(err)
	}

	var (
		result     *PointsResult
		transition *BadgeTransition
	)
	err = s.tx.ExecuteWithRetry(ctx, operation, func(uow repositories.UnitOfWork) error {
		result, transition = nil, nil

		balance, err := uow.Balances().GetForUpdate(ctx, m.userID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return EntityNotFoundError("user", m.userID)
			}
			return fmt.Errorf("lock balance: %w", err)
		}

		entryID, err := uow.Ledger().Append(ctx, &models.PointsLedgerEntry{
			UserID:      m.userID,
			SourceType:  m.sourceType,
			SourceID:    m.sourceID,
			Delta:       m.delta,
			Description: m.description,
		})
		if err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		points, err := uow.Balances().ApplyDelta(ctx, m.userID, m.delta)
		if err != nil {
			return fmt.Errorf("apply delta: %w", err)
		}

		after := balance.Clone()
		after.Points = points
		if m.delta > 0 {
			transition, err = s.transitions.CheckPromotion(ctx, uow, ladder, after)
		} else {
			transition, err = s.transitions.CheckDemotion(ctx, uow, ladder, after)
		}
		if err != nil {
			return err
		}

		current := currentBadge(ladder, balance.CurrentBadgeID)
		if transition != nil {
			current = transition.Current
		}
		result = &PointsResult{
			UserID:         m.userID,
			LedgerEntryID:  entryID,
			Delta:          m.delta,
			PreviousPoints: balance.Points,
			Points:         points,
			CurrentBadge:   current,
		}
		if transition != nil {
			result.Transition = &TransitionResult{
				Kind:        transition.Kind,
				Previous:    transition.Previous,
				Current:     transition.Current,
				FirstEarned: transition.FirstEarned,
			}
		}
		return nil
	})
	if err != nil {
		var serviceErr *ServiceError
		if errors.As(err, &serviceErr) {
			return nil, serviceErr
		}
		if errors.Is(err, repositories.ErrOutOfRange) {
			return nil, NewValidationError("points balance would exceed the supported range", err).
				WithDetail("user_id", m.userID)
		}
		s.logger.Error("Points mutation failed",
			zap.String("operation", operation),
			zap.Int64("user_id", m.userID),
			zap.Int("delta", m.delta),
			zap.Error(err),
		)
		return nil, NewInternalError("failed to update points").WithCause(err)
	}

	s.logger.Info("Points updated",
		zap.String("operation", operation),
		zap.Int64("user_id", m.userID),
		zap.Int("delta", m.delta),
		zap.Int("points", result.Points),
		zap.String("source_type", string(m.sourceType)),
	)

	if s.leaderboard != nil {
		if err := s.leaderboard.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to invalidate leaderboard cache", zap.Error(err))
		}
	}
	s.announce(ctx, m, result, transition)
	return result, nil
}

// announce queues post-commit fan-out. Failures are logged and never returned:
// the points change is already committed.
func (s *gamificationService) announce(ctx context.Context, m pointsMutation, result *PointsResult, transition *BadgeTransition) {
	if s.events == nil {
		return
	}

	queue := []events.Event{
		events.NewPointsChangedEvent(m.userID, m.delta, result.PreviousPoints, result.Points, m.sourceType, m.sourceID, result.LedgerEntryID),
	}
	if transition != nil {
		switch transition.Kind {
		case TransitionPromotion:
			queue = append(queue, events.NewBadgePromotedEvent(m.userID, *transition.Current, transition.Previous, transition.FirstEarned))
		case TransitionDemotion:
			if transition.Previous != nil {
				queue = append(queue, events.NewBadgeDemotedEvent(m.userID, transition.Current, *transition.Previous))
			}
		}
		if transition.Notification != nil {
			queue = append(queue, events.NewNotificationRequestedEvent(*transition.Notification))
		}
	}
	if m.notifyDashboard {
		queue = append(queue, events.NewDashboardUpdateRequestedEvent(m.userID))
	}

	for _, evt := range queue {
		if err := s.events.PublishAsync(ctx, evt); err != nil {
			s.logger.Warn("Failed to queue gamification event",
				zap.String("event_type", evt.GetEventType()),
				zap.Int64("user_id", m.userID),
				zap.Error(err),
			)
		}
	}
}

// ===============================
// QUERIES
// ===============================

// GetBalance returns a user's points and current badge id
func (s *gamificationService) GetBalance(ctx context.Context, userID int64) (*models.UserBalance, error) {
	if userID <= 0 {
		return nil, InvalidInputError("user_id", "must be positive")
	}
	balance, err := s.repos.Balances.Get(ctx, userID)
	if err != nil {
		return nil, s.notFoundOrInternal(err, "user", userID)
	}
	return balance, nil
}

// GetAchievements returns every badge the user has ever earned
func (s *gamificationService) GetAchievements(ctx context.Context, userID int64) ([]*models.BadgeAchievement, error) {
	if _, err := s.GetBalance(ctx, userID); err != nil {
		return nil, err
	}
	achievements, err := s.repos.Achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to list achievements").WithCause(err)
	}
	if achievements == nil {
		achievements = []*models.BadgeAchievement{}
	}
	return achievements, nil
}

// GetAllTiers returns the ladder ordered by threshold
func (s *gamificationService) GetAllTiers(ctx context.Context) ([]*models.BadgeTier, error) {
	ladder, err := s.ladders.Load(ctx)
	if err != nil {
		return nil, NewInternalError("failed to load badge tiers").WithCause(err)
	}
	return ladder.Tiers(), nil
}

// GetMyBadges assembles the badge overview for a user's profile
func (s *gamificationService) GetMyBadges(ctx context.Context, userID int64) (*models.MyBadges, error) {
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	ladder, err := s.ladders.Load(ctx)
	if err != nil {
		return nil, NewInternalError("failed to load badge tiers").WithCause(err)
	}
	earned, err := s.repos.Achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to list achievements").WithCause(err)
	}
	if earned == nil {
		earned = []*models.BadgeAchievement{}
	}

	return &models.MyBadges{
		AllBadges:     ladder.Tiers(),
		EarnedBadges:  earned,
		CurrentPoints: balance.Points,
		CurrentBadge:  currentBadge(ladder, balance.CurrentBadgeID),
	}, nil
}

// GetPointsHistory pages through the user's ledger, newest first
func (s *gamificationService) GetPointsHistory(ctx context.Context, req *PointsHistoryRequest) (*models.PaginatedResponse[*models.PointsLedgerEntry], error) {
	if req == nil {
		return nil, NewValidationError("history request is required", nil)
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid points history request", err)
	}
	if _, err := s.GetBalance(ctx, req.UserID); err != nil {
		return nil, err
	}

	total, err := s.repos.Ledger.CountByUser(ctx, req.UserID)
	if err != nil {
		return nil, NewInternalError("failed to count ledger entries").WithCause(err)
	}
	entries, err := s.repos.Ledger.ListByUser(ctx, req.UserID, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		return nil, NewInternalError("failed to list ledger entries").WithCause(err)
	}
	if entries == nil {
		entries = []*models.PointsLedgerEntry{}
	}

	return &models.PaginatedResponse[*models.PointsLedgerEntry]{
		Data:       entries,
		Pagination: models.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// ===============================
// LADDER ADMINISTRATION
// ===============================

// CreateTier adds a tier. Thresholds and names must be unique.
func (s *gamificationService) CreateTier(ctx context.Context, req *CreateTierRequest) (*models.BadgeTier, error) {
	if req == nil {
		return nil, NewValidationError("tier request is required", nil)
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid badge tier", err)
	}

	tier := &models.BadgeTier{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		PointsThreshold: req.PointsThreshold,
	}
	if err := s.repos.Badges.Create(ctx, tier); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			if strings.Contains(err.Error(), "threshold") {
				return nil, NewConflictError("a tier with this points threshold already exists", CodeDuplicateThreshold).
					WithDetail("points_threshold", req.PointsThreshold)
			}
			return nil, NewConflictError("a tier with this name already exists", CodeDuplicateName).
				WithDetail("name", tier.Name)
		}
		return nil, NewInternalError("failed to create badge tier").WithCause(err)
	}
	s.ladders.Invalidate(ctx)

	s.logger.Info("Badge tier created",
		zap.Int64("badge_id", tier.ID),
		zap.String("name", tier.Name),
		zap.Int("points_threshold", tier.PointsThreshold),
	)
	return tier, nil
}

// DefaultTiers is the ladder installed on an empty database
func DefaultTiers() []CreateTierRequest {
	return []CreateTierRequest{
		{Name: "Newbie", Description: "🎮 Welcome to UniHub! Your journey begins.", PointsThreshold: 0},
		{Name: "Pupil", Description: "⚡ Earned 100 points! You're learning fast.", PointsThreshold: 100},
		{Name: "Specialist", Description: "🌟 Reached 300 points! You're becoming skilled.", PointsThreshold: 300},
		{Name: "Expert", Description: "💎 600 points! You're an expert contributor.", PointsThreshold: 600},
		{Name: "Master", Description: "👑 1000 points! Master of the UniHub!", PointsThreshold: 1000},
		{Name: "Grandmaster", Description: "🏆 1500+ points! Grandmaster rank achieved!", PointsThreshold: 1500},
		{Name: "Legendary", Description: "🎖️ 2500+ points! You've reached legendary status!", PointsThreshold: 2500},
	}
}

// SeedDefaultTiers installs DefaultTiers when no tier exists and reports how many were created
func (s *gamificationService) SeedDefaultTiers(ctx context.Context) (int, error) {
	count, err := s.repos.Badges.Count(ctx)
	if err != nil {
		return 0, NewInternalError("failed to count badge tiers").WithCause(err)
	}
	if count > 0 {
		return 0, nil
	}

	created := 0
	for _, req := range DefaultTiers() {
		req := req
		if _, err := s.CreateTier(ctx, &req); err != nil {
			return created, err
		}
		created++
	}
	s.logger.Info("Seeded default badge tiers", zap.Int("count", created))
	return created, nil
}

// ===============================
// FAN-OUT
// ===============================

// SendDashboardUpdate asks the user's live dashboards to refresh
func (s *gamificationService) SendDashboardUpdate(ctx context.Context, userID int64) error {
	if _, err := s.GetBalance(ctx, userID); err != nil {
		return err
	}
	if s.events == nil {
		return nil
	}
	if err := s.events.PublishAsync(context.WithoutCancel(ctx), events.NewDashboardUpdateRequestedEvent(userID)); err != nil {
		s.logger.Warn("Failed to queue dashboard update", zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}

// ===============================
// HELPERS
// ===============================

func currentBadge(ladder *BadgeLadder, id *int64) *models.BadgeTier {
	if id == nil {
		return nil
	}
	return ladder.ByID(*id)
}

func (s *gamificationService) notFoundOrInternal(err error, entity string, id int64) error {
	if repositories.IsNotFound(err) {
		return EntityNotFoundError(entity, id)
	}
	s.logger.Error("Repository failure", zap.String("entity", entity), zap.Int64("id", id), zap.Error(err))
	return NewInternalError(fmt.Sprintf("failed to load %s", entity)).WithCause(err)
}
