package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"unihub/internal/models"
	"unihub/internal/repositories"
)

// TransitionKind distinguishes upward from downward badge changes
type TransitionKind string

const (
	TransitionPromotion TransitionKind = "PROMOTION"
	TransitionDemotion  TransitionKind = "DEMOTION"
)

const badgesLink = "/badges"

// BadgeTransition is the outcome of a check that changed the current badge
type BadgeTransition struct {
	Kind     TransitionKind
	UserID   int64
	Previous *models.BadgeTier
	// Current is nil only after a demotion below every tier
	Current *models.BadgeTier
	// FirstEarned is true when this promotion wrote the achievement row
	FirstEarned  bool
	Notification *models.Notification
}

// BadgeTransitionEngine applies promotion and demotion rules inside a unit of work
type BadgeTransitionEngine struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewBadgeTransitionEngine creates a transition engine
func NewBadgeTransitionEngine(logger *zap.Logger) *BadgeTransitionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeTransitionEngine{
		logger: logger.With(zap.String("component", "badge_transition")),
		now:    time.Now,
	}
}

// CheckPromotion runs after an award. balance must carry the post-delta points
// and the badge held before the delta. Returns nil when membership is unchanged.
func (e *BadgeTransitionEngine) CheckPromotion(ctx context.Context, uow repositories.UnitOfWork, ladder *BadgeLadder, balance *models.UserBalance) (*BadgeTransition, error) {
	target := ladder.HighestQualifying(balance.Points)
	if target == nil {
		return nil, nil
	}
	if balance.CurrentBadgeID != nil && *balance.CurrentBadgeID == target.ID {
		return nil, nil
	}

	var previous *models.BadgeTier
	if balance.CurrentBadgeID != nil {
		previous = ladder.ByID(*balance.CurrentBadgeID)
	}

	if err := uow.Balances().SetCurrentBadge(ctx, balance.UserID, &target.ID); err != nil {
		return nil, fmt.Errorf("set current badge: %w", err)
	}

	inserted, err := uow.Achievements().Insert(ctx, &models.BadgeAchievement{
		UserID:   balance.UserID,
		BadgeID:  target.ID,
		EarnedAt: e.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("record achievement: %w", err)
	}

	e.logger.Info("Promoting user",
		zap.Int64("user_id", balance.UserID),
		zap.String("from", badgeNameOrNone(previous)),
		zap.String("to", target.Name),
		zap.Bool("first_earned", inserted),
	)

	return &BadgeTransition{
		Kind:        TransitionPromotion,
		UserID:      balance.UserID,
		Previous:    previous,
		Current:     target,
		FirstEarned: inserted,
		Notification: &models.Notification{
			UserID:  balance.UserID,
			Message: fmt.Sprintf("Congratulations! You've earned the %s badge!", target.Name),
			Type:    models.NotificationBadgeEarned,
			Link:    badgesLink,
		},
	}, nil
}

// CheckDemotion runs after a deduction. Achievement rows are never removed.
func (e *BadgeTransitionEngine) CheckDemotion(ctx context.Context, uow repositories.UnitOfWork, ladder *BadgeLadder, balance *models.UserBalance) (*BadgeTransition, error) {
	if balance.CurrentBadgeID == nil {
		return nil, nil
	}

	current := ladder.ByID(*balance.CurrentBadgeID)
	if current != nil && balance.Points >= current.PointsThreshold {
		return nil, nil
	}

	target := ladder.HighestQualifying(balance.Points)
	if target != nil && target.ID == *balance.CurrentBadgeID {
		return nil, nil
	}

	var targetID *int64
	if target != nil {
		id := target.ID
		targetID = &id
	}
	if err := uow.Balances().SetCurrentBadge(ctx, balance.UserID, targetID); err != nil {
		return nil, fmt.Errorf("set current badge: %w", err)
	}

	e.logger.Info("Demoting user",
		zap.Int64("user_id", balance.UserID),
		zap.String("from", badgeNameOrNone(current)),
		zap.String("to", badgeNameOrNone(target)),
	)

	return &BadgeTransition{
		Kind:     TransitionDemotion,
		UserID:   balance.UserID,
		Previous: current,
		Current:  target,
		Notification: &models.Notification{
			UserID:  balance.UserID,
			Message: fmt.Sprintf("Your badge has been updated to %s due to point changes.", models.BadgeName(target)),
			Type:    models.NotificationPointsUpdate,
			Link:    badgesLink,
		},
	}, nil
}

func badgeNameOrNone(t *models.BadgeTier) string {
	if t == nil {
		return "none"
	}
	return t.Name
}
