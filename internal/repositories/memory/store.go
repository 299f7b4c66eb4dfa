// Package memory implements the repository interfaces in process memory.
// Transactions are serialized on a single store lock, which gives every unit
// of work serializable isolation. Rollback replays an undo snapshot holding the
// touched user rows and the lengths of the append-only slices.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"unihub/internal/models"
	"unihub/internal/repositories"
)

// Store is an in-memory database for the gamification repositories
type Store struct {
	mu    sync.Mutex
	state *state
	undo  *undoLog
	now   func() time.Time
}

// maxPoints mirrors the INTEGER points column
const maxPoints = math.MaxInt32

type state struct {
	users         map[int64]*models.UserBalance
	tiers         []*models.BadgeTier
	ledger        []*models.PointsLedgerEntry
	achievements  []*models.BadgeAchievement
	notifications []*models.Notification
	nextID        int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		state: &state{users: make(map[int64]*models.UserBalance)},
		now:   time.Now,
	}
}

// AddUser registers a user row the way the user directory would
func (s *Store) AddUser(balance *models.UserBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[balance.UserID] = balance.Clone()
}

// Collection exposes the store through the repository interfaces
func (s *Store) Collection() *repositories.Collection {
	return &repositories.Collection{
		Badges:        &badgeRepo{s},
		Ledger:        &ledgerRepo{store: s},
		Balances:      &balanceRepo{store: s},
		Achievements:  &achievementRepo{store: s},
		Notifications: &notificationRepo{s},
		Leaderboard:   &leaderboardRepo{s},
		Tx:            s,
	}
}

// RunInTx implements repositories.TxManager
func (s *Store) RunInTx(ctx context.Context, fn func(uow repositories.UnitOfWork) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.undo = s.state.begin()
	defer func() {
		undo := s.undo
		s.undo = nil
		if p := recover(); p != nil {
			s.state.rollback(undo)
			panic(p)
		}
		if err != nil {
			s.state.rollback(undo)
		}
	}()

	return fn(&unitOfWork{
		ledger:       &ledgerRepo{store: s, inTx: true},
		balances:     &balanceRepo{store: s, inTx: true},
		achievements: &achievementRepo{store: s, inTx: true},
	})
}

// lock acquires the store lock unless the caller already runs inside RunInTx
func (s *Store) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

// undoLog is what a unit of work needs to restore: units of work only append
// to the ledger and achievements and only modify user rows.
type undoLog struct {
	ledgerLen       int
	achievementsLen int
	nextID          int64
	users           map[int64]*models.UserBalance
}

func (st *state) begin() *undoLog {
	return &undoLog{
		ledgerLen:       len(st.ledger),
		achievementsLen: len(st.achievements),
		nextID:          st.nextID,
		users:           make(map[int64]*models.UserBalance),
	}
}

// saveUser records the row before its first change in the current unit of work
func (u *undoLog) saveUser(b *models.UserBalance) {
	if u == nil {
		return
	}
	if _, ok := u.users[b.UserID]; !ok {
		u.users[b.UserID] = b.Clone()
	}
}

func (st *state) rollback(u *undoLog) {
	clear(st.ledger[u.ledgerLen:])
	st.ledger = st.ledger[:u.ledgerLen]
	clear(st.achievements[u.achievementsLen:])
	st.achievements = st.achievements[:u.achievementsLen]
	st.nextID = u.nextID
	for id, b := range u.users {
		st.users[id] = b
	}
}

func (st *state) tierByID(id int64) *models.BadgeTier {
	for _, t := range st.tiers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

type unitOfWork struct {
	ledger       repositories.LedgerRepository
	balances     repositories.BalanceRepository
	achievements repositories.AchievementRepository
}

func (u *unitOfWork) Ledger() repositories.LedgerRepository { return u.ledger }
func (u *unitOfWork) Balances() repositories.BalanceRepository { return u.balances }
func (u *unitOfWork) Achievements() repositories.AchievementRepository { return u.achievements }

// ===============================
// BADGES
// ===============================

type badgeRepo struct{ store *Store }

func (r *badgeRepo) List(ctx context.Context) ([]*models.BadgeTier, error) {
	defer r.store.lock(false)()
	out := make([]*models.BadgeTier, 0, len(r.store.state.tiers))
	for _, t := range r.store.state.tiers {
		c := *t
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.BadgeTier) int {
		if a.PointsThreshold != b.PointsThreshold {
			return a.PointsThreshold - b.PointsThreshold
		}
		return compareInt64(a.ID, b.ID)
	})
	return out, nil
}

func (r *badgeRepo) GetByID(ctx context.Context, id int64) (*models.BadgeTier, error) {
	defer r.store.lock(false)()
	t := r.store.state.tierByID(id)
	if t == nil {
		return nil, fmt.Errorf("badge tier %d: %w", id, repositories.ErrNotFound)
	}
	c := *t
	return &c, nil
}

func (r *badgeRepo) Create(ctx context.Context, tier *models.BadgeTier) error {
	defer r.store.lock(false)()
	for _, t := range r.store.state.tiers {
		if t.PointsThreshold == tier.PointsThreshold {
			return fmt.Errorf("%w: badge_tiers_points_threshold_key", repositories.ErrDuplicate)
		}
		if t.Name == tier.Name {
			return fmt.Errorf("%w: badge_tiers_name_key", repositories.ErrDuplicate)
		}
	}
	tier.ID = r.store.state.id()
	tier.CreatedAt = r.store.now()
	c := *tier
	r.store.state.tiers = append(r.store.state.tiers, &c)
	return nil
}

func (r *badgeRepo) Count(ctx context.Context) (int64, error) {
	defer r.store.lock(false)()
	return int64(len(r.store.state.tiers)), nil
}

// ===============================
// LEDGER
// ===============================

type ledgerRepo struct {
	store *Store
	inTx  bool
}

func (r *ledgerRepo) Append(ctx context.Context, entry *models.PointsLedgerEntry) (int64, error) {
	if err := repositories.ValidateLedgerEntry(entry); err != nil {
		return 0, err
	}
	defer r.store.lock(r.inTx)()

	if _, ok := r.store.state.users[entry.UserID]; !ok {
		return 0, fmt.Errorf("ledger user %d: %w", entry.UserID, repositories.ErrNotFound)
	}
	entry.ID = r.store.state.id()
	entry.CreatedAt = r.store.now()
	c := *entry
	r.store.state.ledger = append(r.store.state.ledger, &c)
	return entry.ID, nil
}

func (r *ledgerRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.PointsLedgerEntry, error) {
	defer r.store.lock(r.inTx)()

	var out []*models.PointsLedgerEntry
	// newest first
	for i := len(r.store.state.ledger) - 1; i >= 0; i-- {
		e := r.store.state.ledger[i]
		if e.UserID != userID {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func (r *ledgerRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	defer r.store.lock(r.inTx)()
	var n int64
	for _, e := range r.store.state.ledger {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ===============================
// BALANCES
// ===============================

type balanceRepo struct {
	store *Store
	inTx  bool
}

func (r *balanceRepo) Get(ctx context.Context, userID int64) (*models.UserBalance, error) {
	defer r.store.lock(r.inTx)()
	b, ok := r.store.state.users[userID]
	if !ok {
		return nil, fmt.Errorf("balance for user %d: %w", userID, repositories.ErrNotFound)
	}
	return b.Clone(), nil
}

// GetForUpdate needs no extra locking: RunInTx already holds the store lock.
func (r *balanceRepo) GetForUpdate(ctx context.Context, userID int64) (*models.UserBalance, error) {
	return r.Get(ctx, userID)
}

func (r *balanceRepo) ApplyDelta(ctx context.Context, userID int64, delta int) (int, error) {
	defer r.store.lock(r.inTx)()
	b, ok := r.store.state.users[userID]
	if !ok {
		return 0, fmt.Errorf("balance for user %d: %w", userID, repositories.ErrNotFound)
	}
	if delta > maxPoints-b.Points {
		return 0, fmt.Errorf("balance for user %d: %w", userID, repositories.ErrOutOfRange)
	}
	r.store.undo.saveUser(b)
	b.Points = max(b.Points+delta, 0)
	return b.Points, nil
}

func (r *balanceRepo) SetCurrentBadge(ctx context.Context, userID int64, badgeID *int64) error {
	defer r.store.lock(r.inTx)()
	b, ok := r.store.state.users[userID]
	if !ok {
		return fmt.Errorf("balance for user %d: %w", userID, repositories.ErrNotFound)
	}
	r.store.undo.saveUser(b)
	if badgeID == nil {
		b.CurrentBadgeID = nil
		return nil
	}
	id := *badgeID
	b.CurrentBadgeID = &id
	return nil
}

// ===============================
// ACHIEVEMENTS
// ===============================

type achievementRepo struct {
	store *Store
	inTx  bool
}

func (r *achievementRepo) Exists(ctx context.Context, userID, badgeID int64) (bool, error) {
	defer r.store.lock(r.inTx)()
	return r.exists(userID, badgeID), nil
}

func (r *achievementRepo) exists(userID, badgeID int64) bool {
	return slices.ContainsFunc(r.store.state.achievements, func(a *models.BadgeAchievement) bool {
		return a.UserID == userID && a.BadgeID == badgeID
	})
}

func (r *achievementRepo) Insert(ctx context.Context, a *models.BadgeAchievement) (bool, error) {
	defer r.store.lock(r.inTx)()
	if r.exists(a.UserID, a.BadgeID) {
		return false, nil
	}
	a.ID = r.store.state.id()
	if a.EarnedAt.IsZero() {
		a.EarnedAt = r.store.now()
	}
	c := *a
	c.Badge = nil
	r.store.state.achievements = append(r.store.state.achievements, &c)
	return true, nil
}

func (r *achievementRepo) ListByUser(ctx context.Context, userID int64) ([]*models.BadgeAchievement, error) {
	defer r.store.lock(r.inTx)()
	var out []*models.BadgeAchievement
	for _, a := range r.store.state.achievements {
		if a.UserID != userID {
			continue
		}
		c := *a
		if t := r.store.state.tierByID(a.BadgeID); t != nil {
			tier := *t
			c.Badge = &tier
		}
		out = append(out, &c)
	}
	return out, nil
}

// ===============================
// NOTIFICATIONS
// ===============================

type notificationRepo struct{ store *Store }

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	defer r.store.lock(false)()
	if _, ok := r.store.state.users[n.UserID]; !ok {
		return fmt.Errorf("notification user %d: %w", n.UserID, repositories.ErrNotFound)
	}
	n.ID = r.store.state.id()
	n.CreatedAt = r.store.now()
	c := *n
	r.store.state.notifications = append(r.store.state.notifications, &c)
	return nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	defer r.store.lock(false)()
	var out []*models.Notification
	for i := len(r.store.state.notifications) - 1; i >= 0; i-- {
		n := r.store.state.notifications[i]
		if n.UserID != userID {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		c := *n
		out = append(out, &c)
	}
	return out, nil
}

// ===============================
// LEADERBOARD
// ===============================

type leaderboardRepo struct{ store *Store }

func (r *leaderboardRepo) RankMembers(ctx context.Context, organizationID *int64) ([]*models.UserBalance, error) {
	defer r.store.lock(false)()
	out := make([]*models.UserBalance, 0, len(r.store.state.users))
	for _, b := range r.store.state.users {
		if organizationID != nil && (b.OrganizationID == nil || *b.OrganizationID != *organizationID) {
			continue
		}
		out = append(out, b.Clone())
	}
	slices.SortFunc(out, func(a, b *models.UserBalance) int {
		if a.Points != b.Points {
			return b.Points - a.Points
		}
		return compareInt64(a.UserID, b.UserID)
	})
	return out, nil
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
