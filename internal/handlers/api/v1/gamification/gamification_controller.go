package gamification

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"unihub/internal/contextutils"
	"unihub/internal/models"
	"unihub/internal/response"
	"unihub/internal/services"
)

const (
	defaultTopMembers = 10
	maxTopMembers     = 100
	maxRequestBody    = 1 << 16
)

// Controller serves the gamification API
type Controller struct {
	gamification     services.GamificationService
	leaderboard      services.LeaderboardService
	notifications    services.NotificationService
	logger           *zap.Logger
	responseBuilder  *response.Builder
	paginationParser *response.PaginationParser
}

// NewController creates a gamification controller over the service collection
func NewController(sc *services.ServiceCollection, logger *zap.Logger, responseBuilder *response.Builder) *Controller {
	return &Controller{
		gamification:     sc.Gamification,
		leaderboard:      sc.Leaderboard,
		notifications:    sc.Notifications,
		logger:           logger.With(zap.String("component", "gamification_controller")),
		responseBuilder:  responseBuilder,
		paginationParser: response.NewPaginationParser(response.DefaultPaginationConfig()),
	}
}

// ===============================
// BADGES
// ===============================

// ListTiers handles GET /api/v1/gamification/badges
func (c *Controller) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := c.gamification.GetAllTiers(r.Context())
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, tiers)
}

// CreateTier handles POST /api/v1/gamification/badges
func (c *Controller) CreateTier(w http.ResponseWriter, r *http.Request) {
	var req services.CreateTierRequest
	if !c.decode(w, r, &req) {
		return
	}

	tier, err := c.gamification.CreateTier(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteCreated(w, r, tier)
}

// MyBadges handles GET /api/v1/gamification/me/badges
func (c *Controller) MyBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := c.gamification.GetMyBadges(r.Context(), contextutils.GetUserID(r.Context()))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, badges)
}

// ===============================
// LEADERBOARD
// ===============================

// Leaderboard handles GET /api/v1/gamification/leaderboard?scope=&org_id=
func (c *Controller) Leaderboard(w http.ResponseWriter, r *http.Request) {
	req, ok := c.leaderboardRequest(w, r)
	if !ok {
		return
	}

	board, err := c.leaderboard.RankMembers(r.Context(), req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, board)
}

// TopMembers handles GET /api/v1/gamification/top-members?scope=&org_id=&limit=
func (c *Controller) TopMembers(w http.ResponseWriter, r *http.Request) {
	req, ok := c.leaderboardRequest(w, r)
	if !ok {
		return
	}

	limit := defaultTopMembers
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxTopMembers {
			c.responseBuilder.WriteError(w, r, services.InvalidInputError("limit", "must be between 0 and 100"))
			return
		}
		limit = n
	}

	board, err := c.leaderboard.TopMembers(r.Context(), req, limit)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, board)
}

// ===============================
// USERS
// ===============================

// Balance handles GET /api/v1/gamification/users/{id}/balance
func (c *Controller) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.pathUserID(w, r)
	if !ok {
		return
	}

	balance, err := c.gamification.GetBalance(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, balance)
}

// Achievements handles GET /api/v1/gamification/users/{id}/achievements
func (c *Controller) Achievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.pathUserID(w, r)
	if !ok {
		return
	}

	achievements, err := c.gamification.GetAchievements(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, achievements)
}

// PointsHistory handles GET /api/v1/gamification/users/{id}/points. Members
// see their own ledger; administrators see anyone's.
func (c *Controller) PointsHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.pathUserID(w, r)
	if !ok || !c.authorizeSelf(w, r, userID) {
		return
	}

	params, err := c.paginationParser.ParseFromRequest(r)
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError(err.Error(), err))
		return
	}

	page, err := c.gamification.GetPointsHistory(r.Context(), &services.PointsHistoryRequest{
		UserID:   userID,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	response.WritePaginated(c.responseBuilder, w, r, page)
}

// DashboardUpdate handles POST /api/v1/gamification/users/{id}/dashboard-update
func (c *Controller) DashboardUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.pathUserID(w, r)
	if !ok || !c.authorizeSelf(w, r, userID) {
		return
	}

	if err := c.gamification.SendDashboardUpdate(r.Context(), userID); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteAccepted(w, r, map[string]interface{}{"user_id": userID})
}

// MyNotifications handles GET /api/v1/gamification/me/notifications?limit=
func (c *Controller) MyNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := c.notifications.ListForUser(r.Context(), contextutils.GetUserID(r.Context()), limit)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, list)
}

// ===============================
// POINTS
// ===============================

// AwardPoints handles POST /api/v1/gamification/points/award
func (c *Controller) AwardPoints(w http.ResponseWriter, r *http.Request) {
	var req services.AwardPointsRequest
	if !c.decode(w, r, &req) {
		return
	}

	result, err := c.gamification.AwardPoints(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, result)
}

// DeductPoints handles POST /api/v1/gamification/points/deduct
func (c *Controller) DeductPoints(w http.ResponseWriter, r *http.Request) {
	var req services.DeductPointsRequest
	if !c.decode(w, r, &req) {
		return
	}

	result, err := c.gamification.DeductPoints(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, result)
}

// ===============================
// HELPERS
// ===============================

func (c *Controller) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		c.logger.Debug("Failed to decode request body", zap.String("path", r.URL.Path), zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid request body format", err))
		return false
	}
	return true
}

func (c *Controller) pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		c.responseBuilder.WriteError(w, r, services.InvalidInputError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (c *Controller) authorizeSelf(w http.ResponseWriter, r *http.Request, userID int64) bool {
	ctx := r.Context()
	if contextutils.GetUserID(ctx) == userID || contextutils.IsAdmin(ctx) {
		return true
	}
	c.responseBuilder.WriteForbidden(w, r, "You can only access your own points")
	return false
}

func (c *Controller) leaderboardRequest(w http.ResponseWriter, r *http.Request) (*services.LeaderboardRequest, bool) {
	query := r.URL.Query()
	req := &services.LeaderboardRequest{Scope: models.LeaderboardScope(query.Get("scope"))}

	if raw := query.Get("org_id"); raw != "" {
		orgID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.responseBuilder.WriteError(w, r, services.InvalidInputError("org_id", "must be an integer"))
			return nil, false
		}
		req.OrganizationID = &orgID
	}
	return req, true
}
