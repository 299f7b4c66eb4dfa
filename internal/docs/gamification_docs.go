package docs

// Swagger annotations for the gamification API. docs.go holds the
// registered document built from them.

// HealthCheck godoc
// @Summary Health check endpoint
// @Description Reports the status of the event bus, cache and database
// @Tags System
// @Produce json
// @Success 200 {object} APIResponse "Service is healthy"
// @Failure 503 {object} APIResponse "A dependency is unhealthy"
// @Router /health [get]
func _() {}

// ListTiers godoc
// @Summary List badge tiers
// @Description Returns the badge ladder ordered by points threshold
// @Tags Badges
// @Produce json
// @Success 200 {object} APIResponse
// @Router /api/v1/gamification/badges [get]
func _() {}

// CreateTier godoc
// @Summary Create a badge tier
// @Description Adds a tier to the ladder. Thresholds and names are unique.
// @Tags Badges
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tier body CreateTierRequest true "Tier definition"
// @Success 201 {object} APIResponse
// @Failure 400 {object} APIResponse "Invalid tier"
// @Failure 403 {object} APIResponse "Administrator role required"
// @Failure 409 {object} APIResponse "Duplicate threshold or name"
// @Router /api/v1/gamification/badges [post]
func _() {}

// MyBadges godoc
// @Summary Get the caller's badges
// @Description Returns every tier, the tiers the caller has earned, and their current badge
// @Tags Badges
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse
// @Failure 401 {object} APIResponse
// @Router /api/v1/gamification/me/badges [get]
func _() {}

// Leaderboard godoc
// @Summary Rank members by points
// @Tags Leaderboard
// @Produce json
// @Param scope query string false "GLOBAL or ORGANIZATION" Enums(GLOBAL, ORGANIZATION, UNIVERSITY)
// @Param org_id query int false "Organization id, required for ORGANIZATION"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "Unknown scope or missing organization"
// @Router /api/v1/gamification/leaderboard [get]
func _() {}

// TopMembers godoc
// @Summary Top ranked members
// @Tags Leaderboard
// @Produce json
// @Param scope query string false "GLOBAL or ORGANIZATION" Enums(GLOBAL, ORGANIZATION, UNIVERSITY)
// @Param org_id query int false "Organization id, required for ORGANIZATION"
// @Param limit query int false "Number of members (0-100)" default(10)
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /api/v1/gamification/top-members [get]
func _() {}

// Balance godoc
// @Summary Get a user's points balance
// @Tags Points
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse "User not found"
// @Router /api/v1/gamification/users/{id}/balance [get]
func _() {}

// Achievements godoc
// @Summary List a user's earned badges
// @Tags Badges
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse "User not found"
// @Router /api/v1/gamification/users/{id}/achievements [get]
func _() {}

// PointsHistory godoc
// @Summary Page through a user's points ledger
// @Description Newest entries first. Members may only read their own ledger.
// @Tags Points
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} PaginatedResponse
// @Failure 403 {object} APIResponse
// @Router /api/v1/gamification/users/{id}/points [get]
func _() {}

// DashboardUpdate godoc
// @Summary Push a dashboard refresh to the user's live clients
// @Tags Realtime
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 202 {object} APIResponse
// @Failure 403 {object} APIResponse
// @Failure 404 {object} APIResponse "User not found"
// @Router /api/v1/gamification/users/{id}/dashboard-update [post]
func _() {}

// MyNotifications godoc
// @Summary List the caller's gamification notifications
// @Tags Realtime
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum notifications (1-100)" default(20)
// @Success 200 {object} APIResponse
// @Router /api/v1/gamification/me/notifications [get]
func _() {}

// AwardPoints godoc
// @Summary Award points to a user
// @Description Appends a ledger entry, updates the balance and promotes the user when a threshold is crossed
// @Tags Points
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PointsRequest true "Award"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "Invalid request"
// @Failure 404 {object} APIResponse "User not found"
// @Failure 409 {object} APIResponse "Write conflict, retry"
// @Failure 429 {object} APIResponse "Rate limit exceeded"
// @Router /api/v1/gamification/points/award [post]
func _() {}

// DeductPoints godoc
// @Summary Deduct points from a user
// @Description The balance floors at zero; the ledger keeps the full deduction
// @Tags Points
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PointsRequest true "Deduction"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "Invalid request"
// @Failure 404 {object} APIResponse "User not found"
// @Failure 409 {object} APIResponse "Write conflict, retry"
// @Failure 429 {object} APIResponse "Rate limit exceeded"
// @Router /api/v1/gamification/points/deduct [post]
func _() {}

// Realtime godoc
// @Summary Websocket for live gamification updates
// @Description Per-user topics (notifications:{id}, badge-promotion:{id}, dashboard-update:{id}) are only served to their owner
// @Tags Realtime
// @Param topic query []string true "Topics to subscribe to" collectionFormat(multi)
// @Param access_token query string false "Bearer token for browsers"
// @Failure 400 {string} string "No topic"
// @Failure 403 {string} string "Topic belongs to another user"
// @Success 101 "Switching protocols"
// @Router /ws [get]
func _() {}
