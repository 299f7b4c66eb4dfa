package gamification

import (
	"net/http"

	"github.com/gorilla/mux"

	"unihub/internal/middleware"
)

// RegisterRoutes mounts the gamification endpoints under r, which is
// expected to be the /api/v1/gamification subrouter
func (c *Controller) RegisterRoutes(r *mux.Router, auth *middleware.AuthMiddleware, limiter *middleware.RateLimiter) {
	public := func(h http.HandlerFunc) http.Handler { return middleware.Chain(h, auth.OptionalAuth()) }
	member := func(h http.HandlerFunc) http.Handler { return middleware.Chain(h, auth.RequireAuth()) }
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, auth.RequireAdmin(), middleware.RateLimit(limiter))
	}

	r.Handle("/badges", public(c.ListTiers)).Methods(http.MethodGet)
	r.Handle("/badges", admin(c.CreateTier)).Methods(http.MethodPost)
	r.Handle("/leaderboard", public(c.Leaderboard)).Methods(http.MethodGet)
	r.Handle("/top-members", public(c.TopMembers)).Methods(http.MethodGet)

	r.Handle("/me/badges", member(c.MyBadges)).Methods(http.MethodGet)
	r.Handle("/me/notifications", member(c.MyNotifications)).Methods(http.MethodGet)
	r.Handle("/users/{id:[0-9]+}/balance", member(c.Balance)).Methods(http.MethodGet)
	r.Handle("/users/{id:[0-9]+}/achievements", member(c.Achievements)).Methods(http.MethodGet)
	r.Handle("/users/{id:[0-9]+}/points", member(c.PointsHistory)).Methods(http.MethodGet)
	r.Handle("/users/{id:[0-9]+}/dashboard-update",
		middleware.Chain(http.HandlerFunc(c.DashboardUpdate), auth.RequireAuth(), middleware.RateLimit(limiter)),
	).Methods(http.MethodPost)

	r.Handle("/points/award", admin(c.AwardPoints)).Methods(http.MethodPost)
	r.Handle("/points/deduct", admin(c.DeductPoints)).Methods(http.MethodPost)
}
