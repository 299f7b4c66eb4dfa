package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"unihub/internal/contextutils"
	"unihub/internal/response"
)

// RoleAdmin is the token role allowed to manage tiers and move points
const RoleAdmin = "admin"

// AuthConfig holds settings for tokens issued by the platform auth service
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	// AllowQueryToken accepts ?access_token= for websocket handshakes,
	// where browsers cannot set an Authorization header
	AllowQueryToken bool
}

// Claims are the token claims the gamification API reads
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthContext is the authenticated caller
type AuthContext struct {
	UserID int64
	Role   string
}

// AuthMiddleware validates HS256 bearer tokens
type AuthMiddleware struct {
	config  *AuthConfig
	builder *response.Builder
	logger  *zap.Logger
	parser  *jwt.Parser
}

// NewAuthMiddleware creates the authentication middleware
func NewAuthMiddleware(config *AuthConfig, builder *response.Builder, logger *zap.Logger) (*AuthMiddleware, error) {
	if config == nil || config.JWTSecret == "" {
		return nil, errors.New("auth: JWT secret is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if config.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(config.JWTIssuer))
	}

	return &AuthMiddleware{
		config:  config,
		builder: builder,
		logger:  logger.With(zap.String("component", "auth_middleware")),
		parser:  jwt.NewParser(opts...),
	}, nil
}

// Authenticate parses the caller's token. With required set, requests
// without a valid token get 401; otherwise they proceed anonymously.
func (am *AuthMiddleware) Authenticate(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, err := am.authenticateRequest(r)
			if err != nil {
				if required {
					GetRequestLogger(r.Context()).Warn("Authentication required but failed", zap.Error(err))
					am.builder.WriteUnauthorized(w, r, "Authentication required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := contextutils.WithUserID(r.Context(), authCtx.UserID)
			ctx = contextutils.WithAdmin(ctx, authCtx.Role == RoleAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth requires a valid token
func (am *AuthMiddleware) RequireAuth() func(http.Handler) http.Handler {
	return am.Authenticate(true)
}

// OptionalAuth reads a token when one is present
func (am *AuthMiddleware) OptionalAuth() func(http.Handler) http.Handler {
	return am.Authenticate(false)
}

// RequireAdmin requires a valid token carrying the admin role
func (am *AuthMiddleware) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return am.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !contextutils.IsAdmin(r.Context()) {
				am.builder.WriteForbidden(w, r, "Administrator role required")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// UserID authenticates r and returns the caller's id. It matches the
// signature the websocket hub uses to authorize per-user topics.
func (am *AuthMiddleware) UserID(r *http.Request) (int64, bool) {
	if id := contextutils.GetUserID(r.Context()); id > 0 {
		return id, true
	}
	authCtx, err := am.authenticateRequest(r)
	if err != nil {
		return 0, false
	}
	return authCtx.UserID, true
}

func (am *AuthMiddleware) authenticateRequest(r *http.Request) (*AuthContext, error) {
	tokenString, err := am.extractToken(r)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err = am.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(am.config.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return &AuthContext{UserID: userID, Role: claims.Role}, nil
}

func (am *AuthMiddleware) extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", errors.New("invalid authorization header format")
		}
		return token, nil
	}
	if am.config.AllowQueryToken {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, nil
		}
	}
	return "", errors.New("no bearer token")
}
