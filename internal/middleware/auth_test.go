package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unihub/internal/contextutils"
	"unihub/internal/response"
)

const secret = "middleware-secret"

func newAuth(t *testing.T, issuer string, allowQuery bool) *AuthMiddleware {
	t.Helper()
	am, err := NewAuthMiddleware(&AuthConfig{JWTSecret: secret, JWTIssuer: issuer, AllowQueryToken: allowQuery},
		response.NewBuilder(response.DefaultConfig(), zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	return am
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func userToken(t *testing.T, id int64, role string) string {
	return sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatInt(id, 10)},
	})
}

// echo reports the authenticated caller as "id:admin"
var echo = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, _ = w.Write([]byte(strconv.FormatInt(contextutils.GetUserID(ctx), 10) + ":" + strconv.FormatBool(contextutils.IsAdmin(ctx))))
})

func request(h http.Handler, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewAuthMiddleware_RequiresSecret(t *testing.T) {
	_, err := NewAuthMiddleware(&AuthConfig{}, response.NewBuilder(nil, zap.NewNop()), zap.NewNop())
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	am := newAuth(t, "", false)
	h := am.RequireAuth()(echo)

	rec := request(h, "/", userToken(t, 7, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7:false", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, request(h, "/", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(h, "/", "garbage").Code)

	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "7"}})
	assert.Equal(t, http.StatusUnauthorized, request(h, "/", wrongKey).Code)

	expired := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	assert.Equal(t, http.StatusUnauthorized, request(h, "/", expired).Code)

	badSubject := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}})
	assert.Equal(t, http.StatusUnauthorized, request(h, "/", badSubject).Code)
}

func TestRequireAuth_RejectsOtherAlgorithms(t *testing.T) {
	am := newAuth(t, "", false)
	h := am.RequireAuth()(echo)

	hs512 := sign(t, jwt.SigningMethodHS512, []byte(secret), Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "7"}})
	assert.Equal(t, http.StatusUnauthorized, request(h, "/", hs512).Code)
}

func TestRequireAuth_Issuer(t *testing.T) {
	am := newAuth(t, "unihub", false)
	h := am.RequireAuth()(echo)

	good := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "7", Issuer: "unihub"}})
	assert.Equal(t, http.StatusOK, request(h, "/", good).Code)

	bad := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "7", Issuer: "elsewhere"}})
	assert.Equal(t, http.StatusUnauthorized, request(h, "/", bad).Code)
}

func TestOptionalAuth(t *testing.T) {
	h := newAuth(t, "", false).OptionalAuth()(echo)

	rec := request(h, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0:false", rec.Body.String())

	rec = request(h, "/", userToken(t, 3, RoleAdmin))
	assert.Equal(t, "3:true", rec.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	h := newAuth(t, "", false).RequireAdmin()(echo)

	assert.Equal(t, http.StatusUnauthorized, request(h, "/", "").Code)
	assert.Equal(t, http.StatusForbidden, request(h, "/", userToken(t, 3, "member")).Code)
	assert.Equal(t, http.StatusOK, request(h, "/", userToken(t, 3, RoleAdmin)).Code)
}

func TestUserID_QueryToken(t *testing.T) {
	token := userToken(t, 11, "")

	am := newAuth(t, "", true)
	id, ok := am.UserID(httptest.NewRequest(http.MethodGet, "/ws?access_token="+token, nil))
	assert.True(t, ok)
	assert.Equal(t, int64(11), id)

	am = newAuth(t, "", false)
	_, ok = am.UserID(httptest.NewRequest(http.MethodGet, "/ws?access_token="+token, nil))
	assert.False(t, ok)
}
