package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret-of-sufficient-length")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func adminToken(t *testing.T) string {
	return signToken(t, testSecret, jwt.MapClaims{
		"user_id":  "u-1",
		"email":    "admin@example.com",
		"is_admin": true,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
}

func doRequest(handler http.HandlerFunc, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestMiddlewarePassesValidTokenAndStoresClaims(t *testing.T) {
	auth := NewAuth(testSecret)

	var got *UserClaims
	handler := auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r)
		require.True(t, ok)
		got = claims
		w.WriteHeader(http.StatusOK)
	})

	rec := doRequest(handler, adminToken(t))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "admin@example.com", got.Email)
	assert.True(t, got.IsAdmin)
}

func TestMiddlewareRejectsMissingAndMalformedHeaders(t *testing.T) {
	auth := NewAuth(testSecret)
	handler := auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rec := doRequest(handler, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	auth := NewAuth(testSecret)
	handler := auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	forged := signToken(t, []byte("some-other-secret-of-equal-length!!"), jwt.MapClaims{
		"user_id":  "u-1",
		"is_admin": true,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	rec := doRequest(handler, forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	auth := NewAuth(testSecret)
	handler := auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	expired := signToken(t, testSecret, jwt.MapClaims{
		"user_id":  "u-1",
		"is_admin": true,
		"exp":      time.Now().Add(-time.Minute).Unix(),
	})
	rec := doRequest(handler, expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	auth := NewAuth(testSecret)
	handler := auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	citizen := signToken(t, testSecret, jwt.MapClaims{
		"user_id":  "u-2",
		"email":    "user@example.com",
		"is_admin": false,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	rec := doRequest(handler, citizen)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminPassesAdmin(t *testing.T) {
	auth := NewAuth(testSecret)
	handler := auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := doRequest(handler, adminToken(t))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
