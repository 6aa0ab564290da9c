package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"photo-studio-backend/internal/middleware"
)

const secret = "test-secret-key-for-jwt-signing-must-be-long-enough"

func newRouter(tokens *middleware.WebhookTokens) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.WebhookAuth(tokens))
	router.POST("/hook", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(middleware.WebhookSubjectKey)})
	})
	return router
}

func post(router *gin.Engine, target string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookAuth_NoToken(t *testing.T) {
	w := post(newRouter(middleware.NewWebhookTokens(secret)), "/hook")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestWebhookAuth_InvalidToken(t *testing.T) {
	w := post(newRouter(middleware.NewWebhookTokens(secret)), "/hook?token=invalid-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookAuth_ValidToken(t *testing.T) {
	tokens := middleware.NewWebhookTokens(secret)
	token, err := tokens.Issue("nonce-1", time.Hour)
	require.NoError(t, err)

	w := post(newRouter(tokens), "/hook?token="+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"nonce-1"}`, w.Body.String())
}

func TestWebhookAuth_WrongSecret(t *testing.T) {
	token, err := middleware.NewWebhookTokens("another-secret").Issue("nonce-1", time.Hour)
	require.NoError(t, err)

	w := post(newRouter(middleware.NewWebhookTokens(secret)), "/hook?token="+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "signature")
}

func TestWebhookAuth_ExpiredToken(t *testing.T) {
	token, err := middleware.NewWebhookTokens(secret).Issue("nonce-1", -time.Minute)
	require.NoError(t, err)

	w := post(newRouter(middleware.NewWebhookTokens(secret)), "/hook?token="+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestWebhookAuth_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "nonce-1",
		"iss": "photo-studio-backend",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	w := post(newRouter(middleware.NewWebhookTokens(secret)), "/hook?token="+signed)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookAuth_DisabledWithoutSecret(t *testing.T) {
	w := post(newRouter(middleware.NewWebhookTokens("")), "/hook")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":""}`, w.Body.String())
}
