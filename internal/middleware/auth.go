package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/models"
)

// WebhookSubjectKey holds the verified token subject (the job's callback
// nonce) for webhook handlers.
const WebhookSubjectKey = "webhook_subject"

const tokenIssuer = "photo-studio-backend"

// WebhookTokens signs and verifies the tokens embedded in provider callback
// URLs. A zero secret disables signing and verification.
type WebhookTokens struct {
	secret []byte
}

func NewWebhookTokens(secret string) *WebhookTokens {
	return &WebhookTokens{secret: []byte(secret)}
}

func (w *WebhookTokens) Enabled() bool {
	return len(w.secret) > 0
}

// Issue returns an HS256 token for subject that expires after ttl.
func (w *WebhookTokens) Issue(subject string, ttl time.Duration) (string, error) {
	if !w.Enabled() {
		return "", errors.New("webhook secret is not configured")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString(w.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign webhook token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry and returns the
// token subject.
func (w *WebhookTokens) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return w.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", errors.New("token has expired")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", errors.New("token signature is invalid")
		default:
			return "", err
		}
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// WebhookAuth requires a valid ?token= on webhook deliveries when signing is
// enabled, and exposes its subject under WebhookSubjectKey.
func WebhookAuth(tokens *WebhookTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !tokens.Enabled() {
			c.Next()
			return
		}

		tokenString := strings.TrimSpace(c.Query("token"))
		if tokenString == "" {
			unauthorized(c, "missing webhook token")
			return
		}

		subject, err := tokens.Verify(tokenString)
		if err != nil {
			unauthorized(c, "invalid webhook token: "+err.Error())
			return
		}

		c.Set(WebhookSubjectKey, subject)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Code:    string(apperr.Unauthorized),
		Message: message,
	})
}
