package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/postboard-dev/postboard/internal/auth"
	"github.com/postboard-dev/postboard/internal/metrics"
	"github.com/postboard-dev/postboard/internal/models"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrUserNotFound      = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

// extractBearerToken accepts "Bearer <token>" with any casing of the scheme
func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrInvalidAuthFormat
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func respondUnauthorized(c *gin.Context, log zerolog.Logger, err error, detail string) {
	log.Debug().Err(err).Msg(detail)
	respondError(c, http.StatusUnauthorized, "Unauthorized", detail)
}

// JWTAuthMiddleware validates access tokens
func JWTAuthMiddleware(db *gorm.DB, signer *auth.Signer, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Missing authorization header"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			respondUnauthorized(c, log, err, message)
			return
		}

		claims, err := signer.ValidateToken(token)
		if err != nil {
			respondUnauthorized(c, log, err, "Invalid credentials")
			return
		}

		// Verify user still exists
		var user models.User
		if err := db.Where("username = ?", claims.Username).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondUnauthorized(c, log, ErrUserNotFound, "Invalid credentials")
				return
			}
			log.Error().Err(err).Msg("Failed to load user")
			respondInternalError(c)
			return
		}

		setSession(c, &auth.SessionData{
			Username: user.Username,
			TokenID:  claims.ID,
		})

		c.Next()
	}
}

// metricsMiddleware records request counts and latencies per route
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, metrics.StatusClass(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
