package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/postboard-dev/postboard/internal/assert"
	"github.com/postboard-dev/postboard/internal/auth"
	"github.com/postboard-dev/postboard/internal/models"
)

const (
	refreshCookieName = "jid"
	refreshCookiePath = "/token"

	ulidLength = 26
)

// CredentialsRequest represents a login or register request
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanumdash"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is looser than CredentialsRequest: a bad login is a 401, not a 400
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse represents a login or refresh response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// bindJSON decodes and validates a request body, answering 400 on failure
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}

	if err := s.validator.Struct(req); err != nil {
		title, detail := describeValidationError(err)
		respondError(c, http.StatusBadRequest, title, detail)
		return false
	}
	return true
}

// describeValidationError turns the first validation failure into a title and detail
func describeValidationError(err error) (string, string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request", err.Error()
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return "Missing " + lowerField(field), "This field is required"
	case "min":
		return "Too short " + lowerField(field), "Minimum " + fe.Param() + " characters"
	case "max":
		return "Too long " + lowerField(field), "Maximum " + fe.Param() + " characters"
	case "alphanumdash":
		return "Invalid " + lowerField(field), "Only letters, digits, '-' and '_' are allowed"
	default:
		return "Invalid " + lowerField(field), fe.Error()
	}
}

func lowerField(field string) string {
	switch field {
	case "Username":
		return "username"
	case "Password":
		return "password"
	case "Title":
		return "title"
	case "Content":
		return "content"
	}
	return field
}

func (s *Server) register(c *gin.Context) {
	var req CredentialsRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to look up user")
		respondInternalError(c)
		return
	}
	if count > 0 {
		respondError(c, http.StatusConflict, "User already exists", "")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		respondInternalError(c)
		return
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: passwordHash,
	}
	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		respondInternalError(c)
		return
	}

	s.logger.Info().Str("username", user.Username).Msg("User registered")
	c.JSON(http.StatusCreated, gin.H{"username": user.Username})
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var user models.User
	err := s.db.Where("username = ?", req.Username).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error().Err(err).Msg("Failed to look up user")
		respondInternalError(c)
		return
	}
	if err != nil || !auth.ComparePassword(user.PasswordHash, req.Password) {
		respondError(c, http.StatusUnauthorized, "Unauthorized", "Invalid credentials")
		return
	}

	s.issueTokens(c, user.Username)
}

// refreshToken exchanges a valid refresh cookie for a new access token and a new cookie
func (s *Server) refreshToken(c *gin.Context) {
	claims, ok := s.verifyRefreshCookie(c)
	if !ok {
		return
	}

	s.issueTokens(c, claims.Username)
}

// logout revokes the refresh token in the cookie and clears the cookie
func (s *Server) logout(c *gin.Context) {
	claims, ok := s.verifyRefreshCookie(c)
	if !ok {
		return
	}

	// Every refresh token we sign carries a ULID jti and an expiry
	assert.Length(claims.ID, ulidLength)
	assert.NotZero(claims.ExpiresAt, "refresh token expiry")

	revoked := &models.RevokedToken{
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(revoked).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to revoke refresh token")
		respondInternalError(c)
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.Auth.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	s.logger.Info().Str("username", claims.Username).Msg("User logged out")
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// verifyRefreshCookie validates the refresh cookie and checks it hasn't been revoked.
// It answers the request itself when verification fails.
func (s *Server) verifyRefreshCookie(c *gin.Context) (*auth.JWTClaims, bool) {
	cookie, err := c.Request.Cookie(refreshCookieName)
	if err != nil {
		respondError(c, http.StatusForbidden, "Forbidden", err.Error())
		return nil, false
	}

	claims, err := s.refresh.ValidateToken(cookie.Value)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Rejected refresh token")
		respondError(c, http.StatusUnauthorized, "Unauthorized", "Invalid credentials")
		return nil, false
	}

	var revoked int64
	if err := s.db.Model(&models.RevokedToken{}).Where("jti = ?", claims.ID).Count(&revoked).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check revoked tokens")
		respondInternalError(c)
		return nil, false
	}
	if revoked > 0 {
		respondError(c, http.StatusUnauthorized, "Unauthorized", "Invalid credentials")
		return nil, false
	}

	return claims, true
}

// issueTokens answers with a new access token and sets a new refresh cookie
func (s *Server) issueTokens(c *gin.Context, username string) {
	accessToken, _, err := s.access.GenerateToken(username)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate access token")
		respondInternalError(c)
		return
	}

	refreshToken, refreshClaims, err := s.refresh.GenerateToken(username)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate refresh token")
		respondInternalError(c)
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     refreshCookiePath,
		Expires:  refreshClaims.ExpiresAt.Time,
		HttpOnly: true,
		Secure:   s.config.Auth.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	// Token responses must not be cached
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int(s.access.TTL() / time.Second),
	})
}
