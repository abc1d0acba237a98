package server

import (
	"time"

	"github.com/postboard-dev/postboard/internal/metrics"
	"github.com/postboard-dev/postboard/internal/models"
)

// pruneRevokedTokens deletes revoked-token rows whose refresh token has expired.
// An expired token fails validation on its own so its row is no longer needed.
func (s *Server) pruneRevokedTokens(now time.Time) (int64, error) {
	result := s.db.Where("expires_at < ?", now.Unix()).Delete(&models.RevokedToken{})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		metrics.RevokedTokensPruned.Add(float64(result.RowsAffected))
		s.logger.Info().Int64("pruned", result.RowsAffected).Msg("Pruned expired revoked tokens")
	}
	return result.RowsAffected, nil
}
