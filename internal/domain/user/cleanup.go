package user

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TokenCleaner periodically deletes expired one-time and refresh tokens
type TokenCleaner struct {
	db       *gorm.DB
	logger   *logrus.Logger
	interval time.Duration
}

// NewTokenCleaner creates a cleaner that runs every interval
func NewTokenCleaner(db *gorm.DB, logger *logrus.Logger, interval time.Duration) *TokenCleaner {
	return &TokenCleaner{db: db, logger: logger, interval: interval}
}

// Run blocks until ctx is canceled
func (c *TokenCleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanupExpired(ctx, time.Now().UTC())
		}
	}
}

// CleanupExpired deletes tokens that expired before now. Each table is a
// separate short statement so no long transaction is held.
func (c *TokenCleaner) CleanupExpired(ctx context.Context, now time.Time) int64 {
	var total int64
	for _, model := range []interface{}{&ActivationToken{}, &PasswordResetToken{}, &RefreshToken{}} {
		res := c.db.WithContext(ctx).Where("expires_at < ?", now).Delete(model)
		if res.Error != nil {
			c.logger.WithError(res.Error).Errorf("Failed to delete expired %T", model)
			continue
		}
		total += res.RowsAffected
	}
	if total > 0 {
		c.logger.WithField("deleted", total).Info("Expired tokens removed")
	}
	return total
}
