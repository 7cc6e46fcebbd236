package inference

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/pneumoscan/models"
)

// sweepBatch bounds the rows removed per sweep.
const sweepBatch = 100

// SweepExpired removes archived images whose retention has passed, together with their rows.
// Rows are deleted even when the stored object is already gone.
func SweepExpired(ctx context.Context, db *gorm.DB, archive Archive, now time.Time, log *zap.Logger) (int, error) {
	var items []models.Scan
	if err := db.WithContext(ctx).Where("expire_at <= ?", now).Limit(sweepBatch).Find(&items).Error; err != nil {
		return 0, err
	}
	removed := 0
	for _, it := range items {
		if it.Location != "" {
			if err := archive.Delete(ctx, it.Location); err != nil {
				log.Warn("archive delete failed", zap.String("key", it.Key), zap.Error(err))
			}
		}
		if err := db.WithContext(ctx).Delete(&models.Scan{}, it.ID).Error; err != nil {
			log.Warn("scan row delete failed", zap.Uint("id", it.ID), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// StartCleaner sweeps expired scans every interval until ctx is done.
func StartCleaner(ctx context.Context, db *gorm.DB, archive Archive, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := SweepExpired(ctx, db, archive, now.UTC(), log)
				if err != nil {
					log.Warn("scan cleaner query failed", zap.Error(err))
					continue
				}
				if n > 0 {
					log.Info("scan cleaner removed expired scans", zap.Int("count", n))
				}
			}
		}
	}()
}
