// Package ads broadcasts scheduled adverts to the whole user base.
package ads

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
)

const BroadcastInterval = time.Minute

// StartBroadcaster delivers due adverts once a minute until the context ends.
func StartBroadcaster(ctx context.Context, b *bot.Bot) {
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			processDueAds(ctx, b, now.UTC())
		}
	}
}

func processDueAds(ctx context.Context, b *bot.Bot, now time.Time) {
	due, err := db.DueAds(now)
	if err != nil {
		logger.Error("failed to fetch due ads", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	ids, err := db.ListUserIDs()
	if err != nil {
		logger.Error("failed to list users for ads", "error", err)
		return
	}

	for _, ad := range due {
		// marked before delivery: a failed mark must not re-broadcast the ad
		// to the whole user base on the next tick
		if err := db.MarkAdSent(ad.ID); err != nil {
			logger.Error("failed to mark ad sent", "ad_id", ad.ID, "error", err)
			continue
		}
		sent := 0
		for _, id := range ids {
			if _, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
				ChatID:  id,
				Photo:   &models.InputFileString{Data: ad.FileID},
				Caption: ad.Caption,
			}); err != nil {
				logger.Warn("ad delivery failed", "ad_id", ad.ID, "user_id", id, "error", err)
				continue
			}
			sent++
		}
		logger.Info("ad broadcast", "ad_id", ad.ID, "sent", sent, "total", len(ids))
	}
}
