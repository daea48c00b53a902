package db

import "time"

// BotStats is the admin /stats summary.
type BotStats struct {
	TotalUsers    int64
	NewUsersToday int64
	ActiveToday   int64
}

func GetBotStats(now time.Time) (*BotStats, error) {
	var stats BotStats
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if err := DB.Model(&User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := DB.Model(&User{}).Where("created_at >= ?", dayStart).
		Count(&stats.NewUsersToday).Error; err != nil {
		return nil, err
	}
	if err := DB.Model(&Attempt{}).Where("created_at >= ?", dayStart).
		Distinct("user_id").Count(&stats.ActiveToday).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
