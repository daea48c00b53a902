package db

import "time"

const AttemptWindow = 24 * time.Hour

// CountRecentAttempts counts attempts inside the sliding 24h window.
func CountRecentAttempts(userID int64, now time.Time) (int, error) {
	var count int64
	err := DB.Model(&Attempt{}).
		Where("user_id = ? AND created_at > ?", userID, now.Add(-AttemptWindow)).
		Count(&count).Error
	return int(count), err
}

func AddAttempt(userID int64, now time.Time) error {
	return DB.Create(&Attempt{UserID: userID, CreatedAt: now}).Error
}
