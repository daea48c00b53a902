package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type StudyDay struct {
	Date     string `json:"date"`
	Minutes  int    `json:"minutes"`
	Sessions int    `json:"sessions"`
}

// WeeklyProgress returns the last 7 days oldest-first, zero-filled.
func WeeklyProgress(userID int64, now time.Time) ([]StudyDay, error) {
	days := make([]StudyDay, 0, 7)
	for i := 6; i >= 0; i-- {
		date := now.UTC().AddDate(0, 0, -i).Format("2006-01-02")
		var row DailyStudy
		err := DB.Where("user_id = ? AND date = ?", userID, date).First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		days = append(days, StudyDay{
			Date:     date,
			Minutes:  row.Minutes,
			Sessions: row.SessionsCount,
		})
	}
	return days, nil
}

// StudyStreak counts consecutive studied days ending today or yesterday.
func StudyStreak(userID int64, now time.Time) (int, error) {
	day := now.UTC()
	studied, err := studiedOn(userID, day.Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	if !studied {
		day = day.AddDate(0, 0, -1)
		studied, err = studiedOn(userID, day.Format("2006-01-02"))
		if err != nil {
			return 0, err
		}
		if !studied {
			return 0, nil
		}
	}

	streak := 0
	for {
		studied, err := studiedOn(userID, day.Format("2006-01-02"))
		if err != nil {
			return streak, err
		}
		if !studied {
			return streak, nil
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

func studiedOn(userID int64, date string) (bool, error) {
	var count int64
	err := DB.Model(&DailyStudy{}).
		Where("user_id = ? AND date = ? AND minutes > 0", userID, date).
		Count(&count).Error
	return count > 0, err
}

func TotalPracticeHours(userID int64) (float64, error) {
	var total int64
	err := DB.Model(&DailyStudy{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(minutes), 0)").Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return float64(total) / 60, nil
}
