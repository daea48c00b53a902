package db

import "time"

func CreateAd(ad *Ad) error {
	return DB.Create(ad).Error
}

// DueAds returns scheduled ads that have not been broadcast yet.
func DueAds(now time.Time) ([]Ad, error) {
	var ads []Ad
	err := DB.Where("sent = ? AND schedule_at <= ?", false, now).Find(&ads).Error
	return ads, err
}

func MarkAdSent(id uint) error {
	return DB.Model(&Ad{}).Where("id = ?", id).Update("sent", true).Error
}
