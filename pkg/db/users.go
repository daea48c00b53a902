package db

import (
	"errors"

	"gorm.io/gorm"
)

// GetUser returns nil without error when the user is unknown.
func GetUser(telegramID int64) (*User, error) {
	var user User
	err := DB.Where("telegram_id = ?", telegramID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// GetOrCreateUser upserts the profile fields that Telegram sends on every
// contact. Empty incoming values never overwrite stored ones.
func GetOrCreateUser(telegramID int64, firstName, username, photoURL string) (*User, error) {
	var user User
	err := DB.Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = User{
			TelegramID: telegramID,
			FirstName:  firstName,
			Username:   username,
			PhotoURL:   photoURL,
			Tariff:     TariffFree,
		}
		if err := DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if firstName != "" && firstName != user.FirstName {
		user.FirstName = firstName
		changed = true
	}
	if username != "" && username != user.Username {
		user.Username = username
		changed = true
	}
	if photoURL != "" && photoURL != user.PhotoURL {
		user.PhotoURL = photoURL
		changed = true
	}
	if changed {
		if err := DB.Save(&user).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// SaveContact records the shared phone number, creating the user if needed.
func SaveContact(telegramID int64, contact string) (*User, error) {
	user, err := GetOrCreateUser(telegramID, "", "", "")
	if err != nil {
		return nil, err
	}
	user.Contact = contact
	if err := DB.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByTarget resolves "@username" or a numeric Telegram ID.
func FindUserByTarget(target string, numericID int64) (*User, error) {
	var user User
	query := DB
	if target != "" {
		query = query.Where("username = ?", target)
	} else {
		query = query.Where("telegram_id = ?", numericID)
	}
	err := query.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func SetTariff(telegramID int64, tariff string) error {
	return DB.Model(&User{}).Where("telegram_id = ?", telegramID).
		Update("tariff", tariff).Error
}

func IsAdmin(telegramID int64) (bool, error) {
	var count int64
	if err := DB.Model(&Admin{}).Where("user_id = ?", telegramID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func AddAdmin(telegramID int64) error {
	admin := Admin{UserID: telegramID}
	return DB.Where("user_id = ?", telegramID).FirstOrCreate(&admin).Error
}

func ListUserIDs() ([]int64, error) {
	var ids []int64
	if err := DB.Model(&User{}).Pluck("telegram_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// GetUserSettings returns the settings row, creating defaults on first access.
func GetUserSettings(telegramID int64) (*UserSetting, error) {
	settings := UserSetting{
		UserID:        telegramID,
		Notifications: true,
		Language:      "en",
		DailyGoal:     30,
		TargetScore:   6.5,
	}
	if err := DB.Where("user_id = ?", telegramID).FirstOrCreate(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func SaveUserSettings(settings *UserSetting) error {
	return DB.Save(settings).Error
}
