package db

import (
	"errors"
	"math/rand"

	"gorm.io/gorm"
)

const referralCodeLen = 8

var (
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrOwnReferralCode     = errors.New("cannot use your own code")
	ErrAlreadyReferred     = errors.New("referral code already used")
)

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReferralCode returns the user's code, minting one on first call.
func GenerateReferralCode(userID int64) (string, error) {
	var user User
	if err := DB.Where("telegram_id = ?", userID).First(&user).Error; err != nil {
		return "", err
	}
	if user.ReferralCode != nil && *user.ReferralCode != "" {
		return *user.ReferralCode, nil
	}

	for attempt := 0; attempt < 10; attempt++ {
		code := randomReferralCode()
		var count int64
		if err := DB.Model(&User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count > 0 {
			continue
		}
		if err := DB.Model(&User{}).Where("telegram_id = ?", userID).
			Update("referral_code", code).Error; err != nil {
			return "", err
		}
		return code, nil
	}
	return "", errors.New("failed to generate unique referral code")
}

func randomReferralCode() string {
	buf := make([]byte, referralCodeLen)
	for i := range buf {
		buf[i] = referralAlphabet[rand.Intn(len(referralAlphabet))]
	}
	return string(buf)
}

// ProcessReferral redeems a code: both the referrer and the referred user get
// one bonus mock. A user may redeem at most one code, and never their own.
func ProcessReferral(referredID int64, code string) error {
	var referrer User
	err := DB.Where("referral_code = ?", code).First(&referrer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidReferralCode
	}
	if err != nil {
		return err
	}
	if referrer.TelegramID == referredID {
		return ErrOwnReferralCode
	}

	var count int64
	if err := DB.Model(&Referral{}).Where("referred_id = ?", referredID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyReferred
	}

	return DB.Transaction(func(tx *gorm.DB) error {
		referral := Referral{
			ReferrerID: referrer.TelegramID,
			ReferredID: referredID,
			Rewarded:   true,
		}
		if err := tx.Create(&referral).Error; err != nil {
			return err
		}
		if err := tx.Model(&User{}).Where("telegram_id = ?", referrer.TelegramID).
			Update("bonus_mocks", gorm.Expr("bonus_mocks + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&User{}).Where("telegram_id = ?", referredID).
			Update("bonus_mocks", gorm.Expr("bonus_mocks + 1")).Error
	})
}

type ReferralStats struct {
	ReferralCode  string `json:"referral_code"`
	BonusMocks    int    `json:"bonus_mocks"`
	ReferralCount int64  `json:"referral_count"`
}

func GetReferralStats(userID int64) (*ReferralStats, error) {
	var user User
	if err := DB.Where("telegram_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	var count int64
	if err := DB.Model(&Referral{}).Where("referrer_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	code := ""
	if user.ReferralCode != nil {
		code = *user.ReferralCode
	}
	return &ReferralStats{
		ReferralCode:  code,
		BonusMocks:    user.BonusMocks,
		ReferralCount: count,
	}, nil
}

// UseBonusMock consumes one bonus mock. Returns false when none are left.
func UseBonusMock(userID int64) (bool, error) {
	res := DB.Model(&User{}).
		Where("telegram_id = ? AND bonus_mocks > 0", userID).
		Update("bonus_mocks", gorm.Expr("bonus_mocks - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
