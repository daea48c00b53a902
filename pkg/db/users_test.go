package db

import "testing"

func TestGetOrCreateUserKeepsStoredFields(t *testing.T) {
	setupTestDB(t)

	user, err := GetOrCreateUser(900, "Aziz", "aziz", "https://t.me/photo.jpg")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	if user.Tariff != TariffFree {
		t.Fatalf("expected free tariff default, got %q", user.Tariff)
	}

	// empty incoming values must not wipe stored ones
	user, err = GetOrCreateUser(900, "", "", "")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	if user.FirstName != "Aziz" || user.Username != "aziz" {
		t.Fatalf("stored fields overwritten: %+v", user)
	}

	user, err = GetOrCreateUser(900, "Azizbek", "", "")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	if user.FirstName != "Azizbek" {
		t.Fatalf("expected updated first name, got %q", user.FirstName)
	}
}

func TestSaveContactRegistersUser(t *testing.T) {
	setupTestDB(t)

	user, err := SaveContact(901, "+998901234567")
	if err != nil {
		t.Fatalf("SaveContact failed: %v", err)
	}
	if user.Contact != "+998901234567" {
		t.Fatalf("unexpected contact: %q", user.Contact)
	}

	stored, err := GetUser(901)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if stored == nil || stored.Contact != "+998901234567" {
		t.Fatalf("contact not persisted: %+v", stored)
	}
}

func TestFindUserByTarget(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, 902, "target")

	byName, err := FindUserByTarget("target", 0)
	if err != nil {
		t.Fatalf("FindUserByTarget failed: %v", err)
	}
	if byName == nil || byName.TelegramID != 902 {
		t.Fatalf("unexpected lookup by username: %+v", byName)
	}

	byID, err := FindUserByTarget("", 902)
	if err != nil {
		t.Fatalf("FindUserByTarget failed: %v", err)
	}
	if byID == nil || byID.TelegramID != 902 {
		t.Fatalf("unexpected lookup by id: %+v", byID)
	}

	missing, err := FindUserByTarget("ghost", 0)
	if err != nil {
		t.Fatalf("FindUserByTarget failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown target, got %+v", missing)
	}
}

func TestGetUserSettingsDefaultsAndRoundTrip(t *testing.T) {
	setupTestDB(t)

	settings, err := GetUserSettings(903)
	if err != nil {
		t.Fatalf("GetUserSettings failed: %v", err)
	}
	if !settings.Notifications || settings.Language != "en" || settings.DailyGoal != 30 || settings.TargetScore != 6.5 {
		t.Fatalf("unexpected defaults: %+v", settings)
	}

	settings.DarkMode = true
	settings.DailyGoal = 45
	if err := SaveUserSettings(settings); err != nil {
		t.Fatalf("SaveUserSettings failed: %v", err)
	}

	reloaded, err := GetUserSettings(903)
	if err != nil {
		t.Fatalf("GetUserSettings failed: %v", err)
	}
	if !reloaded.DarkMode || reloaded.DailyGoal != 45 {
		t.Fatalf("settings not persisted: %+v", reloaded)
	}
}
