package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/internal/testutil"
)

func setupAdmin(t *testing.T, adminID int64) {
	t.Helper()
	if err := db.DB.Create(&db.User{TelegramID: adminID, Contact: "+1"}).Error; err != nil {
		t.Fatalf("failed to create admin user: %v", err)
	}
	if err := db.AddAdmin(adminID); err != nil {
		t.Fatalf("failed to add admin: %v", err)
	}
}

func TestAdminCommandsRejectNonAdmins(t *testing.T) {
	testutil.SetupTestDB(t)
	client := newMockClient()
	b := newTestTelegramBot(t, client)

	HandleUpgradeGold(context.Background(), b, newTestUpdate("/upgrade_gold @someone", 400))

	if text := client.lastMessageText(t); !strings.Contains(text, "administrators only") {
		t.Fatalf("expected admin rejection, got %q", text)
	}
}

func TestHandleUpgradeGoldChangesTariff(t *testing.T) {
	testutil.SetupTestDB(t)
	setupAdmin(t, 401)
	if err := db.DB.Create(&db.User{TelegramID: 402, Username: "student", Contact: "+2"}).Error; err != nil {
		t.Fatalf("failed to create target: %v", err)
	}
	client := newMockClient()
	b := newTestTelegramBot(t, client)

	HandleUpgradeGold(context.Background(), b, newTestUpdate("/upgrade_gold @student", 401))

	user, err := db.GetUser(402)
	if err != nil {
		t.Fatalf("failed to load target: %v", err)
	}
	if user.Tariff != db.TariffGold {
		t.Fatalf("expected gold tariff, got %q", user.Tariff)
	}

	HandleDowngrade(context.Background(), b, newTestUpdate("/downgrade 402", 401))
	user, err = db.GetUser(402)
	if err != nil {
		t.Fatalf("failed to load target: %v", err)
	}
	if user.Tariff != db.TariffFree {
		t.Fatalf("expected free tariff after downgrade, got %q", user.Tariff)
	}
}

func TestHandleSendAllBroadcasts(t *testing.T) {
	testutil.SetupTestDB(t)
	setupAdmin(t, 410)
	for _, id := range []int64{411, 412} {
		if err := db.DB.Create(&db.User{TelegramID: id, Contact: "+3"}).Error; err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
	}
	client := newMockClient()
	b := newTestTelegramBot(t, client)

	HandleSendAll(context.Background(), b, newTestUpdate("/send_all New mock tests are available!", 410))

	texts := client.messageTexts(t)
	broadcasts := 0
	for _, text := range texts {
		if text == "New mock tests are available!" {
			broadcasts++
		}
	}
	if broadcasts != 3 { // admin is a user too
		t.Fatalf("expected 3 broadcast deliveries, got %d (texts: %v)", broadcasts, texts)
	}
	if last := texts[len(texts)-1]; !strings.Contains(last, "delivered to 3 of 3") {
		t.Fatalf("expected delivery summary, got %q", last)
	}
}

func TestAdminPhotoSchedulesAd(t *testing.T) {
	testutil.SetupTestDB(t)
	setupAdmin(t, 420)
	client := newMockClient()
	b := newTestTelegramBot(t, client)

	DefaultHandler(context.Background(), b, newTestPhotoUpdate(420, "photo-file-id", "Join our course"))

	var ads []db.Ad
	if err := db.DB.Find(&ads).Error; err != nil {
		t.Fatalf("failed to load ads: %v", err)
	}
	if len(ads) != 1 {
		t.Fatalf("expected one scheduled ad, got %d", len(ads))
	}
	if ads[0].FileID != "photo-file-id" || ads[0].Caption != "Join our course" || ads[0].Sent {
		t.Fatalf("unexpected ad row: %+v", ads[0])
	}
}

func TestNonAdminPhotoIsIgnored(t *testing.T) {
	testutil.SetupTestDB(t)
	if err := db.DB.Create(&db.User{TelegramID: 421, Contact: "+4"}).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	client := newMockClient()
	b := newTestTelegramBot(t, client)

	DefaultHandler(context.Background(), b, newTestPhotoUpdate(421, "photo-file-id", "spam"))

	var count int64
	if err := db.DB.Model(&db.Ad{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count ads: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no ads from non-admin, got %d", count)
	}
}
