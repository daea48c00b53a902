package ads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"

	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/internal/testutil"
)

type recordingClient struct {
	paths []string
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}
	c.paths = append(c.paths, req.URL.Path)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"result":{}}`)),
		Header:     make(http.Header),
	}, nil
}

// markCheckingClient records, at the moment of the first delivery, whether the
// ad had already been marked sent.
type markCheckingClient struct {
	now             time.Time
	paths           []string
	checked         bool
	dueAtFirstSend  int
	dueCheckFailure error
}

func (c *markCheckingClient) Do(req *http.Request) (*http.Response, error) {
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}
	c.paths = append(c.paths, req.URL.Path)
	if strings.HasSuffix(req.URL.Path, "/sendPhoto") && !c.checked {
		c.checked = true
		due, err := db.DueAds(c.now)
		c.dueAtFirstSend = len(due)
		c.dueCheckFailure = err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"result":{}}`)),
		Header:     make(http.Header),
	}, nil
}

func TestProcessDueAdsBroadcastsOnce(t *testing.T) {
	testutil.SetupTestDB(t)
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []int64{1, 2, 3} {
		if err := db.DB.Create(&db.User{TelegramID: id, Contact: "+1"}).Error; err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
	}
	due := &db.Ad{AdminID: 1, FileID: "file-1", Caption: "hello", ScheduleAt: now.Add(-time.Minute)}
	if err := db.CreateAd(due); err != nil {
		t.Fatalf("failed to create due ad: %v", err)
	}
	future := &db.Ad{AdminID: 1, FileID: "file-2", Caption: "later", ScheduleAt: now.Add(time.Hour)}
	if err := db.CreateAd(future); err != nil {
		t.Fatalf("failed to create future ad: %v", err)
	}

	client := &recordingClient{}
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}

	processDueAds(context.Background(), b, now)

	photos := 0
	for _, path := range client.paths {
		if strings.HasSuffix(path, "/sendPhoto") {
			photos++
		}
	}
	if photos != 3 {
		t.Fatalf("expected 3 photo deliveries, got %d", photos)
	}

	stored, err := db.DueAds(now.Add(time.Second))
	if err != nil {
		t.Fatalf("failed to reload due ads: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected the due ad to be marked sent, still due: %+v", stored)
	}

	// second pass must not resend
	processDueAds(context.Background(), b, now)
	photosAfter := 0
	for _, path := range client.paths {
		if strings.HasSuffix(path, "/sendPhoto") {
			photosAfter++
		}
	}
	if photosAfter != 3 {
		t.Fatalf("expected no resends, got %d total deliveries", photosAfter)
	}
}

func TestAdMarkedSentBeforeDelivery(t *testing.T) {
	testutil.SetupTestDB(t)
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	if err := db.DB.Create(&db.User{TelegramID: 1, Contact: "+1"}).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	due := &db.Ad{AdminID: 1, FileID: "file-1", Caption: "hello", ScheduleAt: now.Add(-time.Minute)}
	if err := db.CreateAd(due); err != nil {
		t.Fatalf("failed to create due ad: %v", err)
	}

	client := &markCheckingClient{now: now}
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}

	processDueAds(context.Background(), b, now)

	if !client.checked {
		t.Fatal("expected at least one delivery")
	}
	if client.dueCheckFailure != nil {
		t.Fatalf("failed to reload due ads mid-broadcast: %v", client.dueCheckFailure)
	}
	// a crash or error mid-broadcast must never re-queue the ad
	if client.dueAtFirstSend != 0 {
		t.Fatalf("ad still due at first delivery, a failure would rebroadcast it")
	}
}
