package web

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

func signedInitData(t *testing.T, botToken string, userID int64, authDate time.Time) string {
	t.Helper()
	values := url.Values{}
	values.Set("user", fmt.Sprintf(`{"id":%d,"first_name":"Aziz","username":"aziz"}`, userID))
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+values.Get(key))
	}
	values.Set("hash", signInitData(strings.Join(lines, "\n"), botToken))
	return values.Encode()
}

func TestValidateInitData(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	const botToken = "12345:test-token"

	initData := signedInitData(t, botToken, 777, now.Add(-time.Minute))
	user, err := ValidateInitData(initData, botToken, initDataMaxAge, now)
	if err != nil {
		t.Fatalf("expected valid init data, got %v", err)
	}
	if user.ID != 777 || user.FirstName != "Aziz" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestValidateInitDataRejectsWrongToken(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	initData := signedInitData(t, "12345:test-token", 777, now)

	if _, err := ValidateInitData(initData, "другой:token", initDataMaxAge, now); err == nil {
		t.Fatalf("expected rejection with a different bot token")
	}
}

func TestValidateInitDataRejectsTampering(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	const botToken = "12345:test-token"
	initData := signedInitData(t, botToken, 777, now)

	tampered := strings.Replace(initData, "777", "778", 1)
	if _, err := ValidateInitData(tampered, botToken, initDataMaxAge, now); err == nil {
		t.Fatalf("expected rejection of tampered init data")
	}
}

func TestValidateInitDataRejectsStaleAuthDate(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	const botToken = "12345:test-token"
	initData := signedInitData(t, botToken, 777, now.Add(-48*time.Hour))

	if _, err := ValidateInitData(initData, botToken, initDataMaxAge, now); err == nil {
		t.Fatalf("expected rejection of stale auth_date")
	}
}

func TestValidateInitDataRejectsMissingHash(t *testing.T) {
	if _, err := ValidateInitData("user=%7B%22id%22%3A1%7D", "token", 0, time.Now()); err == nil {
		t.Fatalf("expected rejection without hash")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	// the jwt library validates exp against the wall clock
	now := time.Now()

	token, err := issueToken("secret", 42, now)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	userID, err := parseToken("secret", token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user 42, got %d", userID)
	}
}

func TestParseTokenRejectsBadSecretAndGarbage(t *testing.T) {
	token, err := issueToken("secret", 42, time.Now())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	if _, err := parseToken("other-secret", token); err == nil {
		t.Fatalf("expected rejection with the wrong secret")
	}
	if _, err := parseToken("secret", "not-a-token"); err == nil {
		t.Fatalf("expected rejection of a malformed token")
	}
}
