// Package web serves the Telegram mini-app REST API.
package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionNotFound = errors.New("session not found")
)

// WebAppUser is the Telegram user embedded in WebApp initData.
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// ValidateInitData checks the WebApp initData signature against the bot token
// and returns the authenticated user. The signature scheme is Telegram's:
// HMAC-SHA256 over the sorted key=value lines, keyed with
// HMAC-SHA256("WebAppData", botToken).
func ValidateInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*WebAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrUnauthorized
	}
	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, ErrUnauthorized
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+values.Get(key))
	}
	dataCheck := strings.Join(lines, "\n")

	if !hmac.Equal([]byte(signInitData(dataCheck, botToken)), []byte(gotHash)) {
		return nil, ErrUnauthorized
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil || now.Sub(time.Unix(authDate, 0)) > maxAge {
			return nil, ErrUnauthorized
		}
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, ErrUnauthorized
	}
	return &user, nil
}

func signInitData(dataCheck, botToken string) string {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheck))
	return hex.EncodeToString(mac.Sum(nil))
}
