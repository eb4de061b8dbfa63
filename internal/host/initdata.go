package host

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/smolville/miniapp/pkg/logger"
)

// ParseInitData validates a Telegram WebApp initData query string against the
// bot token and returns the embedded user. The check follows Telegram's
// scheme: secret = HMAC-SHA256("WebAppData", botToken), then the hex HMAC of
// the sorted key=value lines must equal the hash parameter.
func ParseInitData(raw, botToken string) (User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return User{}, fmt.Errorf("host: init data is empty")
	}
	if botToken == "" {
		return User{}, fmt.Errorf("host: bot token is required")
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return User{}, fmt.Errorf("host: parse init data: %w", err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return User{}, fmt.Errorf("host: init data has no hash")
	}
	values.Del("hash")

	lines := make([]string, 0, len(values))
	for key := range values {
		lines = append(lines, key+"="+values.Get(key))
	}
	sort.Strings(lines)
	checkString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(gotHash)) {
		return User{}, fmt.Errorf("host: init data hash mismatch")
	}

	rawUser := values.Get("user")
	if rawUser == "" {
		return User{}, fmt.Errorf("host: init data has no user")
	}
	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return User{}, fmt.Errorf("host: decode user: %w", err)
	}
	if user.ID == 0 {
		return User{}, fmt.Errorf("host: init data user has no id")
	}
	return user, nil
}

// NewWebAppFromInitData validates initData and returns a ready WebApp
// runtime for the embedded user.
func NewWebAppFromInitData(raw, botToken string, log *logger.Logger) (*WebApp, error) {
	user, err := ParseInitData(raw, botToken)
	if err != nil {
		return nil, err
	}
	w := NewWebApp(user, log)
	w.Init()
	return w, nil
}
