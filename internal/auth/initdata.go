// Package auth holds account credentials: the raw Telegram WebApp init
// data the canvas API accepts, its decoded form, and the userdata.json
// store it is read from.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ErrNoUser is returned when init data carries no user record.
var ErrNoUser = errors.New("init data has no user")

// User is the Telegram user embedded in init data.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

// InitData is a decoded WebApp init data string.
type InitData struct {
	QueryID      string
	User         User
	ChatInstance string
	ChatType     string
	StartParam   string
	AuthDate     time.Time
	Hash         string
	// Raw is the string as received, which is what the API wants back.
	Raw string
}

// ParseInitData decodes the URL-encoded init data string. It does not
// verify the hash; only the issuing bot can.
func ParseInitData(raw string) (InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, fmt.Errorf("malformed init data: %w", err)
	}

	data := InitData{
		QueryID:      values.Get("query_id"),
		ChatInstance: values.Get("chat_instance"),
		ChatType:     values.Get("chat_type"),
		StartParam:   values.Get("start_param"),
		Hash:         values.Get("hash"),
		Raw:          raw,
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return InitData{}, ErrNoUser
	}
	if err := json.Unmarshal([]byte(userJSON), &data.User); err != nil {
		return InitData{}, fmt.Errorf("malformed init data user: %w", err)
	}

	if s := values.Get("auth_date"); s != "" {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return InitData{}, fmt.Errorf("malformed init data auth_date %q: %w", s, err)
		}
		data.AuthDate = time.Unix(secs, 0)
	}
	return data, nil
}

// Age returns how long ago the init data was issued, or zero when the
// issue date is unknown.
func (d InitData) Age(now time.Time) time.Duration {
	if d.AuthDate.IsZero() {
		return 0
	}
	return now.Sub(d.AuthDate)
}
