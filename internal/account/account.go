// Package account reads the bot's account list from profile.json.
package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ErrNoProfiles is returned when the profile file holds no usable entry.
var ErrNoProfiles = errors.New("no valid profiles found")

// Profile is one account the bot plays.
type Profile struct {
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path"`
	// RawProxy is host:port or host:port:user:pass.
	RawProxy string `json:"raw_proxy,omitempty"`
}

// ProxyURL returns the profile's proxy as an http URL, or nil when the
// profile connects directly.
func (p Profile) ProxyURL() (*url.URL, error) {
	return ParseProxy(p.RawProxy)
}

// ParseProxy turns host:port[:user:pass] into an http proxy URL. An
// empty string yields nil.
func ParseProxy(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ":")
	switch len(parts) {
	case 2:
		return &url.URL{Scheme: "http", Host: parts[0] + ":" + parts[1]}, nil
	case 4:
		return &url.URL{
			Scheme: "http",
			Host:   parts[0] + ":" + parts[1],
			User:   url.UserPassword(parts[2], parts[3]),
		}, nil
	}
	return nil, fmt.Errorf("invalid proxy %q: want host:port or host:port:user:pass", raw)
}

// Load reads profile.json. Entries without a name, or with a malformed
// proxy, are skipped and reported through skip.
func Load(path string, skip func(p Profile, err error)) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	var raw []Profile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}

	profiles := make([]Profile, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p.Name) == "" {
			if skip != nil {
				skip(p, errors.New("profile has no name"))
			}
			continue
		}
		if _, err := p.ProxyURL(); err != nil {
			if skip != nil {
				skip(p, err)
			}
			continue
		}
		profiles = append(profiles, p)
	}
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}
	return profiles, nil
}
