package auth

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNoAccessToken is returned when a callback fragment carries no access_token
var ErrNoAccessToken = errors.New("fragment has no access_token")

// Fragment holds the implicit-flow values found after the # of the callback URL
type Fragment struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// ParseFragment extracts access_token, refresh_token and expires_in from raw.
// raw may be the bare fragment, the fragment with its leading '#', or the whole callback URL.
func ParseFragment(raw string) (*Fragment, error) {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[i+1:]
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	f := &Fragment{
		AccessToken:  values.Get("access_token"),
		RefreshToken: values.Get("refresh_token"),
		ExpiresIn:    values.Get("expires_in"),
	}
	if f.AccessToken == "" {
		return nil, ErrNoAccessToken
	}
	return f, nil
}
