package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	extErrors "github.com/pkg/errors"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// User is the identity provider account behind a session
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is what the identity provider hands out after a successful sign in
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

// IdentityProvider is the subset of the identity provider's auth API used by the site
type IdentityProvider interface {
	AuthorizeURL(provider, redirectTo, codeChallenge string) string
	ExchangeCode(ctx context.Context, code, verifier string) (*Session, error)
	Logout(ctx context.Context, accessToken string) error
}

// IdentityOptions describes how to reach the identity provider
type IdentityOptions struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// Identity talks to the identity provider through the GoTrue client
type Identity struct {
	base   string
	client gotrue.Client
}

var _ IdentityProvider = &Identity{}

// NewIdentity returns a client for the identity provider at opt.URL
func NewIdentity(opt IdentityOptions) (*Identity, error) {
	if opt.URL == "" {
		return nil, fmt.Errorf("empty identity provider URL is invalid")
	}
	if opt.APIKey == "" {
		return nil, fmt.Errorf("empty identity provider APIKey is invalid")
	}
	httpClient := opt.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	base := strings.TrimRight(opt.URL, "/") + "/auth/v1"
	client := gotrue.New("", opt.APIKey).
		WithCustomGoTrueURL(base).
		WithClient(*httpClient)
	return &Identity{
		base:   base,
		client: client,
	}, nil
}

// AuthorizeURL is where the browser starts an OAuth sign in with PKCE.
// The verifier stays in our cookie, so the URL is built here instead of asking GoTrue for one.
func (i *Identity) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "s256")
	return i.base + "/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code and its PKCE verifier for a session.
// The GoTrue client takes no context, calls are bounded by the HTTP client timeout.
func (i *Identity) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	res, err := i.client.Token(types.TokenRequest{
		GrantType:    "pkce",
		Code:         code,
		CodeVerifier: verifier,
	})
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot exchange authorization code")
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("identity provider returned no access token")
	}
	return &Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
		TokenType:    res.TokenType,
		User: User{
			ID:    res.User.ID.String(),
			Email: res.User.Email,
		},
	}, nil
}

// Logout revokes the session behind accessToken
func (i *Identity) Logout(ctx context.Context, accessToken string) error {
	if err := i.client.WithToken(accessToken).Logout(); err != nil {
		return extErrors.Wrap(err, "Cannot revoke session")
	}
	return nil
}
