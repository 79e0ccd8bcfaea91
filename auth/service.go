package auth

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	resp "github.com/healthparse/landing/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var validate *validator.Validate = validator.New()

// VerifierCookie holds the PKCE verifier between /auth/login and /auth/callback
const VerifierCookie = "sb-code-verifier"

const (
	defaultProvider   = "google"
	verifierMaxAge    = 10 * 60
	refreshMaxAge     = 30 * 24 * 60 * 60
	defaultAccessLife = 3600
)

// ServiceOptions contains the configuration for the sign in router
type ServiceOptions struct {
	Auth      *Auth
	Identity  IdentityProvider
	Listeners *Listeners
	Logger    *zap.Logger

	// Origin is the public URL the identity provider redirects back to
	Origin        string
	SecureCookies bool
}

// Service is the sign in router
type Service struct {
	ServiceOptions
}

// FragmentRequest is posted by the implicit-flow callback page
type FragmentRequest struct {
	Fragment string `json:"fragment" validate:"required"`
}

// NewService will create an instance of the sign in router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.Identity == nil {
		return nil, fmt.Errorf("nil Identity is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Origin == "" {
		return nil, fmt.Errorf("empty Origin is invalid")
	}
	if option.Listeners == nil {
		option.Listeners = NewListeners()
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

func (s *Service) failureURL() string {
	return s.Origin + "/?error=auth-failed"
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = defaultProvider
	}
	if err := validate.Var(provider, "required,alpha,lowercase"); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid provider"))
		return
	}

	verifier := oauth2.GenerateVerifier()
	s.setCookie(w, VerifierCookie, verifier, verifierMaxAge)

	target := s.Identity.AuthorizeURL(provider, s.Origin+"/auth/callback", oauth2.S256ChallengeFromVerifier(verifier))
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Service) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.Logger.Warn("Identity provider rejected sign in",
			zap.String("error", e),
			zap.String("description", q.Get("error_description")),
		)
		http.Redirect(w, r, s.failureURL(), http.StatusFound)
		return
	}

	code := q.Get("code")
	if code == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := fragmentPage.Execute(w, fragmentData{FailureURL: s.failureURL()}); err != nil {
			s.Logger.Error("Cannot render callback page", zap.Error(err))
		}
		return
	}

	verifier, err := r.Cookie(VerifierCookie)
	if err != nil || verifier.Value == "" {
		s.Logger.Warn("Sign in callback without PKCE verifier")
		http.Redirect(w, r, s.failureURL(), http.StatusFound)
		return
	}
	s.clearCookie(w, VerifierCookie)

	session, err := s.Identity.ExchangeCode(r.Context(), code, verifier.Value)
	if err != nil {
		s.Logger.Error("Unable to exchange authorization code",
			zap.Error(err),
		)
		http.Redirect(w, r, s.failureURL(), http.StatusFound)
		return
	}

	logger := s.Logger.With(zap.String("UserID", session.User.ID))

	s.setSessionCookies(w, session.AccessToken, session.RefreshToken, session.ExpiresIn)
	user := session.User
	s.Listeners.Notify(r.Context(), EventSignedIn, &user)
	logger.Info("User signed in")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := successPage.Execute(w, successData{Email: user.Email, Origin: s.Origin}); err != nil {
		logger.Error("Cannot render callback page", zap.Error(err))
	}
}

// sameOrigin accepts only JSON posts coming from the site itself
func (s *Service) sameOrigin(r *http.Request) *resp.Error {
	if r.Header.Get("Sec-Fetch-Site") == "cross-site" {
		return resp.ErrForbidden().AddMessages("Cross-site request")
	}
	if origin := r.Header.Get("Origin"); origin != "" && !s.isOrigin(origin) {
		return resp.ErrForbidden().AddMessages("Cross-site request")
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return resp.ErrUnsupportedMediaType().AddMessages("Expected application/json")
	}
	return nil
}

func (s *Service) isOrigin(origin string) bool {
	got, err := url.Parse(origin)
	if err != nil {
		return false
	}
	want, err := url.Parse(s.Origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(got.Scheme, want.Scheme) && strings.EqualFold(got.Host, want.Host)
}

func (s *Service) callbackFragment(w http.ResponseWriter, r *http.Request) {
	if e := s.sameOrigin(r); e != nil {
		s.Logger.Warn("Rejected sign in fragment",
			zap.String("origin", r.Header.Get("Origin")),
			zap.String("contentType", r.Header.Get("Content-Type")),
		)
		resp.WriteError(w, r, e)
		return
	}

	var req FragmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	fragment, err := ParseFragment(req.Fragment)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	claims, err := s.Auth.VerifyToken(fragment.AccessToken)
	if err != nil {
		s.Logger.Error("Cannot verify JWT token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}
	if claims == nil {
		resp.WriteError(w, r, resp.ErrUnauthorized().AddMessages("Invalid access token"))
		return
	}

	expiresIn, err := strconv.Atoi(fragment.ExpiresIn)
	if err != nil {
		expiresIn = defaultAccessLife
	}
	s.setSessionCookies(w, fragment.AccessToken, fragment.RefreshToken, expiresIn)
	s.Listeners.Notify(r.Context(), EventSignedIn, &User{
		ID:    claims.UserID(),
		Email: claims.Email,
	})

	resp.WriteResponse(w, r, fragment)
}

func (s *Service) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := tokenFromRequest(r)

	var user *User
	if token != "" {
		if claims, _ := s.Auth.VerifyToken(token); claims != nil {
			user = &User{
				ID:    claims.UserID(),
				Email: claims.Email,
			}
		}
		// the local session is cleared even when revocation fails
		if err := s.Identity.Logout(r.Context(), token); err != nil {
			s.Logger.Warn("Unable to revoke session at identity provider",
				zap.Error(err),
			)
		}
	}

	s.clearCookie(w, AccessTokenCookie)
	s.clearCookie(w, RefreshTokenCookie)
	s.Listeners.Notify(r.Context(), EventSignedOut, user)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) setSessionCookies(w http.ResponseWriter, accessToken, refreshToken string, expiresIn int) {
	if expiresIn <= 0 {
		expiresIn = defaultAccessLife
	}
	s.setCookie(w, AccessTokenCookie, accessToken, expiresIn)
	if refreshToken != "" {
		s.setCookie(w, RefreshTokenCookie, refreshToken, refreshMaxAge)
	}
}

func (s *Service) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// Routes registers the sign in endpoints on r
func (s *Service) Routes(r chi.Router) {
	r.Get("/auth/login", s.login)
	r.Get("/auth/callback", s.callback)
	r.Post("/auth/callback", s.callbackFragment)
	r.Post("/auth/logout", s.logout)

	// older desktop builds open /callback directly
	r.Get("/callback", s.callback)
	r.Post("/callback", s.callbackFragment)
}
