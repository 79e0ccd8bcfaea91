package auth

import (
	"net/http"
	"strings"

	resp "github.com/healthparse/landing/response"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
)

var bearerPrefix = "Bearer "
var jwtSigningMethod = jwt.SigningMethodHS256

// AccessTokenCookie and RefreshTokenCookie hold the session set by the callback
const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"
)

// VerifyToken returns the claims of a valid access token. Invalid tokens yield nil claims and nil error.
func (a *Auth) VerifyToken(token string) (*Claims, error) {
	claims := &Claims{}
	jwtToken, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return a.jwtKey, nil
	})
	if err != nil {
		if err == jwt.ErrSignatureInvalid {
			return nil, nil
		}
		if _, ok := err.(*jwt.ValidationError); ok {
			return nil, nil
		}
		return nil, err
	}
	if jwtToken.Method != jwtSigningMethod {
		return nil, nil
	}
	if !jwtToken.Valid {
		return nil, nil
	}
	// the anon key is a valid token too, but it has no user
	if claims.Subject == "" {
		return nil, nil
	}
	return claims, nil
}

// Middleware returns a http middleware that attaches Claims when the request carries a token.
// Requests without a token pass through anonymously. An invalid Bearer header is rejected,
// a stale session cookie is ignored.
func (a *Auth) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromHeader := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := a.VerifyToken(token)
			if err != nil {
				a.Logger.Error("Cannot verify JWT token",
					zap.Error(err),
				)
				resp.WriteError(w, r, resp.ErrUnexpected())
				return
			}
			if claims == nil {
				if fromHeader {
					resp.WriteError(w, r, resp.ErrNoBearer())
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// ClaimCheck returns a http middlware to authenticated route to ensure that Claims exists in the context
func (a *Auth) ClaimCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ClaimsFromContext(r.Context()) == nil {
				resp.WriteError(w, r, resp.ErrNoBearer())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) (token string, fromHeader bool) {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		if t := strings.TrimSpace(header[len(bearerPrefix):]); t != "" {
			return t, true
		}
	}
	if header != "" {
		// present but not a bearer token
		return header, true
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value, false
	}
	return "", false
}
