package auth

import (
	"context"
	"fmt"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
)

// ContextKey is a defined type to be used in context.Context containing the Claims
type ContextKey string

// Context is key used in context.Context containing the Claims
const Context ContextKey = "authContext"

// Auth verifies access tokens issued by the identity provider
type Auth struct {
	Options
	jwtKey []byte
}

// Claims is the payload of an identity provider access token. Subject is the user id.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserID returns the identity provider user id
func (c *Claims) UserID() string {
	return c.Subject
}

// Options provides initialization parameters for Auth
type Options struct {
	Logger *zap.Logger

	// JWTSigningKey is the HS256 secret of the identity provider project
	JWTSigningKey string
}

func (o *Options) validate() error {
	if o == nil {
		return fmt.Errorf("nil option is invalid")
	}
	if o.Logger == nil {
		return fmt.Errorf("nil Logger is invalid")
	}
	if len(o.JWTSigningKey) < 16 {
		return fmt.Errorf("jwt signing key must be longer than 16 characters")
	}
	return nil
}

// New will return a new instance of Auth for authentication
func New(option Options) (*Auth, error) {
	if err := option.validate(); err != nil {
		return nil, err
	}
	return &Auth{
		Options: option,
		jwtKey:  []byte(option.JWTSigningKey),
	}, nil
}

// WithClaims returns a copy of ctx carrying claims
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, Context, claims)
}

// ClaimsFromContext returns the verified claims of the request, nil for anonymous requests
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(Context).(*Claims)
	return claims
}
