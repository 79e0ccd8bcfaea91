package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment is the type for defining the running environment
type Environment string

// define constants
const (
	EnvDevelopment Environment = "Dev"
	EnvProduction  Environment = "Prod"
)

// Config holds everything the api binary needs to wire its services
type Config struct {
	Environment Environment
	ListenAddr  string

	StripeSecretKey     string
	StripeWebhookSecret string

	DatabaseURL       string
	SupabaseURL       string
	SupabaseKey       string
	SupabaseJWTSecret string

	GitHubOwner string
	GitHubRepo  string
	GitHubToken string

	// Origin is the public URL of the landing site, used for redirects
	Origin string

	CheckoutRedirect       bool
	RequireAuthForCheckout bool

	CORSAllowedOrigins []string
	StaticDir          string
	SentryDSN          string
}

// FromEnv reads the process environment into a Config. Call Validate before use.
func FromEnv(env Environment) *Config {
	return &Config{
		Environment: env,
		ListenAddr:  getEnv("LISTEN_ADDR", ":4242"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SupabaseURL:       strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey:       os.Getenv("SUPABASE_KEY"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),

		GitHubOwner: os.Getenv("GITHUB_OWNER"),
		GitHubRepo:  os.Getenv("GITHUB_REPO"),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),

		Origin: strings.TrimRight(os.Getenv("ORIGIN"), "/"),

		CheckoutRedirect:       getEnvBool("CHECKOUT_REDIRECT", false),
		RequireAuthForCheckout: getEnvBool("REQUIRE_AUTH_FOR_CHECKOUT", false),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		StaticDir:          os.Getenv("STATIC_DIR"),
		SentryDSN:          os.Getenv("SENTRY_DSN"),
	}
}

// Validate returns an error naming the first required key that is missing.
// The release host keys are optional: downloads report a configuration error instead.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil Config is invalid")
	}
	required := []struct {
		key   string
		value string
	}{
		{"STRIPE_SECRET_KEY", c.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret},
		{"DATABASE_URL", c.DatabaseURL},
		{"SUPABASE_URL", c.SupabaseURL},
		{"SUPABASE_KEY", c.SupabaseKey},
		{"SUPABASE_JWT_SECRET", c.SupabaseJWTSecret},
		{"ORIGIN", c.Origin},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required configuration %s", r.key)
		}
	}
	return nil
}

// HasGitHub reports whether the release host is fully configured
func (c *Config) HasGitHub() bool {
	return c.GitHubOwner != "" && c.GitHubRepo != "" && c.GitHubToken != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}
