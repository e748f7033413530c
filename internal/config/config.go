package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Env     string
	Port    string
	DataDir string
	Origin  string // CORS

	SessionSecret string
	AllowedDomain string
	AdminEmails   []string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	FirebaseProject     string
	FirebaseCredentials string
}

// secretBundle is the JSON blob the Cloud Run deployment mounts as a single
// secret instead of individual env vars.
type secretBundle struct {
	SecretKey          string `json:"SECRET_KEY"`
	GoogleClientID     string `json:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `json:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `json:"GOOGLE_REDIRECT_URI"`
	AllowedEmailDomain string `json:"ALLOWED_EMAIL_DOMAIN"`
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:     env("APP_ENV", "dev"),
		Port:    env("PORT", "8080"),
		DataDir: env("DATA_DIR", "data"),
		Origin:  env("CORS_ORIGIN", "http://localhost:3000"),

		SessionSecret: env("SESSION_SECRET", "dev-secret-key-change-in-production"),
		AllowedDomain: env("ALLOWED_EMAIL_DOMAIN", "cloudphysician.net"),
		AdminEmails:   splitList(env("ADMIN_EMAILS", "sanath.kumar@cloudphysician.net")),

		GoogleClientID:     env("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: env("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  env("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/google/callback"),

		FirebaseProject:     env("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: env("FIREBASE_CREDENTIALS_PATH", "firebase-credentials.json"),
	}

	// The bundled secret wins over individual vars when present.
	if raw := os.Getenv("ISSUE_TRACKER_SECRET_KEY"); raw != "" {
		var b secretBundle
		if err := json.Unmarshal([]byte(raw), &b); err == nil {
			if b.SecretKey != "" {
				cfg.SessionSecret = b.SecretKey
			}
			if b.GoogleClientID != "" {
				cfg.GoogleClientID = b.GoogleClientID
			}
			if b.GoogleClientSecret != "" {
				cfg.GoogleClientSecret = b.GoogleClientSecret
			}
			if b.GoogleRedirectURI != "" {
				cfg.GoogleRedirectURL = b.GoogleRedirectURI
			}
			if b.AllowedEmailDomain != "" {
				cfg.AllowedDomain = b.AllowedEmailDomain
			}
		}
	}

	return cfg
}

// IsAdminEmail reports whether the email is on the admin allowlist.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range c.AdminEmails {
		if a == email {
			return true
		}
	}
	return false
}

// OAuthConfigured reports whether Google login can be offered.
func (c Config) OAuthConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
