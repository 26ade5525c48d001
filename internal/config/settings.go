package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Settings is everything the server needs, resolved once at startup.
//
// Only the auth service endpoint and anon key are required to start. The
// remaining secrets are optional here: when one is missing, the operations
// that need it fail per request with a configuration error instead.
type Settings struct {
	Port        int
	DBPath      string // SQLite file used when DatabaseURL is empty
	DatabaseURL string // managed Postgres connection string
	AutoMigrate bool

	SupabaseURL    string
	AnonKey        string
	ServiceRoleKey string
	JWTSecret      string // enables local access-token verification

	ResendAPIKey string
	ResendFrom   string

	NotificationAPIKey string
	CronSecret         string
	CookieSecret       string
	SiteURL            string

	LogLevel  slog.Level
	LogFormat string
}

// Load resolves Settings from r.
func Load(r *Reader) (Settings, error) {
	var s Settings
	var err error

	if s.Port, err = r.Int("PORT", 8080); err != nil {
		return s, err
	}
	s.DBPath = r.Lookup("DB_PATH")
	if s.DBPath == "" {
		s.DBPath = "data/mood.db"
	}
	s.DatabaseURL = r.Lookup("DATABASE_URL")
	s.AutoMigrate = r.Bool("DB_AUTO_MIGRATE")

	if s.SupabaseURL, err = r.Secret("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"); err != nil {
		return s, err
	}
	if s.AnonKey, err = r.Secret("SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"); err != nil {
		return s, err
	}
	s.ServiceRoleKey = r.Lookup("SUPABASE_SERVICE_ROLE_KEY")
	s.JWTSecret = r.Lookup("SUPABASE_JWT_SECRET")

	s.ResendAPIKey = r.Lookup("RESEND_API_KEY")
	s.ResendFrom = r.Lookup("RESEND_FROM_EMAIL")

	s.NotificationAPIKey = r.Lookup("NOTIFICATION_API_KEY")
	s.CronSecret = r.Lookup("CRON_SECRET")
	s.CookieSecret = r.Lookup("COOKIE_SECRET")
	s.SiteURL = strings.TrimRight(r.Lookup("SITE_URL"), "/")

	if raw := r.Lookup("LOG_LEVEL"); raw != "" {
		if err := s.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return s, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", raw, err)
		}
	}
	s.LogFormat = strings.ToLower(r.Lookup("LOG_FORMAT"))

	return s, nil
}
