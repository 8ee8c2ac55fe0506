package common

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBFile          string
	AnalyticsDBFile string
	Port            string
	SessionSecret   string
	LogLevel        string
	AdminEmail      string // sender used when the site config leaves ReviewFrom blank
	OncePerDay      bool
	SMTP            SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// LoadConfig reads .env when present and then the process environment.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		DBFile:          getenv("sqlite_db", ""),
		AnalyticsDBFile: getenv("analytics_db", ""),
		Port:            getenv("PORT", "8080"),
		SessionSecret:   getenv("SESSION_SECRET", ""),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		AdminEmail:      getenv("ADMIN_EMAIL", ""),
		OncePerDay:      getbool("REVIEW_ONCE_PER_DAY", false),
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", "localhost"),
			Port:     getenv("SMTP_PORT", "25"),
			User:     getenv("SMTP_USER", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", ""),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
