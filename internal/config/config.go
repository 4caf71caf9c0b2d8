package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AuthConfig holds token and password-auth settings.
type AuthConfig struct {
	JWTSecret                string
	AccessTTL                time.Duration
	RefreshTTL               time.Duration
	RequireEmailConfirmation bool
	// Login attempts allowed per email within LoginWindow before the
	// account is temporarily rate limited.
	LoginAttempts int
	LoginWindow   time.Duration
}

// OAuthProviderConfig holds a single federated provider's endpoints.
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// ShareConfig holds the settings used to build sharing descriptors.
type ShareConfig struct {
	// PublicBaseURL is the externally reachable base of deep links,
	// e.g. https://locker.example.com
	PublicBaseURL string
	// QREndpoint renders a QR image for the link passed in its data parameter.
	QREndpoint string
	// PresignExpiry bounds the lifetime of signed download URLs.
	PresignExpiry time.Duration
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
	// File enables rotated file output in addition to stdout when non-empty.
	File string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	OAuth    map[string]OAuthProviderConfig
	Share    ShareConfig
	Log      LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Auth: AuthConfig{
			JWTSecret:                getEnv("AUTH_JWT_SECRET", ""),
			AccessTTL:                getEnvDuration("AUTH_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:               getEnvDuration("AUTH_REFRESH_TTL", 7*24*time.Hour),
			RequireEmailConfirmation: getEnvBool("AUTH_REQUIRE_EMAIL_CONFIRMATION", false),
			LoginAttempts:            getEnvInt("AUTH_LOGIN_ATTEMPTS", 5),
			LoginWindow:              getEnvDuration("AUTH_LOGIN_WINDOW", time.Minute),
		},
		OAuth: loadOAuthProviders(),
		Share: ShareConfig{
			PublicBaseURL: getEnv("SHARE_PUBLIC_BASE_URL", "http://localhost:8080"),
			QREndpoint:    getEnv("SHARE_QR_ENDPOINT", "https://api.qrserver.com/v1/create-qr-code/"),
			PresignExpiry: getEnvDuration("SHARE_PRESIGN_EXPIRY", time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}
}

// loadOAuthProviders reads provider blocks of the form OAUTH_<NAME>_CLIENT_ID,
// OAUTH_<NAME>_CLIENT_SECRET and so on. A provider is enabled when its client
// id is set.
func loadOAuthProviders() map[string]OAuthProviderConfig {
	out := make(map[string]OAuthProviderConfig)
	for _, name := range []string{"google", "github"} {
		prefix := "OAUTH_" + strings.ToUpper(name) + "_"
		p := OAuthProviderConfig{
			ClientID:     getEnv(prefix+"CLIENT_ID", ""),
			ClientSecret: getEnv(prefix+"CLIENT_SECRET", ""),
			AuthURL:      getEnv(prefix+"AUTH_URL", ""),
			TokenURL:     getEnv(prefix+"TOKEN_URL", ""),
			UserInfoURL:  getEnv(prefix+"USERINFO_URL", ""),
			RedirectURL:  getEnv(prefix+"REDIRECT_URL", ""),
			Scopes:       []string{"openid", "email", "profile"},
		}
		if p.ClientID != "" {
			out[name] = p
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
