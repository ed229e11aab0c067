// internal/config/config.go
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Google    GoogleConfig
	Gallery   GalleryConfig
	Feed      FeedConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
	LogLevel  string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// GoogleConfig holds the credential triple plus the ids of the Drive folder and order sheet.
type GoogleConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURI     string
	RefreshToken    string
	CredentialsJSON string
	DriveFolderID   string
	SheetID         string
}

type GalleryConfig struct {
	PageSize        int
	Concurrency     int
	CacheTTLSeconds int
}

// FeedConfig configures the caller-side tier that reads the gallery over HTTP.
type FeedConfig struct {
	BaseURL                string
	CacheTTLSeconds        int
	TimeoutSeconds         int
	RefreshIntervalSeconds int
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	SnapshotTTLSeconds int
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = fromViper(viper.GetViper())
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "release")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GOOGLE_REDIRECT_URI", "https://developers.google.com/oauthplayground")
	v.SetDefault("GALLERY_PAGE_SIZE", 100)
	v.SetDefault("GALLERY_CONCURRENCY", 16)
	v.SetDefault("GALLERY_CACHE_TTL_SECONDS", 300)
	v.SetDefault("FEED_BASE_URL", "http://localhost:8080")
	v.SetDefault("FEED_CACHE_TTL_SECONDS", 60)
	v.SetDefault("FEED_TIMEOUT_SECONDS", 10)
	v.SetDefault("FEED_REFRESH_INTERVAL_SECONDS", 120)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_SNAPSHOT_TTL_SECONDS", 86400)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "gallery-feed")
}

func fromViper(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	folderID := v.GetString("GOOGLE_DRIVE_FOLDER_ID")
	if folderID == "" {
		// older deployments spelled the key with a double underscore
		folderID = v.GetString("GOOGLE__DRIVE_FOLDER_ID")
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetStringSlice("SERVER_ALLOWED_ORIGINS")),
		},
		Google: GoogleConfig{
			ClientID:        v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret:    v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURI:     v.GetString("GOOGLE_REDIRECT_URI"),
			RefreshToken:    v.GetString("GOOGLE_REFRESH_TOKEN"),
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			DriveFolderID:   strings.TrimSpace(folderID),
			SheetID:         strings.TrimSpace(v.GetString("GOOGLE_SHEET_ID")),
		},
		Gallery: GalleryConfig{
			PageSize:        v.GetInt("GALLERY_PAGE_SIZE"),
			Concurrency:     v.GetInt("GALLERY_CONCURRENCY"),
			CacheTTLSeconds: v.GetInt("GALLERY_CACHE_TTL_SECONDS"),
		},
		Feed: FeedConfig{
			BaseURL:                strings.TrimRight(v.GetString("FEED_BASE_URL"), "/"),
			CacheTTLSeconds:        v.GetInt("FEED_CACHE_TTL_SECONDS"),
			TimeoutSeconds:         v.GetInt("FEED_TIMEOUT_SECONDS"),
			RefreshIntervalSeconds: v.GetInt("FEED_REFRESH_INTERVAL_SECONDS"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			SnapshotTTLSeconds: v.GetInt("CACHE_SNAPSHOT_TTL_SECONDS"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}
}

// GalleryTTL is the lifetime of the process-wide tier.
func (c *Config) GalleryTTL() time.Duration {
	return seconds(c.Gallery.CacheTTLSeconds, 5*time.Minute)
}

// FeedTTL is the lifetime of the caller-side tier.
func (c *Config) FeedTTL() time.Duration {
	return seconds(c.Feed.CacheTTLSeconds, time.Minute)
}

func (c *Config) FeedTimeout() time.Duration {
	return seconds(c.Feed.TimeoutSeconds, 10*time.Second)
}

func (c *Config) FeedRefreshInterval() time.Duration {
	return seconds(c.Feed.RefreshIntervalSeconds, 2*time.Minute)
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// splitList accepts both repeated values and a single comma separated string.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
