// Package config loads server configuration from flags and environment,
// with .env support for local development.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// ReposRoot holds one working tree per repository id; the identity
	// map lives next to them.
	ReposRoot    string
	IdentityPath string

	Bookmark BookmarkConfig
	Archive  ArchiveConfig
	Review   ReviewConfig
}

type BookmarkConfig struct {
	Path   string
	DSN    string
	Secret string
}

type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type ReviewConfig struct {
	FileTimeout  time.Duration
	GeminiAPIKey string
	GroqAPIKey   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	dataDir := flag.String("data", defaultDataDir(), "data directory for working trees and stores")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	data := firstNonEmpty(strings.TrimSpace(os.Getenv("REPOLENS_DATA_DIR")), *dataDir)

	return &Config{
		Port:         *port,
		Env:          env,
		ReposRoot:    filepath.Join(data, "repos"),
		IdentityPath: filepath.Join(data, "repos", "identity.json"),
		Bookmark: BookmarkConfig{
			Path:   filepath.Join(data, "bookmarks.db"),
			DSN:    strings.TrimSpace(os.Getenv("REPOLENS_PG_DSN")),
			Secret: firstNonEmpty(strings.TrimSpace(os.Getenv("REPOLENS_BOOKMARK_SECRET")), "repolens-dev-secret"),
		},
		Archive: loadArchiveConfig(env),
		Review: ReviewConfig{
			FileTimeout:  resolveFileTimeout(),
			GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			GroqAPIKey:   strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		},
	}, nil
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".repolens")
	}
	return ".repolens"
}

func loadArchiveConfig(env string) ArchiveConfig {
	endpoint := resolveArchiveEndpoint(env)
	return ArchiveConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_BUCKET")), "repolens-reports"),
		UseSSL:    resolveArchiveUseSSL(env),
	}
}

func resolveArchiveEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("REPORT_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("REPORT_S3_ENDPOINT"))
}

func resolveArchiveUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("REPORT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func resolveFileTimeout() time.Duration {
	raw := strings.TrimSpace(os.Getenv("REPOLENS_FILE_TIMEOUT"))
	if raw == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
