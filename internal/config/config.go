package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// DefaultFrontendURL はFRONTEND_URL未設定時のリダイレクト先。
const DefaultFrontendURL = "https://aiclub-uj.com"

// ストレージバックエンドの種別。
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string
	DBMaxOpenConns int

	// Token
	JWTSecret string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Password
	BcryptCost int

	// Server
	ServerAddress string
	FrontendURL   string

	// CORS
	CORSAllowedOrigins []string

	// Storage
	StorageBackend    string
	UploadDir         string
	UploadMaxBytes    int64
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string

	// Signup
	PhoneDefaultRegion string

	// Logging
	LogLevel string

	// Worker
	RankSchedule         string
	CleanupSchedule      string
	ContactRetentionDays int
}

// LoadDotEnv は指定パスの.envファイルを環境変数へ読み込む。
// ファイルが存在しない場合は何もしない。既に設定済みの環境変数は上書きしない。
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = databaseURLFromEnv()
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URI")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URI")
	}

	cfg.StorageBackend = strings.ToLower(getEnvString("STORAGE_BACKEND", StorageLocal))
	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	if cfg.StorageBackend == StorageS3 && cfg.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if cfg.StorageBackend != StorageLocal && cfg.StorageBackend != StorageS3 {
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND: %q", cfg.StorageBackend)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 5)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", bcrypt.DefaultCost)
	cfg.ServerAddress = getEnvString("SERVER_ADDRESS", "0.0.0.0:8000")
	cfg.FrontendURL = strings.TrimRight(getEnvString("FRONTEND_URL", DefaultFrontendURL), "/")
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"})
	cfg.UploadDir = getEnvString("UPLOAD_DIR", "uploads")
	cfg.UploadMaxBytes = getEnvInt64("UPLOAD_MAX_BYTES", 10<<20)
	cfg.S3Region = getEnvString("S3_REGION", "us-east-1")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	cfg.S3PublicURL = strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/")
	cfg.PhoneDefaultRegion = strings.ToUpper(getEnvString("PHONE_DEFAULT_REGION", "ZA"))
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.RankSchedule = getEnvString("RANK_SCHEDULE", "@every 10m")
	cfg.CleanupSchedule = getEnvString("CLEANUP_SCHEDULE", "@daily")
	cfg.ContactRetentionDays = getEnvInt("CONTACT_RETENTION_DAYS", 365)

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return cfg, nil
}

// databaseURLFromEnv はDATABASE_URLを返す。
// 未設定の場合はPOSTGRES_*から組み立て、POSTGRES_PASSWORDも無ければ空文字を返す。
func databaseURLFromEnv() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:5432/%s?sslmode=disable",
		getEnvString("POSTGRES_USER", "uj_ai_club"),
		password,
		getEnvString("POSTGRES_HOST", "postgres"),
		getEnvString("POSTGRES_DB", "uj_ai_club"),
	)
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
