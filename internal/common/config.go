package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	LogLevel    string
	Database    DatabaseConfig
	Server      ServerConfig
	Structuring StructuringConfig
	OCR         OCRConfig
	MasterData  MasterDataConfig
	Queue       QueueConfig
	Ingest      IngestConfig
}

// DatabaseConfig holds result-store configuration. Driver is "postgres" or
// "sqlite"; an empty DSN disables persistence.
type DatabaseConfig struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string // health service
	UploadDir      string
	MaxUploadBytes int64
}

// StructuringConfig tunes the layout stages.
type StructuringConfig struct {
	HeaderRatio     float64
	FooterRatio     float64
	ContextWindowPx int
	AnchorExcess    int
	Languages       []string
}

// OCRConfig holds recognition engine configuration
type OCRConfig struct {
	TessdataDir string
	Languages   []string
	DPI         int
	MaxPages    int
}

// MasterDataConfig points at the alias files.
type MasterDataConfig struct {
	VendorsPath string
	SKUsPath    string
	UOMsPath    string
}

// QueueConfig sizes the background worker queue.
type QueueConfig struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
}

// IngestConfig controls the directory watcher of the daemon. No watch
// directories disables it.
type IngestConfig struct {
	WatchDirs   []string
	InitialScan bool
	SkipHidden  bool
	Debounce    time.Duration
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present; real environment
// variables win over it.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":9090"),
			UploadDir:      getEnv("UPLOAD_DIR", "./tmp/uploads"),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 20<<20)),
		},
		Structuring: StructuringConfig{
			HeaderRatio:     getEnvAsFloat64("HEADER_RATIO", 0.20),
			FooterRatio:     getEnvAsFloat64("FOOTER_RATIO", 0.15),
			ContextWindowPx: getEnvAsInt("ANCHOR_CONTEXT_PX", 300),
			AnchorExcess:    getEnvAsInt("ANCHOR_EXCESS", 3),
			Languages:       getEnvAsList("LANGUAGES", []string{"eng"}),
		},
		OCR: OCRConfig{
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			Languages:   getEnvAsList("OCR_LANGUAGES", []string{"eng"}),
			DPI:         getEnvAsInt("OCR_DPI", 300),
			MaxPages:    getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		MasterData: MasterDataConfig{
			VendorsPath: getEnv("MASTERDATA_VENDORS", ""),
			SKUsPath:    getEnv("MASTERDATA_SKUS", ""),
			UOMsPath:    getEnv("MASTERDATA_UOMS", ""),
		},
		Queue: QueueConfig{
			Workers:        getEnvAsInt("QUEUE_WORKERS", 4),
			Size:           getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", 2*time.Minute),
		},
		Ingest: IngestConfig{
			WatchDirs:   getEnvAsList("WATCH_DIRS", nil),
			InitialScan: getEnvAsBool("WATCH_INITIAL_SCAN", true),
			SkipHidden:  getEnvAsBool("WATCH_SKIP_HIDDEN", true),
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma or plus separated list ("eng,hin" or "eng+hin").
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	s := c.Structuring
	if s.HeaderRatio < 0 || s.FooterRatio < 0 || s.HeaderRatio+s.FooterRatio > 1 {
		return NewAppError("CONFIG_ERROR", "HEADER_RATIO and FOOTER_RATIO must be non-negative and sum to at most 1", ErrInvalidInput)
	}
	if s.ContextWindowPx < 0 {
		return NewAppError("CONFIG_ERROR", "ANCHOR_CONTEXT_PX must be non-negative", ErrInvalidInput)
	}
	if c.Queue.Workers <= 0 || c.Queue.Size <= 0 {
		return NewAppError("CONFIG_ERROR", "QUEUE_WORKERS and QUEUE_SIZE must be positive", ErrInvalidInput)
	}
	return nil
}
