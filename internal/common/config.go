package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Media    MediaConfig
	Storage  StorageConfig
	Ingest   IngestConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string // "pgx" | "sqlite"
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// MediaConfig holds the image pipeline knobs.
type MediaConfig struct {
	HeicConverter    string
	HeicQuality      float64
	ArtifactCacheDir string
	MaxDimension     int
	MaxPixels        int64 // width*height cap, checked on the header before decoding
	JPEGQuality      float64
	ThumbMaxSide     int
	ThumbQuality     float64
	// MinFileSize is a heuristic for "picker reported the file before its bytes landed".
	MinFileSize int64
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Backend       string // "fs" | "jetstream"
	Dir           string
	NATSURL       string
	Bucket        string
	UploadTimeout time.Duration
}

// IngestConfig holds drop-folder and queue configuration
type IngestConfig struct {
	DropDirs       []string
	Debounce       time.Duration
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "pgx"),
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		Media: MediaConfig{
			HeicConverter:    getEnv("HEIC_CONVERTER", "magick"),
			HeicQuality:      getEnvAsFloat64("HEIC_QUALITY", 0.9),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", ""),
			MaxDimension:     getEnvAsInt("MAX_DIMENSION", 1600),
			MaxPixels:        getEnvAsInt64("MAX_PIXELS", 64_000_000),
			JPEGQuality:      getEnvAsFloat64("JPEG_QUALITY", 0.8),
			ThumbMaxSide:     getEnvAsInt("THUMB_MAX_SIDE", 1280),
			ThumbQuality:     getEnvAsFloat64("THUMB_QUALITY", 0.8),
			MinFileSize:      getEnvAsInt64("MIN_FILE_SIZE", 10*1024),
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", "fs"),
			Dir:           getEnv("STORAGE_DIR", "./uploads"),
			NATSURL:       getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			Bucket:        getEnv("NATS_BUCKET", "photos"),
			UploadTimeout: getEnvAsDuration("UPLOAD_TIMEOUT", 30*time.Second),
		},
		Ingest: IngestConfig{
			DropDirs:       getEnvAsList("DROP_DIRS"),
			Debounce:       getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 64),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 5*time.Minute),
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("DB_DRIVER", c.Database.Driver, OneOf("pgx", "sqlite")).
		Field("GRPC_ADDR", c.Server.GRPCAddr, Required).
		Field("HEIC_CONVERTER", c.Media.HeicConverter, OneOf("heif-convert", "magick", "sips")).
		Field("HEIC_QUALITY", c.Media.HeicQuality, UnitInterval).
		Field("JPEG_QUALITY", c.Media.JPEGQuality, UnitInterval).
		Field("THUMB_QUALITY", c.Media.ThumbQuality, UnitInterval).
		Field("MAX_DIMENSION", c.Media.MaxDimension, Positive).
		Field("MAX_PIXELS", c.Media.MaxPixels, Positive).
		Field("THUMB_MAX_SIDE", c.Media.ThumbMaxSide, Positive).
		Field("STORAGE_BACKEND", c.Storage.Backend, OneOf("fs", "jetstream"))
	if c.Database.Driver == "pgx" {
		v.Field("DB_URL", c.Database.DSN, Required)
	}
	if c.Storage.Backend == "fs" {
		v.Field("STORAGE_DIR", c.Storage.Dir, Required)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
