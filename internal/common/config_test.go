package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/photos")
	cfg := LoadConfig()

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 1600, cfg.Media.MaxDimension)
	assert.Equal(t, 0.8, cfg.Media.JPEGQuality)
	assert.Equal(t, 0.9, cfg.Media.HeicQuality)
	assert.Equal(t, 1280, cfg.Media.ThumbMaxSide)
	assert.Equal(t, int64(10*1024), cfg.Media.MinFileSize)
	assert.Equal(t, int64(64_000_000), cfg.Media.MaxPixels)
	assert.Equal(t, 30*time.Second, cfg.Storage.UploadTimeout)
	assert.Empty(t, cfg.Ingest.DropDirs)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("MAX_DIMENSION", "2048")
	t.Setenv("JPEG_QUALITY", "0.65")
	t.Setenv("UPLOAD_TIMEOUT", "5s")
	t.Setenv("DROP_DIRS", " /a , /b,,")
	t.Setenv("MIN_FILE_SIZE", "not-a-number")
	t.Setenv("MAX_PIXELS", "12000000")

	cfg := LoadConfig()
	assert.Equal(t, 2048, cfg.Media.MaxDimension)
	assert.Equal(t, 0.65, cfg.Media.JPEGQuality)
	assert.Equal(t, 5*time.Second, cfg.Storage.UploadTimeout)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Ingest.DropDirs)
	assert.Equal(t, int64(12_000_000), cfg.Media.MaxPixels)
	assert.Equal(t, int64(10*1024), cfg.Media.MinFileSize)
	require.NoError(t, cfg.Validate())
}

func TestConfig_ValidateCollectsErrors(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("HEIC_CONVERTER", "ffmpeg")
	t.Setenv("JPEG_QUALITY", "1.5")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("MAX_PIXELS", "-1")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
	for _, field := range []string{"DB_URL", "HEIC_CONVERTER", "JPEG_QUALITY", "STORAGE_BACKEND", "MAX_PIXELS"} {
		assert.Contains(t, appErr.Message, field)
	}
}
