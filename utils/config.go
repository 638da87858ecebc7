package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config Configuration for the tagframe server, read from a YAML file
// and overridden by TAGFRAME_* environment variables.
type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		Debug       bool     `yaml:"debug"`
		CorsOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Database DatabaseConfig `yaml:"database"`

	Storage struct {
		UploadDir string `yaml:"upload_dir"`
		// LqipSize is the longest edge of the placeholder image in pixels.
		LqipSize int `yaml:"lqip_size"`
		// MaxUploadMB limits a single multipart upload.
		MaxUploadMB int64 `yaml:"max_upload_mb"`
		// MaxPixels limits width*height of images decoded for placeholders.
		MaxPixels int64 `yaml:"max_pixels"`
	} `yaml:"storage"`

	Auth struct {
		JwtSecret string        `yaml:"-"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
		// LoginRatePerMinute limits login attempts per client address.
		LoginRatePerMinute int `yaml:"login_rate_per_minute"`
	} `yaml:"auth"`

	Export ExportConfig `yaml:"export"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or mysql
	Sqlite struct {
		Filename string `yaml:"filename"`
	} `yaml:"sqlite"`
	Mysql struct {
		Dsn string `yaml:"-"`
	} `yaml:"mysql"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

type ExportConfig struct {
	DefaultWidth  int `yaml:"default_width"`
	DefaultHeight int `yaml:"default_height"`
	// PolygonArea is "zero" or "shoelace".
	PolygonArea string `yaml:"polygon_area"`
	BatchSize   int    `yaml:"batch_size"`
}

// DefaultConfig Configuration used when no file is given
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.Port = "8080"
	config.Server.CorsOrigins = []string{"*"}
	config.Database.Driver = "sqlite"
	config.Database.Sqlite.Filename = "tagframe.sqlite"
	config.Database.SlowQueryThreshold = 200 * time.Millisecond
	config.Storage.UploadDir = "uploads"
	config.Storage.LqipSize = 32
	config.Storage.MaxUploadMB = 32
	config.Storage.MaxPixels = 50_000_000
	config.Auth.TokenTTL = 24 * time.Hour
	config.Auth.LoginRatePerMinute = 10
	config.Export.DefaultWidth = 640
	config.Export.DefaultHeight = 480
	config.Export.PolygonArea = "zero"
	config.Export.BatchSize = 100
	return config
}

// NewConfig Create a new config from the YAML file at configPath. An empty
// path yields the defaults. A .env file next to the binary is loaded first
// if present, so secrets can live outside the YAML file.
func NewConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("Cannot load .env file: %s", err)
	}

	if configPath != "" {
		if err := ValidateConfigPath(configPath); err != nil {
			return nil, err
		}
		file, err := os.Open(configPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ValidateConfigPath Make sure the path exists and is a regular file
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a normal file", path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TAGFRAME_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("TAGFRAME_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TAGFRAME_DEBUG: %w", err)
		}
		c.Server.Debug = debug
	}
	if v := os.Getenv("TAGFRAME_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("TAGFRAME_SQLITE_FILENAME"); v != "" {
		c.Database.Sqlite.Filename = v
	}
	if v := os.Getenv("TAGFRAME_MYSQL_DSN"); v != "" {
		c.Database.Mysql.Dsn = v
	}
	if v := os.Getenv("TAGFRAME_UPLOAD_DIR"); v != "" {
		c.Storage.UploadDir = v
	}
	if v := os.Getenv("TAGFRAME_JWT_SECRET"); v != "" {
		c.Auth.JwtSecret = v
	}
	if v := os.Getenv("TAGFRAME_POLYGON_AREA"); v != "" {
		c.Export.PolygonArea = v
	}
	return nil
}

// Validate Check the settings that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.Mysql.Dsn == "" {
			return errors.New("mysql driver selected but TAGFRAME_MYSQL_DSN is empty")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Export.PolygonArea {
	case "zero", "shoelace":
	default:
		return fmt.Errorf("export.polygon_area must be zero or shoelace, got %q", c.Export.PolygonArea)
	}
	if c.Export.DefaultWidth <= 0 || c.Export.DefaultHeight <= 0 {
		return errors.New("export default dimensions must be positive")
	}
	if c.Export.BatchSize <= 0 {
		c.Export.BatchSize = 100
	}
	return nil
}
