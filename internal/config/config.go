package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	defaultEnv             = EnvLocal
	defaultDBDriver        = DriverSQLite
	defaultDBDSN           = "data/kiosk.db"
	defaultHTTPAddress     = "0.0.0.0:5000"
	defaultRemoteTimeout   = 10 * time.Second
	defaultMaxRetries      = 3
	defaultBulkDelay       = 500 * time.Millisecond
	defaultSyncInterval    = 30 * time.Second
	defaultSyncBatchSize   = 100
	defaultStreamPort      = 81
	defaultCapturePath     = "/capture"
	defaultCaptureTimeout  = 2 * time.Second
	defaultProbeTimeout    = time.Second
	defaultReconnect       = 100 * time.Millisecond
	defaultStreamStall     = 5 * time.Second
	defaultTolerance       = 0.5
	defaultEncodingsDir    = "encodings"
	defaultFacesDir        = "known_faces"
	defaultRecognitionTime = 5 * time.Second
	defaultScanTimeout     = 30 * time.Second
	defaultLoanPeriod      = 7 * 24 * time.Hour
)

type Config struct {
	Env      string
	DB       DB
	HTTP     HTTP
	Remote   Remote
	Sync     Sync
	Device   Device
	Identity Identity
	Kiosk    Kiosk
	Webhook  Webhook
}

type DB struct {
	Driver string `mapstructure:"db_driver"`
	DSN    string `mapstructure:"db_dsn"`
}

type HTTP struct {
	Address      string        `mapstructure:"http_address"`
	ReadTimeout  time.Duration `mapstructure:"http_read_timeout"`
	WriteTimeout time.Duration `mapstructure:"http_write_timeout"`
}

// Remote describes the catalog service the outbox is drained to.
type Remote struct {
	BaseURL    string        `mapstructure:"remote_base_url"`
	APIKey     string        `mapstructure:"remote_api_key"`
	Timeout    time.Duration `mapstructure:"remote_timeout"`
	MaxRetries int           `mapstructure:"remote_max_retries"`
	BulkDelay  time.Duration `mapstructure:"remote_bulk_delay"`
}

type Sync struct {
	Enabled   bool          `mapstructure:"sync_enabled"`
	Interval  time.Duration `mapstructure:"sync_interval"`
	BatchSize int           `mapstructure:"sync_batch_size"`
}

// Device holds the ESP32-CAM endpoints.
type Device struct {
	IP               string        `mapstructure:"esp32_ip"`
	StreamPort       int           `mapstructure:"esp32_stream_port"`
	CapturePath      string        `mapstructure:"esp32_capture_path"`
	CaptureTimeout   time.Duration `mapstructure:"esp32_capture_timeout"`
	ProbeTimeout     time.Duration `mapstructure:"esp32_probe_timeout"`
	ReconnectBackoff time.Duration `mapstructure:"esp32_reconnect_backoff"`
	StreamStall      time.Duration `mapstructure:"esp32_stream_stall_timeout"`
}

type Identity struct {
	Tolerance    float64 `mapstructure:"face_tolerance"`
	EncodingsDir string  `mapstructure:"face_encodings_dir"`
	FacesDir     string  `mapstructure:"face_images_dir"`
	DetectorURL  string  `mapstructure:"face_detector_url"`
}

type Kiosk struct {
	RecognitionTimeout time.Duration `mapstructure:"recognition_timeout"`
	ScanTimeout        time.Duration `mapstructure:"scan_timeout"`
	LoanPeriod         time.Duration `mapstructure:"loan_period"`
}

// Webhook carries the inbound API key. APIKeyHash is a bcrypt hash and wins over APIKey.
type Webhook struct {
	APIKey     string `mapstructure:"webhook_api_key"`
	APIKeyHash string `mapstructure:"webhook_api_key_hash"`
}

// SQLitePath strips the file: scheme and query options from a sqlite DSN.
func (d DB) SQLitePath() string {
	path := strings.TrimPrefix(d.DSN, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// StreamURL returns the MJPEG endpoint of the camera.
func (d Device) StreamURL() string {
	if d.IP == "" {
		return ""
	}
	return fmt.Sprintf("http://%s:%d/stream", d.IP, d.StreamPort)
}

// CaptureURL returns the single-shot JPEG endpoint of the camera.
func (d Device) CaptureURL() string {
	if d.IP == "" {
		return ""
	}
	return fmt.Sprintf("http://%s%s", d.IP, d.CapturePath)
}

func setDefaults() {
	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("DB_DRIVER", defaultDBDriver)
	viper.SetDefault("DB_DSN", defaultDBDSN)
	viper.SetDefault("HTTP_ADDRESS", defaultHTTPAddress)
	viper.SetDefault("HTTP_READ_TIMEOUT", 15*time.Second)
	viper.SetDefault("HTTP_WRITE_TIMEOUT", 0)
	viper.SetDefault("REMOTE_BASE_URL", "")
	viper.SetDefault("REMOTE_API_KEY", "")
	viper.SetDefault("REMOTE_TIMEOUT", defaultRemoteTimeout)
	viper.SetDefault("REMOTE_MAX_RETRIES", defaultMaxRetries)
	viper.SetDefault("REMOTE_BULK_DELAY", defaultBulkDelay)
	viper.SetDefault("SYNC_ENABLED", true)
	viper.SetDefault("SYNC_INTERVAL", defaultSyncInterval)
	viper.SetDefault("SYNC_BATCH_SIZE", defaultSyncBatchSize)
	viper.SetDefault("ESP32_IP", "")
	viper.SetDefault("ESP32_STREAM_PORT", defaultStreamPort)
	viper.SetDefault("ESP32_CAPTURE_PATH", defaultCapturePath)
	viper.SetDefault("ESP32_CAPTURE_TIMEOUT", defaultCaptureTimeout)
	viper.SetDefault("ESP32_PROBE_TIMEOUT", defaultProbeTimeout)
	viper.SetDefault("ESP32_RECONNECT_BACKOFF", defaultReconnect)
	viper.SetDefault("ESP32_STREAM_STALL_TIMEOUT", defaultStreamStall)
	viper.SetDefault("FACE_TOLERANCE", defaultTolerance)
	viper.SetDefault("FACE_ENCODINGS_DIR", defaultEncodingsDir)
	viper.SetDefault("FACE_IMAGES_DIR", defaultFacesDir)
	viper.SetDefault("FACE_DETECTOR_URL", "")
	viper.SetDefault("RECOGNITION_TIMEOUT", defaultRecognitionTime)
	viper.SetDefault("SCAN_TIMEOUT", defaultScanTimeout)
	viper.SetDefault("LOAN_PERIOD", defaultLoanPeriod)
	viper.SetDefault("WEBHOOK_API_KEY", "")
	viper.SetDefault("WEBHOOK_API_KEY_HASH", "")
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	envPath := ".env"
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("load %s: %v", envPath, err)
		}
	}

	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		Env: viper.GetString("APP_ENV"),
		DB: DB{
			Driver: viper.GetString("DB_DRIVER"),
			DSN:    viper.GetString("DB_DSN"),
		},
		HTTP: HTTP{
			Address:      viper.GetString("HTTP_ADDRESS"),
			ReadTimeout:  viper.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("HTTP_WRITE_TIMEOUT"),
		},
		Remote: Remote{
			BaseURL:    viper.GetString("REMOTE_BASE_URL"),
			APIKey:     viper.GetString("REMOTE_API_KEY"),
			Timeout:    viper.GetDuration("REMOTE_TIMEOUT"),
			MaxRetries: viper.GetInt("REMOTE_MAX_RETRIES"),
			BulkDelay:  viper.GetDuration("REMOTE_BULK_DELAY"),
		},
		Sync: Sync{
			Enabled:   viper.GetBool("SYNC_ENABLED"),
			Interval:  viper.GetDuration("SYNC_INTERVAL"),
			BatchSize: viper.GetInt("SYNC_BATCH_SIZE"),
		},
		Device: Device{
			IP:               viper.GetString("ESP32_IP"),
			StreamPort:       viper.GetInt("ESP32_STREAM_PORT"),
			CapturePath:      viper.GetString("ESP32_CAPTURE_PATH"),
			CaptureTimeout:   viper.GetDuration("ESP32_CAPTURE_TIMEOUT"),
			ProbeTimeout:     viper.GetDuration("ESP32_PROBE_TIMEOUT"),
			ReconnectBackoff: viper.GetDuration("ESP32_RECONNECT_BACKOFF"),
			StreamStall:      viper.GetDuration("ESP32_STREAM_STALL_TIMEOUT"),
		},
		Identity: Identity{
			Tolerance:    viper.GetFloat64("FACE_TOLERANCE"),
			EncodingsDir: viper.GetString("FACE_ENCODINGS_DIR"),
			FacesDir:     viper.GetString("FACE_IMAGES_DIR"),
			DetectorURL:  viper.GetString("FACE_DETECTOR_URL"),
		},
		Kiosk: Kiosk{
			RecognitionTimeout: viper.GetDuration("RECOGNITION_TIMEOUT"),
			ScanTimeout:        viper.GetDuration("SCAN_TIMEOUT"),
			LoanPeriod:         viper.GetDuration("LOAN_PERIOD"),
		},
		Webhook: Webhook{
			APIKey:     viper.GetString("WEBHOOK_API_KEY"),
			APIKeyHash: viper.GetString("WEBHOOK_API_KEY_HASH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// MustLoad is Load that panics on an invalid configuration.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown APP_ENV %q", c.Env)
	}
	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("DB_DSN must not be empty")
	}
	if c.Remote.MaxRetries < 1 {
		return errors.New("REMOTE_MAX_RETRIES must be at least 1")
	}
	if c.Identity.Tolerance <= 0 || c.Identity.Tolerance > 1 {
		return fmt.Errorf("FACE_TOLERANCE must be in (0, 1], got %v", c.Identity.Tolerance)
	}
	if c.Kiosk.RecognitionTimeout <= 0 || c.Kiosk.ScanTimeout <= 0 {
		return errors.New("recognition and scan timeouts must be positive")
	}
	if c.Kiosk.LoanPeriod <= 0 {
		return errors.New("LOAN_PERIOD must be positive")
	}
	return nil
}

// IsProd reports whether the kiosk runs in production.
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
