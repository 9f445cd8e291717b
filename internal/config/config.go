package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the security binaries.
type Config struct {
	// GRPCAddress is the gRPC listen address of the server and the dial target of clients.
	GRPCAddress string `yaml:"grpc_addr"`
	// HTTPAddress is the REST listen address; empty disables the HTTP listener.
	HTTPAddress string `yaml:"http_addr"`
	// Timeout is the per-call timeout used by clients.
	Timeout time.Duration `yaml:"timeout"`
	// Log configures the global logger.
	Log LogConfig `yaml:"log"`
	// Store selects and configures the alarm config store.
	Store StoreConfig `yaml:"store"`
	// Publisher selects and configures the config-change broadcaster.
	Publisher PublisherConfig `yaml:"publisher"`
	// Detector configures the person-detection worker.
	Detector DetectorConfig `yaml:"detector"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is console or json.
	Format string `yaml:"format"`
}

// StoreConfig configures where the alarm config is persisted.
type StoreConfig struct {
	// Driver is one of file, sqlite, redis.
	Driver string `yaml:"driver"`
	// Path is the JSON file (file driver) or database file (sqlite driver).
	Path string `yaml:"path"`
	// RedisAddress is the redis endpoint for the redis driver.
	RedisAddress string `yaml:"redis_addr"`
	// RedisKey is the key holding the config for the redis driver.
	RedisKey string `yaml:"redis_key"`
}

// PublisherConfig configures config-change broadcasting.
type PublisherConfig struct {
	// Driver is one of log, redis.
	Driver string `yaml:"driver"`
	// RedisAddress is the redis endpoint for the redis driver.
	RedisAddress string `yaml:"redis_addr"`
	// Channel is the pub/sub channel config changes are published to.
	Channel string `yaml:"channel"`
}

// DetectorConfig configures the external person-detection worker.
type DetectorConfig struct {
	// Interpreter runs the script, e.g. python3.
	Interpreter string `yaml:"interpreter"`
	// Script is the path of the detection script.
	Script string `yaml:"script"`
	// ModelDir holds the model assets passed to the worker.
	ModelDir string `yaml:"model_dir"`
	// ConfidenceThreshold is passed to the worker verbatim.
	ConfidenceThreshold string `yaml:"confidence_threshold"`
	// NMSThreshold is the non-maxima-suppression threshold passed to the worker verbatim.
	NMSThreshold string `yaml:"nms_threshold"`
	// CaptureDir receives the per-attempt input images.
	CaptureDir string `yaml:"capture_dir"`
	// CaptureBaseName prefixes the per-attempt input image names.
	CaptureBaseName string `yaml:"capture_base_name"`
	// OutputDir receives the annotated image written by the worker.
	OutputDir string `yaml:"output_dir"`
	// OutputBaseName is the annotated image name without extension.
	OutputBaseName string `yaml:"output_base_name"`
	// MaxWorkers bounds the number of concurrently running workers.
	MaxWorkers int64 `yaml:"max_workers"`
	// WorkerTimeout kills a worker that runs longer; zero waits indefinitely.
	WorkerTimeout time.Duration `yaml:"worker_timeout"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "security-settings.yaml"

	// DefaultStateFilename is the default filename of the persisted alarm config.
	DefaultStateFilename = "security_config.json"

	// DefaultGRPCAddress is the default gRPC address.
	DefaultGRPCAddress = "127.0.0.1:50051"

	// DefaultTimeout is the default duration for client calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is used when creating artifact directories.
	DefaultDirPermissions = 0o750

	// DefaultChannel is the default pub/sub channel for config changes.
	DefaultChannel = "security-config"

	// DefaultRedisKey is the default key of the redis store.
	DefaultRedisKey = "security:config"
)

// Store drivers.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Publisher drivers.
const (
	PublisherLog   = "log"
	PublisherRedis = "redis"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownStoreDriver is returned for unsupported store drivers.
	errUnknownStoreDriver = errors.New("unknown store driver")
	// errUnknownPublisherDriver is returned for unsupported publisher drivers.
	errUnknownPublisherDriver = errors.New("unknown publisher driver")
	// errRedisAddressRequired is returned when a redis driver has no address.
	errRedisAddressRequired = errors.New("redis address must be provided")
	// errNegativeWorkers is returned when max_workers is negative.
	errNegativeWorkers = errors.New("max_workers must not be negative")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaults for optional fields.
//
//nolint:cyclop // A flat list of defaults reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.GRPCAddress == "" {
		settings.GRPCAddress = DefaultGRPCAddress
	}

	if _, _, err := net.SplitHostPort(settings.GRPCAddress); err != nil {
		return fmt.Errorf("invalid gRPC address: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, _, err := net.SplitHostPort(settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid HTTP address: %w", err)
		}
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if err := validateStore(&settings.Store); err != nil {
		return err
	}

	if err := validatePublisher(&settings.Publisher); err != nil {
		return err
	}

	return validateDetector(&settings.Detector)
}

func validateStore(store *StoreConfig) error {
	if store.Driver == "" {
		store.Driver = StoreFile
	}

	switch store.Driver {
	case StoreFile:
		if store.Path == "" {
			store.Path = DefaultStateFilename
		}
	case StoreSQLite:
		if store.Path == "" {
			store.Path = "security.db"
		}
	case StoreRedis:
		if store.RedisAddress == "" {
			return fmt.Errorf("store: %w", errRedisAddressRequired)
		}

		if store.RedisKey == "" {
			store.RedisKey = DefaultRedisKey
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownStoreDriver, store.Driver)
	}

	return nil
}

func validatePublisher(publisher *PublisherConfig) error {
	if publisher.Driver == "" {
		publisher.Driver = PublisherLog
	}

	if publisher.Channel == "" {
		publisher.Channel = DefaultChannel
	}

	switch publisher.Driver {
	case PublisherLog:
		return nil
	case PublisherRedis:
		if publisher.RedisAddress == "" {
			return fmt.Errorf("publisher: %w", errRedisAddressRequired)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownPublisherDriver, publisher.Driver)
	}
}

func validateDetector(detector *DetectorConfig) error {
	if detector.Interpreter == "" {
		detector.Interpreter = "python3"
	}

	if detector.Script == "" {
		detector.Script = filepath.Join("yolo", "yolo.py")
	}

	if detector.ModelDir == "" {
		detector.ModelDir = filepath.Join("yolo", "yolo-coco")
	}

	if detector.ConfidenceThreshold == "" {
		detector.ConfidenceThreshold = "0.5"
	}

	if detector.NMSThreshold == "" {
		detector.NMSThreshold = "0.3"
	}

	if detector.CaptureDir == "" {
		detector.CaptureDir = "captures"
	}

	if detector.CaptureBaseName == "" {
		detector.CaptureBaseName = "new_capture"
	}

	if detector.OutputDir == "" {
		detector.OutputDir = detector.CaptureDir
	}

	if detector.OutputBaseName == "" {
		detector.OutputBaseName = "new_capture_annotated"
	}

	if detector.MaxWorkers < 0 {
		return errNegativeWorkers
	}

	if detector.MaxWorkers == 0 {
		detector.MaxWorkers = 1
	}

	return nil
}
