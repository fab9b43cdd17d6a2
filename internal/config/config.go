// Package config loads engine, discovery and storage settings from an optional
// YAML file layered under MYCELIUM_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"mycelium/pkg/domain"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StorageDriver identifies a snapshot persistence backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBlob     StorageDriver = "blob"     // JSON objects in a blob store
)

// BlobDriver identifies a blob backend.
type BlobDriver string

const (
	BlobFilesystem BlobDriver = "fs"
	BlobS3         BlobDriver = "s3"
	BlobMemory     BlobDriver = "memory"
)

// Config is the full application configuration.
type Config struct {
	Engine       Engine                   `yaml:"engine"`
	Requirements domain.StageRequirements `yaml:"requirements"`
	Discovery    Discovery                `yaml:"discovery"`
	Wiki         Wiki                     `yaml:"wiki"`
	Translate    Translate                `yaml:"translate"`
	Storage      Storage                  `yaml:"storage"`
	Blob         Blob                     `yaml:"blob"`
	Metrics      Metrics                  `yaml:"metrics"`
}

// Engine tunes the stage controller.
type Engine struct {
	// AutoAdvanceInterval of zero disables the timer.
	AutoAdvanceInterval time.Duration `yaml:"auto_advance_interval"`
	DiscoveryAttempts   int           `yaml:"discovery_attempts"`
}

// Discovery selects what the encyclopedia lookup searches for.
type Discovery struct {
	// Categories maps a wiki language to its category title.
	Categories     map[string]string `yaml:"categories"`
	Languages      []string          `yaml:"languages"`
	TargetLanguage string            `yaml:"target_language"`
	Limit          int               `yaml:"limit"`
	RetryDelay     time.Duration     `yaml:"retry_delay"`
}

// Wiki configures the MediaWiki client.
type Wiki struct {
	// EndpointTemplate receives the language code, e.g. https://%s.wikipedia.org.
	EndpointTemplate string        `yaml:"endpoint_template"`
	Timeout          time.Duration `yaml:"timeout"`
	UserAgent        string        `yaml:"user_agent"`
}

// Translate configures the translation client. An empty APIKey disables translation.
type Translate struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Storage selects the snapshot backend.
type Storage struct {
	Driver      StorageDriver `yaml:"driver"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresDSN string        `yaml:"postgres_dsn"`
}

// Blob configures the blob store used by the blob storage driver.
type Blob struct {
	Driver BlobDriver `yaml:"driver"`
	FSRoot string     `yaml:"fs_root"`
	S3     S3         `yaml:"s3"`
	Prefix string     `yaml:"prefix"`
	// Retain is how many snapshot objects are kept; older ones are pruned.
	Retain int `yaml:"retain"`
}

// S3 holds S3 / MinIO connection settings.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Metrics configures the Prometheus endpoint. Empty Listen disables it.
type Metrics struct {
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: Engine{AutoAdvanceInterval: 5 * time.Second, DiscoveryAttempts: 5},
		Discovery: Discovery{
			Categories: map[string]string{
				"en": "Category:Fungi",
				"ja": "Category:菌類",
			},
			Languages:      []string{"en"},
			TargetLanguage: "ja",
			Limit:          100,
		},
		Wiki: Wiki{
			EndpointTemplate: "https://%s.wikipedia.org",
			Timeout:          10 * time.Second,
			UserAgent:        "mycelium-sim/1.0",
		},
		Translate: Translate{
			Endpoint: "https://translation.googleapis.com/language/translate/v2",
			Timeout:  10 * time.Second,
		},
		Storage: Storage{Driver: StorageSQLite, SQLitePath: "mycelium.db"},
		Blob:    Blob{Driver: BlobFilesystem, FSRoot: "./blobdata", Prefix: "snapshots/", Retain: 10},
	}
}

// Load reads path (when non-empty) over the defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		// #nosec G304 -- operator supplied config path
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Environment variables:
//
//	MYCELIUM_STORAGE_DRIVER: memory|sqlite|postgres|blob (default sqlite)
//	MYCELIUM_SQLITE_PATH: path to sqlite file (default ./mycelium.db)
//	MYCELIUM_POSTGRES_DSN: postgres DSN when driver=postgres
//	MYCELIUM_BLOB_DRIVER: fs|s3|memory (default fs)
//	MYCELIUM_BLOB_FS_ROOT: directory root when blob driver=fs
//	MYCELIUM_BLOB_S3_BUCKET / _REGION / _ENDPOINT / _PATH_STYLE
//	MYCELIUM_TRANSLATE_API_KEY: enables translation enrichment
//	MYCELIUM_AUTO_ADVANCE_INTERVAL: Go duration, 0 disables the timer
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var storage, blobDriver string
	str("MYCELIUM_STORAGE_DRIVER", &storage)
	if storage != "" {
		c.Storage.Driver = StorageDriver(storage)
	}
	str("MYCELIUM_SQLITE_PATH", &c.Storage.SQLitePath)
	str("MYCELIUM_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("MYCELIUM_BLOB_DRIVER", &blobDriver)
	if blobDriver != "" {
		c.Blob.Driver = BlobDriver(blobDriver)
	}
	str("MYCELIUM_BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("MYCELIUM_BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("MYCELIUM_BLOB_S3_REGION", &c.Blob.S3.Region)
	str("MYCELIUM_BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	if v, ok := lookup("MYCELIUM_BLOB_S3_PATH_STYLE"); ok && v != "" {
		c.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}
	str("MYCELIUM_TRANSLATE_API_KEY", &c.Translate.APIKey)
	if v, ok := lookup("MYCELIUM_AUTO_ADVANCE_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MYCELIUM_AUTO_ADVANCE_INTERVAL: %w", err)
		}
		c.Engine.AutoAdvanceInterval = d
	}
	return nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.AutoAdvanceInterval < 0 {
		errs = append(errs, fmt.Errorf("engine.auto_advance_interval must not be negative"))
	}
	if c.Engine.DiscoveryAttempts < 0 {
		errs = append(errs, fmt.Errorf("engine.discovery_attempts must not be negative"))
	}
	if c.Discovery.Limit <= 0 {
		errs = append(errs, fmt.Errorf("discovery.limit must be positive"))
	}
	if len(c.Discovery.Languages) == 0 {
		errs = append(errs, fmt.Errorf("discovery.languages must not be empty"))
	}
	for _, lang := range c.Discovery.Languages {
		if c.Discovery.Categories[lang] == "" {
			errs = append(errs, fmt.Errorf("discovery.categories has no entry for language %q", lang))
		}
	}
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite, StoragePostgres, StorageBlob:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %s", c.Storage.Driver))
	}
	if c.Storage.Driver == StorageBlob {
		switch c.Blob.Driver {
		case BlobFilesystem, BlobMemory:
		case BlobS3:
			if c.Blob.S3.Bucket == "" {
				errs = append(errs, fmt.Errorf("blob.s3.bucket required for s3 driver"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown blob driver %s", c.Blob.Driver))
		}
	}
	if err := c.Requirements.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StageRequirements returns the built-in gating table with configured overrides applied.
func (c Config) StageRequirements() domain.StageRequirements {
	return domain.DefaultRequirements().Merge(c.Requirements)
}
