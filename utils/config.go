package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nci/tstack/raster"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v2"
)

const DefaultDateFormat = "%Y%j"

// DatasetConfig describes the image stack of one dataset. The geometry
// fields are optional; when all of them are set the stack does not have to
// be inspected through GDAL, which is what a raw BIP deployment needs.
type DatasetConfig struct {
	InputFile     string `json:"input_file" yaml:"input_file"`
	DateFormat    string `json:"date_format" yaml:"date_format"`
	ImageIDColumn string `json:"image_id_column" yaml:"image_id_column"`
	CacheLineDir  string `json:"cache_line_dir" yaml:"cache_line_dir"`
	UseBIPReader  bool   `json:"use_bip_reader" yaml:"use_bip_reader"`
	NRows         int    `json:"n_rows" yaml:"n_rows"`
	NCols         int    `json:"n_cols" yaml:"n_cols"`
	NBands        int    `json:"n_bands" yaml:"n_bands"`
	DataType      string `json:"data_type" yaml:"data_type"`
}

// CacheConfig selects the row cache backend and its default policy.
type CacheConfig struct {
	Backend         string `json:"backend" yaml:"backend"`
	MemcacheAddress string `json:"memcache_address" yaml:"memcache_address"`
	PostgresDSN     string `json:"postgres_dsn" yaml:"postgres_dsn"`
	Read            bool   `json:"read" yaml:"read"`
	Write           bool   `json:"write" yaml:"write"`
	Validate        bool   `json:"validate" yaml:"validate"`
}

type MetricsConfig struct {
	LogDir         string `json:"log_dir" yaml:"log_dir"`
	MaxLogFileSize int64  `json:"max_log_file_size" yaml:"max_log_file_size"`
	MaxLogFiles    int    `json:"max_log_files" yaml:"max_log_files"`
	Verbose        bool   `json:"verbose" yaml:"verbose"`
}

// Config is the already parsed configuration of one processing run.
type Config struct {
	Dataset DatasetConfig `json:"dataset" yaml:"dataset"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

const (
	CacheBackendDisk     = "disk"
	CacheBackendMemcache = "memcache"
	CacheBackendPostgres = "postgres"
	CacheBackendNone     = "none"
)

// LoadConfigFile parses a YAML (.yaml, .yml) or JSON-with-comments config
// file. Relative paths in the dataset section are resolved against the
// directory of the config file.
func LoadConfigFile(configFile string) (*Config, error) {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("Error while reading config file: %s. Error: %v", configFile, err)
	}

	config := &Config{}
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, config); err != nil {
			return nil, fmt.Errorf("Error at YAML parsing config document: %s. Error: %v", configFile, err)
		}
	default:
		std, err := hujson.Standardize(raw)
		if err != nil {
			return nil, fmt.Errorf("Error at JSON parsing config document: %s. Error: %v", configFile, err)
		}
		if err := json.Unmarshal(std, config); err != nil {
			return nil, fmt.Errorf("Error at JSON parsing config document: %s. Error: %v", configFile, err)
		}
	}

	baseDir := filepath.Dir(configFile)
	config.Dataset.InputFile = resolvePath(baseDir, config.Dataset.InputFile)
	config.Dataset.CacheLineDir = resolvePath(baseDir, config.Dataset.CacheLineDir)

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid config document: %s. Error: %v", configFile, err)
	}
	return config, nil
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func (config *Config) ApplyDefaults() {
	if config.Dataset.DateFormat == "" {
		config.Dataset.DateFormat = DefaultDateFormat
	}
	if config.Cache.Backend == "" {
		if config.Dataset.CacheLineDir != "" {
			config.Cache.Backend = CacheBackendDisk
		} else {
			config.Cache.Backend = CacheBackendNone
		}
	}
}

func (config *Config) Validate() error {
	ds := config.Dataset
	if ds.NRows < 0 || ds.NCols < 0 || ds.NBands < 0 {
		return fmt.Errorf("dataset geometry must not be negative")
	}
	if ds.DataType != "" {
		if _, err := raster.ParseDataType(ds.DataType); err != nil {
			return err
		}
	}
	if _, err := GoDateLayout(ds.DateFormat); err != nil {
		return err
	}

	switch config.Cache.Backend {
	case CacheBackendNone:
	case CacheBackendDisk:
		if ds.CacheLineDir == "" {
			return fmt.Errorf("cache backend %q requires dataset.cache_line_dir", CacheBackendDisk)
		}
	case CacheBackendMemcache:
		if config.Cache.MemcacheAddress == "" {
			return fmt.Errorf("cache backend %q requires cache.memcache_address", CacheBackendMemcache)
		}
	case CacheBackendPostgres:
		if config.Cache.PostgresDSN == "" {
			return fmt.Errorf("cache backend %q requires cache.postgres_dsn", CacheBackendPostgres)
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", config.Cache.Backend)
	}
	return nil
}

// Geometry overlays the pinned geometry fields on g.
func (ds DatasetConfig) Geometry(g raster.Geometry) raster.Geometry {
	if ds.NRows > 0 {
		g.Rows = ds.NRows
	}
	if ds.NCols > 0 {
		g.Cols = ds.NCols
	}
	if ds.NBands > 0 {
		g.Bands = ds.NBands
	}
	if dt, err := raster.ParseDataType(ds.DataType); err == nil {
		g.DataType = dt
	}
	return g
}

// PinnedGeometry reports whether every geometry field is configured.
func (ds DatasetConfig) PinnedGeometry() (raster.Geometry, bool) {
	g := ds.Geometry(raster.Geometry{})
	return g, g.Rows > 0 && g.Cols > 0 && g.Bands > 0 && g.DataType != raster.Unknown
}
