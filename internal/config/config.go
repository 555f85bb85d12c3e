// Package config loads petatlas configuration and builds the global logger.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Join       JoinConfig       `yaml:"join" mapstructure:"join"`
	Categories CategoriesConfig `yaml:"categories" mapstructure:"categories"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourcesConfig locates every input of a load cycle.
type SourcesConfig struct {
	Boundary       BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Population     TableConfig    `yaml:"population" mapstructure:"population"`
	Pets           TableConfig    `yaml:"pets" mapstructure:"pets"`
	Infrastructure TableConfig    `yaml:"infrastructure" mapstructure:"infrastructure"`
	Facilities     TableConfig    `yaml:"facilities" mapstructure:"facilities"`
}

// BoundaryConfig locates the district boundary file.
type BoundaryConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	Format    string `yaml:"format" mapstructure:"format"` // geojson, shapefile, zip; inferred when empty
	NameField string `yaml:"name_field" mapstructure:"name_field"`
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`
}

// TableConfig locates one tabular source. Path may be a local path or an
// http(s)/ftp URL.
type TableConfig struct {
	Path        string `yaml:"path" mapstructure:"path"`
	Format      string `yaml:"format" mapstructure:"format"` // csv or xlsx; inferred when empty
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
	Sheet       string `yaml:"sheet" mapstructure:"sheet"`
	SkipRows    int    `yaml:"skip_rows" mapstructure:"skip_rows"`
	KeyColumn   string `yaml:"key_column" mapstructure:"key_column"`
	ValueColumn string `yaml:"value_column" mapstructure:"value_column"`
}

// JoinConfig configures the table join.
type JoinConfig struct {
	Duplicates string `yaml:"duplicates" mapstructure:"duplicates"` // error or last
}

// CategoriesConfig points at an optional facility category catalog.
type CategoriesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// FetchConfig configures remote source downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	TempDir     string  `yaml:"temp_dir" mapstructure:"temp_dir"`

	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// CacheConfig sizes the parsed-source cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries"`
}

// ServerConfig configures the JSON API server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	ReloadPerMinute int      `yaml:"reload_per_minute" mapstructure:"reload_per_minute"`
	CORSOrigins     []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PETATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.boundary.path", "resource/hangjeongdong_서울특별시.geojson")
	v.SetDefault("sources.boundary.name_field", "sggnm")
	v.SetDefault("sources.population.path", "")
	v.SetDefault("sources.pets.path", "")
	v.SetDefault("sources.infrastructure.path", "")
	v.SetDefault("sources.facilities.path", "resource/서울반려동물동반.csv")
	v.SetDefault("sources.facilities.encoding", "utf-8")
	v.SetDefault("join.duplicates", "error")
	v.SetDefault("categories.path", "")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "petatlas/1.0")
	v.SetDefault("fetch.rate_per_host", 5)
	v.SetDefault("fetch.temp_dir", "")
	v.SetDefault("fetch.breaker_threshold", 5)
	v.SetDefault("fetch.breaker_cooldown_secs", 60)
	v.SetDefault("cache.max_entries", 32)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.reload_per_minute", 6)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. mode is "load"
// for commands that run a cycle or "serve" for the API server.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "load", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if strings.TrimSpace(c.Sources.Boundary.Path) == "" {
		errs = append(errs, "sources.boundary.path is required")
	}
	switch strings.ToLower(c.Sources.Boundary.Format) {
	case "", "geojson", "shapefile", "zip":
	default:
		errs = append(errs, fmt.Sprintf("sources.boundary.format %q must be geojson, shapefile, or zip", c.Sources.Boundary.Format))
	}
	for name, t := range map[string]TableConfig{
		"population":     c.Sources.Population,
		"pets":           c.Sources.Pets,
		"infrastructure": c.Sources.Infrastructure,
		"facilities":     c.Sources.Facilities,
	} {
		switch strings.ToLower(t.Format) {
		case "", "csv", "xlsx":
		default:
			errs = append(errs, fmt.Sprintf("sources.%s.format %q must be csv or xlsx", name, t.Format))
		}
		if t.SkipRows < 0 {
			errs = append(errs, fmt.Sprintf("sources.%s.skip_rows must be >= 0", name))
		}
	}
	switch strings.ToLower(c.Join.Duplicates) {
	case "", "error", "last":
	default:
		errs = append(errs, fmt.Sprintf("join.duplicates %q must be error or last", c.Join.Duplicates))
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, "fetch.max_retries must be >= 0")
	}
	if c.Fetch.BreakerThreshold < 0 {
		errs = append(errs, "fetch.breaker_threshold must be >= 0")
	}
	if c.Cache.MaxEntries < 1 {
		errs = append(errs, "cache.max_entries must be > 0")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.ReloadPerMinute < 1 {
			errs = append(errs, "server.reload_per_minute must be > 0")
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
