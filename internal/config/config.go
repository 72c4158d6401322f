package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flatfind-sg/flatfind-cli/internal/amenity"
	"github.com/flatfind-sg/flatfind-cli/internal/scorer"
)

// Config holds the full application configuration.
type Config struct {
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Resale ResaleConfig `yaml:"resale" mapstructure:"resale"`
	Scorer ScorerConfig `yaml:"scorer" mapstructure:"scorer"`
	Afford AffordConfig `yaml:"afford" mapstructure:"afford"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DataConfig points at the local geodata files. Amenity paths accept
// GeoJSON or shapefiles, dispatched by extension.
type DataConfig struct {
	BlocksCSV  string `yaml:"blocks_csv" mapstructure:"blocks_csv"`
	Transit    string `yaml:"transit" mapstructure:"transit"`
	Schools    string `yaml:"schools" mapstructure:"schools"`
	Preschools string `yaml:"preschools" mapstructure:"preschools"`
	Hospitals  string `yaml:"hospitals" mapstructure:"hospitals"`
}

// ResaleConfig configures the data.gov.sg resale feed client.
type ResaleConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	ResourceID   string `yaml:"resource_id" mapstructure:"resource_id"`
	PageSize     int    `yaml:"page_size" mapstructure:"page_size"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	RecentMonths int    `yaml:"recent_months" mapstructure:"recent_months"`
}

// ScorerConfig configures scoring caps, weights, and batch caching.
type ScorerConfig struct {
	Caps         scorer.Caps `yaml:"caps" mapstructure:"caps"`
	WeightsFile  string      `yaml:"weights_file" mapstructure:"weights_file"`
	BatchTTLMins int         `yaml:"batch_ttl_mins" mapstructure:"batch_ttl_mins"`
}

// BatchTTL returns the configured cache TTL, or zero when unset so the
// scorer falls back to its default.
func (c ScorerConfig) BatchTTL() time.Duration {
	return time.Duration(c.BatchTTLMins) * time.Minute
}

// AffordConfig overrides affordability assumptions.
type AffordConfig struct {
	AnnualInterestPct float64 `yaml:"annual_interest_pct" mapstructure:"annual_interest_pct"`
}

// StoreConfig configures the database backend. The connection counts
// only apply to the postgres driver.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("FLATFIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "flatfind.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("data.blocks_csv", "data/blocks.csv")
	v.SetDefault("data.transit", "data/transit.geojson")
	v.SetDefault("data.schools", "data/schools.geojson")
	v.SetDefault("data.hospitals", "data/hospitals.geojson")
	v.SetDefault("resale.base_url", "https://data.gov.sg/api/action/datastore_search")
	v.SetDefault("resale.resource_id", "f1765b54-a209-4718-8d38-a39237f502b3")
	v.SetDefault("resale.page_size", 1000)
	v.SetDefault("resale.user_agent", "flatfind/1.0")
	v.SetDefault("resale.recent_months", 12)
	v.SetDefault("scorer.caps.transit", 3000)
	v.SetDefault("scorer.caps.school", 2000)
	v.SetDefault("scorer.caps.hospital", 3000)
	v.SetDefault("scorer.batch_ttl_mins", 10)
	v.SetDefault("afford.annual_interest_pct", 3.1)

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

// AmenitySources maps the data paths onto the amenity catalog inputs.
func (c *Config) AmenitySources() amenity.Sources {
	return amenity.Sources{
		Transit:   c.Data.Transit,
		School:    c.Data.Schools,
		Preschool: c.Data.Preschools,
		Hospital:  c.Data.Hospitals,
	}
}

// Validate checks that the configuration can support the given mode.
// Modes map to command families: "score" and "geocode" need the local
// geodata, "serve" additionally needs a usable port, "fetch" and
// "import" need the store.
func (c *Config) Validate(mode string) error {
	var problems []string

	needsData := func() {
		if c.Data.BlocksCSV == "" {
			problems = append(problems, "data.blocks_csv is required")
		}
		if c.Data.Transit == "" {
			problems = append(problems, "data.transit is required")
		}
		if c.Data.Schools == "" {
			problems = append(problems, "data.schools is required")
		}
		if c.Data.Hospitals == "" {
			problems = append(problems, "data.hospitals is required")
		}
	}
	needsStore := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	switch mode {
	case "score":
		needsData()
	case "geocode":
		needsData()
	case "serve":
		needsData()
		needsStore()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	case "fetch", "import":
		needsStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Resale.PageSize <= 0 {
		problems = append(problems, "resale.page_size must be > 0")
	}
	if c.Afford.AnnualInterestPct < 0 {
		problems = append(problems, "afford.annual_interest_pct must be >= 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s mode: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

// Weights resolves the weight vector, reading the weights file when one
// is configured.
func (c *Config) Weights() (scorer.Weights, error) {
	if c.Scorer.WeightsFile == "" {
		return scorer.DefaultWeights(), nil
	}
	return scorer.LoadWeightsFile(c.Scorer.WeightsFile)
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
