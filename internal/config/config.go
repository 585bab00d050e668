package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Loader  LoaderConfig  `yaml:"loader" mapstructure:"loader"`
	Detect  DetectConfig  `yaml:"detect" mapstructure:"detect"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Filter  FilterConfig  `yaml:"filter" mapstructure:"filter"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// CatalogConfig configures the CKAN catalog endpoint.
type CatalogConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	SearchRows  int     `yaml:"search_rows" mapstructure:"search_rows"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FetchConfig configures resource downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// LoaderConfig configures tabular parsing.
type LoaderConfig struct {
	// SampleRows is how many non-empty lines the delimiter sniffer inspects.
	SampleRows int `yaml:"sample_rows" mapstructure:"sample_rows"`
}

// DetectConfig configures coordinate column detection. Synonym order is the
// tie-break: the first list entry present among the table's columns wins.
type DetectConfig struct {
	LatSynonyms  []string `yaml:"lat_synonyms" mapstructure:"lat_synonyms"`
	LonSynonyms  []string `yaml:"lon_synonyms" mapstructure:"lon_synonyms"`
	SynonymsFile string   `yaml:"synonyms_file" mapstructure:"synonyms_file"`
}

// MapConfig configures the rendered map artifact.
type MapConfig struct {
	Zoom  int    `yaml:"zoom" mapstructure:"zoom"`
	Title string `yaml:"title" mapstructure:"title"`
}

// FilterConfig configures the conditional subset export: rows whose Column
// equals Value and whose CountColumn exceeds MinCount land in a separate
// spreadsheet. Datasets lacking either column skip the filter.
type FilterConfig struct {
	Column      string  `yaml:"column" mapstructure:"column"`
	Value       string  `yaml:"value" mapstructure:"value"`
	CountColumn string  `yaml:"count_column" mapstructure:"count_column"`
	MinCount    float64 `yaml:"min_count" mapstructure:"min_count"`
	File        string  `yaml:"file" mapstructure:"file"`
}

// OutputConfig configures where snapshots and artifacts are written.
type OutputConfig struct {
	DataDir   string `yaml:"data_dir" mapstructure:"data_dir"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	MapFile   string `yaml:"map_file" mapstructure:"map_file"`
	CSVFile   string `yaml:"csv_file" mapstructure:"csv_file"`
	XLSXFile  string `yaml:"xlsx_file" mapstructure:"xlsx_file"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	Limit       int `yaml:"limit" mapstructure:"limit"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the results server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultLatSynonyms is the ordered latitude column-name synonym list.
var DefaultLatSynonyms = []string{"latitudine", "latitude", "lat", "y_coord", "y"}

// DefaultLonSynonyms is the ordered longitude column-name synonym list.
var DefaultLonSynonyms = []string{"longitudine", "longitude", "lon", "x_coord", "x"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OPENDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.base_url", "https://dati.gov.it/opendata/api/3/action")
	v.SetDefault("catalog.user_agent", "opendata-cli/1.0")
	v.SetDefault("catalog.search_rows", 100)
	v.SetDefault("catalog.rate_per_sec", 5)
	v.SetDefault("catalog.timeout_secs", 30)
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "opendata-cli/1.0")
	v.SetDefault("fetch.rate_per_sec", 10)
	v.SetDefault("loader.sample_rows", 10)
	v.SetDefault("detect.lat_synonyms", DefaultLatSynonyms)
	v.SetDefault("detect.lon_synonyms", DefaultLonSynonyms)
	v.SetDefault("map.zoom", 13)
	v.SetDefault("map.title", "Mappa incidenti")
	v.SetDefault("filter.column", "Condizioni traffico")
	v.SetDefault("filter.value", "Intenso")
	v.SetDefault("filter.count_column", "N. veicoli coinvolti")
	v.SetDefault("filter.min_count", 2)
	v.SetDefault("filter.file", "condizioni.xlsx")
	v.SetDefault("output.data_dir", "data")
	v.SetDefault("output.output_dir", "output")
	v.SetDefault("output.map_file", "mappa_incidenti.html")
	v.SetDefault("output.csv_file", "output.csv")
	v.SetDefault("output.xlsx_file", "output.xlsx")
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.limit", 50)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("server.port", 8080)
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

	if cfg.Detect.SynonymsFile != "" {
		if err := cfg.Detect.loadSynonymsFile(); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// synonymsFile is the on-disk shape of a synonym override file.
type synonymsFile struct {
	Latitude  []string `yaml:"latitude"`
	Longitude []string `yaml:"longitude"`
}

// loadSynonymsFile replaces the synonym lists with the contents of the
// configured YAML file. Lists left empty in the file keep their defaults.
func (d *DetectConfig) loadSynonymsFile() error {
	raw, err := os.ReadFile(d.SynonymsFile)
	if err != nil {
		return eris.Wrapf(err, "config: read synonyms file %s", d.SynonymsFile)
	}

	var sf synonymsFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return eris.Wrapf(err, "config: parse synonyms file %s", d.SynonymsFile)
	}

	if len(sf.Latitude) > 0 {
		d.LatSynonyms = sf.Latitude
	}
	if len(sf.Longitude) > 0 {
		d.LonSynonyms = sf.Longitude
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
