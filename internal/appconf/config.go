// Package appconf loads the generator configuration from YAML and applies
// defaults for everything the file leaves out.
package appconf

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/starsep/gtfs-tczew/internal/utils"
)

type OSMConfig struct {
	APIURL            string  `yaml:"apiURL" validate:"required,url"`
	RelationID        int64   `yaml:"relationID" validate:"gt=0"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond" validate:"gt=0"`
}

type OperatorConfig struct {
	BaseURL           string  `yaml:"baseURL" validate:"required,url"`
	TimetableID       int     `yaml:"timetableID" validate:"gte=0"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond" validate:"gt=0"`
	// AverageSpeedKmh drives the last leg estimate when the API has no
	// departure at a terminal stop.
	AverageSpeedKmh float64 `yaml:"averageSpeedKmh" validate:"gt=0"`
	// LastLegMinutes overrides the estimate, keyed by "fromStopID-toStopID".
	LastLegMinutes map[string]int `yaml:"lastLegMinutes" validate:"dive,gte=0"`
}

type FeedConfig struct {
	AgencyID          string `yaml:"agencyID" validate:"required"`
	AgencyName        string `yaml:"agencyName" validate:"required"`
	AgencyURL         string `yaml:"agencyURL" validate:"required,url"`
	AgencyTimezone    string `yaml:"agencyTimezone" validate:"required"`
	AgencyLang        string `yaml:"agencyLang" validate:"required"`
	PublisherName     string `yaml:"publisherName" validate:"required"`
	PublisherURL      string `yaml:"publisherURL" validate:"required,url"`
	EndDate           string `yaml:"endDate" validate:"required,len=8,numeric"`
	TimeOffsetMinutes int    `yaml:"timeOffsetMinutes"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir" validate:"required"`
	GTFSFile string `yaml:"gtfsFile" validate:"required"`
	GeoJSON  bool   `yaml:"geojson"`
	Database string `yaml:"database"`
}

type HTTPConfig struct {
	TimeoutSeconds int    `yaml:"timeoutSeconds" validate:"gt=0"`
	MaxRetries     uint64 `yaml:"maxRetries"`
	CachePath      string `yaml:"cachePath"`
	CacheSize      int    `yaml:"cacheSize" validate:"gt=0"`
	// CacheTTLMinutes bounds how long a cached response is reused; 0 keeps
	// responses until evicted unless the feed is refreshed periodically.
	CacheTTLMinutes int    `yaml:"cacheTTLMinutes" validate:"gte=0"`
	UserAgent       string `yaml:"userAgent" validate:"required"`
}

type MergeConfig struct {
	WarnDistanceMeters  float64 `yaml:"warnDistanceMeters" validate:"gt=0"`
	ErrorDistanceMeters float64 `yaml:"errorDistanceMeters" validate:"gtfield=WarnDistanceMeters"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0,lte=65535"`
	// RefreshMinutes regenerates the feed periodically while serving; 0 disables it.
	RefreshMinutes int `yaml:"refreshMinutes" validate:"gte=0"`
	// APIKeys may trigger a regeneration through the web UI.
	APIKeys []string `yaml:"apiKeys" validate:"dive,required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Config is the root configuration structure.
type Config struct {
	Env      Environment    `yaml:"env"`
	Log      LogConfig      `yaml:"log"`
	OSM      OSMConfig      `yaml:"osm"`
	Operator OperatorConfig `yaml:"operator"`
	Feed     FeedConfig     `yaml:"feed"`
	Output   OutputConfig   `yaml:"output"`
	HTTP     HTTPConfig     `yaml:"http"`
	Merge    MergeConfig    `yaml:"merge"`
	Server   ServerConfig   `yaml:"server"`
}

// Default returns the configuration used for the Tczew feed.
func Default() Config {
	return Config{
		Env: Development,
		Log: LogConfig{Level: "info", Format: "text"},
		OSM: OSMConfig{
			APIURL:            "https://api.openstreetmap.org/api/0.6",
			RelationID:        12625881,
			RequestsPerSecond: 2,
		},
		Operator: OperatorConfig{
			BaseURL:           "http://rozklady.tczew.pl",
			RequestsPerSecond: 5,
			AverageSpeedKmh:   25,
		},
		Feed: FeedConfig{
			AgencyID:          "gryf",
			AgencyName:        "Przewozy Autobusowe Gryf sp. z o.o. sp. k.",
			AgencyURL:         "http://rozklady.tczew.pl/",
			AgencyTimezone:    "Europe/Warsaw",
			AgencyLang:        "pl",
			PublisherName:     "Filip Czaplicki",
			PublisherURL:      "https://starsep.com/gtfs/",
			EndDate:           "20300101",
			TimeOffsetMinutes: 120,
		},
		Output: OutputConfig{
			Dir:      "out",
			GTFSFile: "tczew.zip",
			GeoJSON:  true,
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 30,
			MaxRetries:     4,
			CachePath:      "cache.db",
			CacheSize:      1024,
			UserAgent:      "gtfs-tczew (https://starsep.com/gtfs/)",
		},
		Merge: MergeConfig{
			WarnDistanceMeters:  100,
			ErrorDistanceMeters: 200,
		},
		Server: ServerConfig{Port: 4000},
	}
}

// Timeout is the per request HTTP timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RefreshInterval is the period between background regenerations, 0 if off.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Server.RefreshMinutes) * time.Minute
}

// CacheTTL is how long a cached upstream response is reused. With periodic
// regeneration it stays under half the refresh interval, so every run
// downloads what changed upstream since the previous one.
func (c Config) CacheTTL() time.Duration {
	ttl := time.Duration(c.HTTP.CacheTTLMinutes) * time.Minute
	if refresh := c.RefreshInterval(); refresh > 0 && (ttl == 0 || ttl > refresh/2) {
		ttl = refresh / 2
	}
	return ttl
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads a YAML configuration file. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, Validate(cfg)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks struct constraints.
func Validate(cfg Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			first := validationErrors[0]
			return fmt.Errorf("invalid config: %s failed %q (%d problems): %w", first.Namespace(), first.Tag(), len(validationErrors), err)
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := utils.ParseGTFSDate(cfg.Feed.EndDate); err != nil {
		return fmt.Errorf("invalid config: feed.endDate: %w", err)
	}
	return nil
}
