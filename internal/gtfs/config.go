package gtfs

import (
	"path/filepath"
	"time"

	"github.com/starsep/gtfs-tczew/gtfsdb"
	"github.com/starsep/gtfs-tczew/internal/appconf"
	"github.com/starsep/gtfs-tczew/internal/gtfswriter"
	"github.com/starsep/gtfs-tczew/internal/merge"
	"github.com/starsep/gtfs-tczew/internal/operatorfeed"
	"github.com/starsep/gtfs-tczew/internal/utils"
)

type Config struct {
	RelationID int64
	Operator   operatorfeed.Config
	Merge      merge.Options
	Metadata   gtfswriter.Metadata

	// GTFSPath is where the archive is written; empty keeps it in memory only.
	GTFSPath string
	// GeoJSONDir receives stops.geojson and routes.geojson when set.
	GeoJSONDir string
	// GTFSDataPath is the SQLite database the feed is imported into when set.
	GTFSDataPath string

	Env     appconf.Environment
	Verbose bool
}

func (config Config) databaseEnabled() bool {
	return config.GTFSDataPath != ""
}

func (config Config) agency() gtfsdb.Agency {
	agency := config.Metadata.Agency
	return gtfsdb.Agency{
		ID:       agency.ID,
		Name:     agency.Name,
		URL:      agency.URL,
		Timezone: agency.Timezone,
		Language: agency.Lang,
	}
}

// ForDay dates the feed: the operator calendar starts on the day of now and
// the day becomes the feed version.
func (config Config) ForDay(now time.Time) Config {
	feedDate := utils.FormatGTFSDate(now)
	config.Operator.FeedDate = feedDate
	config.Metadata.FeedVersion = feedDate
	return config
}

// ConfigFromApp derives the pipeline configuration. The feed date is filled
// in by ForDay at the start of every run.
func ConfigFromApp(cfg appconf.Config) Config {
	config := Config{
		RelationID: cfg.OSM.RelationID,
		Operator: operatorfeed.Config{
			EndDate:           cfg.Feed.EndDate,
			TimeOffsetMinutes: cfg.Feed.TimeOffsetMinutes,
			LastLegMinutes:    cfg.Operator.LastLegMinutes,
		},
		Merge: merge.Options{
			WarnDistanceMeters:  cfg.Merge.WarnDistanceMeters,
			ErrorDistanceMeters: cfg.Merge.ErrorDistanceMeters,
		},
		Metadata: gtfswriter.Metadata{
			Agency: gtfswriter.Agency{
				ID:       cfg.Feed.AgencyID,
				Name:     cfg.Feed.AgencyName,
				URL:      cfg.Feed.AgencyURL,
				Timezone: cfg.Feed.AgencyTimezone,
				Lang:     cfg.Feed.AgencyLang,
			},
			PublisherName: cfg.Feed.PublisherName,
			PublisherURL:  cfg.Feed.PublisherURL,
			Lang:          cfg.Feed.AgencyLang,
			Attributions:  gtfswriter.DefaultAttributions(),
		},
		GTFSPath:     filepath.Join(cfg.Output.Dir, cfg.Output.GTFSFile),
		GTFSDataPath: cfg.Output.Database,
		Env:          cfg.Env,
		Verbose:      cfg.Log.Level == "debug" || cfg.Log.Level == "DEBUG",
	}
	if cfg.Output.GeoJSON {
		config.GeoJSONDir = cfg.Output.Dir
	}
	return config
}
