package app

import (
	"log/slog"

	"github.com/starsep/gtfs-tczew/internal/appconf"
	"github.com/starsep/gtfs-tczew/internal/gtfs"
)

// Application holds the dependencies shared by the CLI commands and the web
// UI handlers.
type Application struct {
	Config      appconf.Config
	Logger      *slog.Logger
	GtfsManager *gtfs.Manager
}
