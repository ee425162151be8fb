package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starsep/gtfs-tczew/gtfsdb"
	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/gtfswriter"
	"github.com/starsep/gtfs-tczew/internal/logging"
	"github.com/starsep/gtfs-tczew/internal/merge"
	"github.com/starsep/gtfs-tczew/internal/operator"
	"github.com/starsep/gtfs-tczew/internal/osmtree"
	"github.com/starsep/gtfs-tczew/internal/report"
	"github.com/starsep/gtfs-tczew/internal/utils"
)

// Sources are the two upstreams a feed is generated from.
type Sources struct {
	OSM      osmtree.Source
	Operator operator.Source
}

// SourceFactory builds the upstream clients for one run. Clients may memoize
// what they fetch, so every run gets a fresh pair.
type SourceFactory func() Sources

// generation is what one run works with: the configuration for the day it
// runs on and its own upstream clients.
type generation struct {
	config  Config
	sources Sources
}

// Result is everything one generation run produced. It is never modified
// after Generate returns it.
type Result struct {
	Feed         *feed.Data
	Mapping      *feed.Data
	Operator     *feed.Data
	Associations map[string]string
	Summary      report.Summary
	Archive      []byte
	Stats        gtfswriter.Stats
	Verification *gtfswriter.Verification
	GeneratedAt  time.Time
}

// Manager runs the generation pipeline and keeps the latest result around
// for the web UI.
type Manager struct {
	config     Config
	newSources SourceFactory
	now        func() time.Time
	logger     *slog.Logger
	sinks      []report.Sink
	GtfsDB     *gtfsdb.Client

	mu          sync.RWMutex
	result      *Result
	lastUpdated time.Time

	// generateMu serializes runs; a periodic run never overlaps a manual one.
	generateMu   sync.Mutex
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// InitGTFSManager builds a Manager. sinks receive every diagnostic in
// addition to the in-memory recorder kept with each result.
func InitGTFSManager(config Config, sources SourceFactory, logger *slog.Logger, sinks ...report.Sink) (*Manager, error) {
	manager := &Manager{
		config:       config,
		newSources:   sources,
		now:          time.Now,
		logger:       logger,
		sinks:        sinks,
		shutdownChan: make(chan struct{}),
	}

	if config.databaseEnabled() {
		client, err := gtfsdb.NewClient(gtfsdb.NewConfig(config.GTFSDataPath, config.Env, config.Verbose), logger)
		if err != nil {
			return nil, fmt.Errorf("error building GTFS database: %w", err)
		}
		manager.GtfsDB = client
	}
	return manager, nil
}

// Generate runs extraction, merge, serialization and export once.
func (manager *Manager) Generate(ctx context.Context) (*Result, error) {
	manager.generateMu.Lock()
	defer manager.generateMu.Unlock()

	start := time.Now()
	run := generation{config: manager.config.ForDay(manager.now()), sources: manager.newSources()}
	recorder := report.NewRecorder()
	reporter := report.New(manager.logger, append([]report.Sink{recorder}, manager.sinks...)...)

	manager.logTimetables(ctx, run)

	mapping, operatorData, err := manager.extractSources(ctx, run, reporter)
	if err != nil {
		return nil, err
	}

	merged, associations, err := merge.Merge(ctx, mapping, operatorData, reporter, run.config.Merge)
	if err != nil {
		return nil, fmt.Errorf("error merging sources: %w", err)
	}
	reportProblems(reporter, feed.Validate(merged))

	archive, stats, verification, err := manager.writeArchive(run, merged, reporter)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Feed:         merged,
		Mapping:      mapping,
		Operator:     operatorData,
		Associations: associations,
		Summary:      recorder.Summary(),
		Archive:      archive,
		Stats:        stats,
		Verification: verification,
		GeneratedAt:  manager.now(),
	}
	if err := manager.exportSinks(ctx, run, result); err != nil {
		return nil, err
	}

	manager.setResult(result)
	logging.LogCounts(manager.logger, "feed_generated", merged.Counts(),
		slog.Int("issues", len(result.Summary.Issues)),
		slog.Int("errors", recorder.ErrorCount()),
		slog.String("feed_version", run.config.Metadata.FeedVersion),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

func (manager *Manager) setResult(result *Result) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.result = result
	manager.lastUpdated = result.GeneratedAt
}

// LastResult returns the most recent successful run, or nil before the first.
func (manager *Manager) LastResult() *Result {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.result
}

// StartPeriodicUpdates regenerates the feed every interval in the background.
func (manager *Manager) StartPeriodicUpdates(interval time.Duration) {
	if interval <= 0 {
		return
	}
	manager.wg.Add(1)
	go manager.updatePeriodically(interval)
}

// Shutdown gracefully shuts down the manager and its background goroutines
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
		manager.wg.Wait()
		if manager.GtfsDB != nil {
			logging.SafeCloseWithLogging(manager.GtfsDB, manager.logger, "close_gtfs_db")
		}
	})
}

type stopWithDistance struct {
	stop     feed.Stop
	distance float64
}

// StopsNear returns the merged stops within radius meters of a point,
// nearest first. The SQLite index narrows the search when a database is
// configured.
func (manager *Manager) StopsNear(ctx context.Context, lat, lon, radius float64, maxCount int) ([]feed.Stop, error) {
	result := manager.LastResult()
	if result == nil {
		return nil, nil
	}
	if radius <= 0 {
		radius = 500
	}
	if maxCount <= 0 {
		maxCount = 10
	}

	minLat, minLon, maxLat, maxLon := utils.BoundingBox(feed.LatLon{Lat: lat, Lon: lon}, radius)
	var candidateIDs []string
	if manager.GtfsDB != nil {
		rows, err := manager.GtfsDB.QueryStopsInBounds(ctx, minLat, minLon, maxLat, maxLon)
		if err != nil {
			return nil, fmt.Errorf("error querying stops: %w", err)
		}
		for _, row := range rows {
			candidateIDs = append(candidateIDs, row.ID)
		}
	} else {
		candidateIDs = feed.SortedStopIDs(result.Feed.Stops)
	}

	center := feed.LatLon{Lat: lat, Lon: lon}
	var candidates []stopWithDistance
	for _, id := range candidateIDs {
		stop, ok := result.Feed.Stops[id]
		if !ok {
			continue
		}
		distance := utils.DistanceMeters(center, stop.Position())
		if distance <= radius {
			candidates = append(candidates, stopWithDistance{stop, distance})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	var stops []feed.Stop
	for i := 0; i < len(candidates) && i < maxCount; i++ {
		stops = append(stops, candidates[i].stop)
	}
	return stops, nil
}

func (manager *Manager) PrintStatistics() {
	result := manager.LastResult()
	if result == nil {
		manager.logger.Info("no feed generated yet")
		return
	}
	logging.LogCounts(manager.logger, "statistics", result.Feed.Counts(),
		slog.Time("last_updated", result.GeneratedAt),
		slog.Int("associations", len(result.Associations)),
		slog.Int("archive_bytes", len(result.Archive)))
}
