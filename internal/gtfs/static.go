package gtfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/geoexport"
	"github.com/starsep/gtfs-tczew/internal/gtfswriter"
	"github.com/starsep/gtfs-tczew/internal/logging"
	"github.com/starsep/gtfs-tczew/internal/operatorfeed"
	"github.com/starsep/gtfs-tczew/internal/osmfeed"
	"github.com/starsep/gtfs-tczew/internal/report"
)

// extractSources runs both extractors concurrently. Either failure aborts the
// run; both are returned when both fail.
func (manager *Manager) extractSources(ctx context.Context, run generation, reporter *report.Reporter) (mapping, operator *feed.Data, err error) {
	var (
		wg                      sync.WaitGroup
		mappingErr, operatorErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		mapping, mappingErr = osmfeed.Extract(ctx, run.sources.OSM, run.config.RelationID, reporter)
		if mappingErr == nil {
			logging.LogCounts(manager.logger, "mapping_extracted", mapping.Counts(),
				slog.Duration("duration", time.Since(start)))
		}
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		operator, operatorErr = operatorfeed.Extract(ctx, run.sources.Operator, run.config.Operator, reporter)
		if operatorErr == nil {
			logging.LogCounts(manager.logger, "operator_extracted", operator.Counts(),
				slog.Duration("duration", time.Since(start)))
		}
	}()
	wg.Wait()

	if mappingErr != nil {
		mappingErr = fmt.Errorf("error extracting mapping source: %w", mappingErr)
	}
	if operatorErr != nil {
		operatorErr = fmt.Errorf("error extracting operator source: %w", operatorErr)
	}
	if err := errors.Join(mappingErr, operatorErr); err != nil {
		return nil, nil, err
	}
	return mapping, operator, nil
}

// logTimetables lists the timetables the operator publishes. It is purely
// informational, so failures are only logged.
func (manager *Manager) logTimetables(ctx context.Context, run generation) {
	timetables, err := run.sources.Operator.TimetableInformation(ctx)
	if err != nil {
		logging.LogError(manager.logger, "failed to fetch timetable information", err)
		return
	}
	for _, timetable := range timetables {
		logging.LogOperation(manager.logger, "timetable_available",
			slog.Int64("timetable_id", timetable.ID),
			slog.String("date", timetable.Date))
	}
}

func reportProblems(reporter *report.Reporter, problems []feed.Problem) {
	for _, problem := range problems {
		reporter.Warn(report.FeedValidation, problem.String(),
			"entity", problem.Entity, "id", problem.ID)
	}
}

// writeArchive serializes data and parses the result back. The archive is
// written to GTFSPath when one is configured.
func (manager *Manager) writeArchive(run generation, data *feed.Data, reporter *report.Reporter) ([]byte, gtfswriter.Stats, *gtfswriter.Verification, error) {
	var (
		content []byte
		stats   gtfswriter.Stats
		err     error
	)
	if run.config.GTFSPath == "" {
		var buf bytes.Buffer
		stats, err = gtfswriter.Write(&buf, data, run.config.Metadata)
		content = buf.Bytes()
	} else {
		stats, err = gtfswriter.WriteFile(run.config.GTFSPath, data, run.config.Metadata, manager.logger)
		if err == nil {
			content, err = os.ReadFile(run.config.GTFSPath)
		}
	}
	if err != nil {
		return nil, stats, nil, fmt.Errorf("error writing GTFS archive: %w", err)
	}
	if stats.SkippedStopTimes > 0 {
		reporter.Warn(report.UnresolvedReference, "stop times left out of the archive",
			"count", fmt.Sprint(stats.SkippedStopTimes))
	}

	verification, err := gtfswriter.Verify(content)
	if err != nil {
		return nil, stats, nil, err
	}
	for _, warning := range verification.Warnings {
		reporter.Warn(report.FeedValidation, warning)
	}
	for _, mismatch := range verification.Mismatches(stats) {
		reporter.Error(report.FeedValidation, mismatch)
	}
	return content, stats, verification, nil
}

// exportSinks feeds the optional consumers of a finished run.
func (manager *Manager) exportSinks(ctx context.Context, run generation, result *Result) error {
	if run.config.GeoJSONDir != "" {
		if err := geoexport.Save(run.config.GeoJSONDir, result.Feed, manager.logger); err != nil {
			return err
		}
	}
	if manager.GtfsDB != nil {
		if err := manager.GtfsDB.ImportFeed(ctx, result.Feed, run.config.agency()); err != nil {
			return fmt.Errorf("error importing feed into database: %w", err)
		}
		if err := manager.GtfsDB.ImportIssues(ctx, result.Summary.Issues); err != nil {
			return fmt.Errorf("error importing issues into database: %w", err)
		}
		stored, err := manager.GtfsDB.QueryIssueCounts(ctx)
		if err != nil {
			return fmt.Errorf("error counting stored issues: %w", err)
		}
		logging.LogCounts(manager.logger, "feed_imported", stored,
			slog.Duration("duration", manager.GtfsDB.ImportRuntime()))
	}
	return nil
}

// updatePeriodically regenerates the feed until Shutdown is called.
func (manager *Manager) updatePeriodically(interval time.Duration) {
	defer manager.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			_, err := manager.Generate(ctx)
			cancel()
			if err != nil {
				logging.LogError(manager.logger, "error regenerating feed", err)
			}
		case <-manager.shutdownChan:
			logging.LogOperation(manager.logger, "periodic_generation_stopped")
			return
		}
	}
}
