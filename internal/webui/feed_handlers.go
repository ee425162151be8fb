package webui

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/utils"
)

func (webUI *WebUI) gtfsArchiveHandler(w http.ResponseWriter, r *http.Request) {
	result := webUI.GtfsManager.LastResult()
	if result == nil {
		webUI.notGeneratedResponse(w)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="gtfs.zip"`)
	http.ServeContent(w, r, "gtfs.zip", result.GeneratedAt, bytes.NewReader(result.Archive))
}

func (webUI *WebUI) reportHandler(w http.ResponseWriter, r *http.Request) {
	result := webUI.GtfsManager.LastResult()
	if result == nil {
		webUI.notGeneratedResponse(w)
		return
	}
	webUI.sendJSON(w, http.StatusOK, result.Summary)
}

type shapeEntry struct {
	ID     string `json:"id"`
	Length int    `json:"length"`
	Points string `json:"points"`
}

// encodeShape drops consecutive duplicate points and encodes the rest.
func encodeShape(points []feed.ShapePoint) string {
	coords := make([][]float64, 0, len(points))
	for i, point := range points {
		if i > 0 && points[i-1].Lat == point.Lat && points[i-1].Lon == point.Lon {
			continue
		}
		coords = append(coords, []float64{point.Lat, point.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}

func (webUI *WebUI) shapesHandler(w http.ResponseWriter, r *http.Request) {
	result := webUI.GtfsManager.LastResult()
	if result == nil {
		webUI.notGeneratedResponse(w)
		return
	}
	shapeID := utils.ExtractIDFromParams(r, "id", ".json", ".polyline")

	var points []feed.ShapePoint
	for _, point := range result.Feed.Shapes {
		if point.ShapeID == shapeID {
			points = append(points, point)
		}
	}
	if len(points) == 0 {
		webUI.sendNotFound(w)
		return
	}

	encoded := encodeShape(points)
	webUI.sendJSON(w, http.StatusOK, shapeEntry{ID: shapeID, Length: len(encoded), Points: encoded})
}

func parseFloatParam(r *http.Request, name string, required bool, fieldErrors map[string][]string) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			fieldErrors[name] = append(fieldErrors[name], "is required")
		}
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fieldErrors[name] = append(fieldErrors[name], fmt.Sprintf("invalid number %q", raw))
	}
	return value
}

func (webUI *WebUI) stopsNearHandler(w http.ResponseWriter, r *http.Request) {
	fieldErrors := make(map[string][]string)
	lat := parseFloatParam(r, "lat", true, fieldErrors)
	lon := parseFloatParam(r, "lon", true, fieldErrors)
	radius := parseFloatParam(r, "radius", false, fieldErrors)
	maxCount := int(parseFloatParam(r, "maxCount", false, fieldErrors))
	if lat < -90 || lat > 90 {
		fieldErrors["lat"] = append(fieldErrors["lat"], "must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		fieldErrors["lon"] = append(fieldErrors["lon"], "must be between -180 and 180")
	}
	if len(fieldErrors) > 0 {
		webUI.validationErrorResponse(w, fieldErrors)
		return
	}

	if webUI.GtfsManager.LastResult() == nil {
		webUI.notGeneratedResponse(w)
		return
	}
	stops, err := webUI.GtfsManager.StopsNear(r.Context(), lat, lon, radius, maxCount)
	if err != nil {
		webUI.serverErrorResponse(w, r, err)
		return
	}
	if stops == nil {
		stops = []feed.Stop{}
	}
	webUI.sendJSON(w, http.StatusOK, map[string]any{"stops": stops})
}

// stopTimesHandler reads the stop times of a trip back from the imported
// database.
func (webUI *WebUI) stopTimesHandler(w http.ResponseWriter, r *http.Request) {
	db := webUI.GtfsManager.GtfsDB
	if db == nil {
		webUI.sendError(w, http.StatusServiceUnavailable, "no GTFS database configured")
		return
	}
	if webUI.GtfsManager.LastResult() == nil {
		webUI.notGeneratedResponse(w)
		return
	}
	tripID := utils.ExtractIDFromParams(r, "tripId", ".json")
	stopTimes, err := db.QueryStopTimesForTrip(r.Context(), tripID)
	if err != nil {
		webUI.serverErrorResponse(w, r, err)
		return
	}
	if len(stopTimes) == 0 {
		webUI.sendNotFound(w)
		return
	}
	webUI.sendJSON(w, http.StatusOK, map[string]any{"tripId": tripID, "stopTimes": stopTimes})
}

type regionBounds struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	LatSpan float64 `json:"latSpan"`
	LonSpan float64 `json:"lonSpan"`
}

func (webUI *WebUI) healthHandler(w http.ResponseWriter, r *http.Request) {
	result := webUI.GtfsManager.LastResult()
	if result == nil {
		webUI.sendJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	lat, lon, latSpan, lonSpan := webUI.GtfsManager.GetRegionBounds()
	body := map[string]any{
		"status":       "ok",
		"generated_at": result.GeneratedAt.Format(time.RFC3339),
		"env":          webUI.Config.Env.String(),
		"region":       regionBounds{Lat: lat, Lon: lon, LatSpan: latSpan, LonSpan: lonSpan},
	}
	if db := webUI.GtfsManager.GtfsDB; db != nil {
		tables, err := db.TableCounts(r.Context())
		if err != nil {
			webUI.serverErrorResponse(w, r, err)
			return
		}
		body["tables"] = tables
	}
	webUI.sendJSON(w, http.StatusOK, body)
}

// regenerateHandler runs the pipeline synchronously for holders of an API key.
func (webUI *WebUI) regenerateHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.RequestHasInvalidAPIKey(r) {
		webUI.sendError(w, http.StatusUnauthorized, "permission denied")
		return
	}
	result, err := webUI.GtfsManager.Generate(r.Context())
	if err != nil {
		webUI.serverErrorResponse(w, r, err)
		return
	}
	webUI.sendJSON(w, http.StatusOK, map[string]any{
		"generated_at": result.GeneratedAt.Format(time.RFC3339),
		"counts":       result.Feed.Counts(),
		"issues":       len(result.Summary.Issues),
	})
}
