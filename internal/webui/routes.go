package webui

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// regenerations allowed per API key and minute; a run refetches both sources.
const regenerateRequestsPerMinute = 4

func (webUI *WebUI) SetWebUIRoutes(router *httprouter.Router) {
	regenerateLimit := NewRateLimitMiddleware(regenerateRequestsPerMinute, time.Minute)

	router.HandlerFunc("GET", "/debug/", webUI.debugIndexHandler)
	router.HandlerFunc("GET", "/gtfs.zip", webUI.gtfsArchiveHandler)
	router.HandlerFunc("GET", "/report.json", webUI.reportHandler)
	router.HandlerFunc("GET", "/shapes/:id", webUI.shapesHandler)
	router.HandlerFunc("GET", "/stops-near.json", webUI.stopsNearHandler)
	router.HandlerFunc("GET", "/stop-times/:tripId", webUI.stopTimesHandler)
	router.HandlerFunc("GET", "/healthz", webUI.healthHandler)
	router.Handler("POST", "/regenerate", regenerateLimit(http.HandlerFunc(webUI.regenerateHandler)))
}
