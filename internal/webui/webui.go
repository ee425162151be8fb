// Package webui serves the last generated feed for inspection: debug dumps,
// the GTFS archive, the diagnostic report and encoded shapes.
package webui

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/starsep/gtfs-tczew/internal/app"
)

type WebUI struct {
	*app.Application
}

func NewWebUI(application *app.Application) *WebUI {
	return &WebUI{Application: application}
}

// Handler returns the router wrapped in the security, logging and
// compression middleware.
func (webUI *WebUI) Handler() http.Handler {
	router := httprouter.New()
	webUI.SetWebUIRoutes(router)

	var handler http.Handler = router
	handler = CompressionMiddleware(handler)
	handler = NewRequestLoggingMiddleware(webUI.Logger)(handler)
	return securityHeaders(handler)
}
