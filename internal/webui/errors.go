package webui

import (
	"encoding/json"
	"net/http"

	"github.com/starsep/gtfs-tczew/internal/logging"
)

type errorResponse struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

func (webUI *WebUI) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.LogError(webUI.Logger, "failed to encode response", err)
	}
}

func (webUI *WebUI) sendError(w http.ResponseWriter, status int, text string) {
	webUI.sendJSON(w, status, errorResponse{Code: status, Text: text})
}

func (webUI *WebUI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "request failed", err)
	webUI.sendError(w, http.StatusInternalServerError, "internal server error")
}

func (webUI *WebUI) sendNotFound(w http.ResponseWriter) {
	webUI.sendError(w, http.StatusNotFound, "resource not found")
}

// notGeneratedResponse answers requests that arrive before the first run.
func (webUI *WebUI) notGeneratedResponse(w http.ResponseWriter) {
	webUI.sendError(w, http.StatusServiceUnavailable, "feed not generated yet")
}

func (webUI *WebUI) validationErrorResponse(w http.ResponseWriter, fieldErrors map[string][]string) {
	webUI.sendJSON(w, http.StatusBadRequest, struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{FieldErrors: fieldErrors})
}
