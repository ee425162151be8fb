package utils

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// ExtractIDFromParams retrieves a route parameter and removes a trailing
// representation suffix such as ".json" or ".polyline".
func ExtractIDFromParams(r *http.Request, paramName string, suffixes ...string) string {
	params := httprouter.ParamsFromContext(r.Context())
	rawID := params.ByName(paramName)
	for _, suffix := range suffixes {
		if trimmed, ok := strings.CutSuffix(rawID, suffix); ok {
			return trimmed
		}
	}
	return rawID
}
