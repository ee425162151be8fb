package app

import "net/http"

// RequestHasInvalidAPIKey checks the "key" query parameter.
func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	key := r.URL.Query().Get("key")
	return app.IsInvalidAPIKey(key)
}

func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}

	for _, validKey := range app.Config.Server.APIKeys {
		if key == validKey {
			return false
		}
	}

	return true
}
