package api

import "net/http"

// HealthPath is where HealthHandler is mounted.
const HealthPath = "/health"

// HealthHandler reports liveness plus a few static facts about the server.
func HealthHandler(info map[string]string) http.Handler {
	body := map[string]string{"status": "ok"}
	for k, v := range info {
		if k != "status" {
			body[k] = v
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			WriteMethodNotAllowed(w, http.MethodGet, http.MethodHead)
			return
		}
		WriteJSON(w, http.StatusOK, body)
	})
}
