package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt reads a positive integer parameter, falling back to def when it
// is absent or not positive and capping it at max.
func queryInt(req *http.Request, key string, def, max int) int {
	n, err := strconv.Atoi(req.URL.Query().Get(key))
	if err != nil || n <= 0 {
		n = def
	}
	if n > max {
		n = max
	}
	return n
}
