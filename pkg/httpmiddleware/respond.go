package httpmiddleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError emits an error in the API's response envelope. Kept local so
// the middleware layer does not depend on the handler package.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]any{"message": message},
	})
}
