//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestHealthProbes(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := doGet(t, path)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
			}

			body := decodeJSON[healthResponse](t, resp)
			if body.Status != "ok" {
				t.Fatalf("%s: status %q, want ok", path, body.Status)
			}
			// Failing checks would be listed by name; a healthy probe has none.
			if len(body.Checks) != 0 {
				t.Errorf("%s: unexpected failing checks: %v", path, body.Checks)
			}
		})
	}
}
