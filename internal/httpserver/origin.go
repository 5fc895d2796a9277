package httpserver

import (
	"net/http"
	"strings"

	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/metrics"
)

// withTURNOriginPolicy only lets allow-listed browser origins through. Other
// requests get a bare 403 without CORS headers so the browser hides the
// response from the page.
func (s *Server) withTURNOriginPolicy(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		originHeader := strings.TrimSpace(r.Header.Get("Origin"))
		if _, ok := s.turnOrigin.Allow(originHeader); !ok {
			s.metrics.Inc(metrics.TURNCredentialsForbidden)
			s.log.Debug("turn_origin_forbidden", "origin", originHeader, "path", r.URL.Path)
			w.WriteHeader(http.StatusForbidden)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", originHeader)
		w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET")
		w.Header().Add("Vary", "Origin")

		next(w, r)
	}
}
