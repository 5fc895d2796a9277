package httpserver

import (
	"net/http"

	"github.com/pion/webrtc/v4"

	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/config"
	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/metrics"
)

func (s *Server) handleTURNCredentials(w http.ResponseWriter, r *http.Request) {
	if s.creds == nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "turn credentials are not configured"})
		return
	}
	creds := s.creds.Generate()
	s.metrics.Inc(metrics.TURNCredentialsIssued)
	WriteJSON(w, http.StatusOK, creds)
}

// handleICEServers answers with the configured ICE servers. TURN entries get
// freshly issued credentials when a TURN secret is configured.
func (s *Server) handleICEServers(w http.ResponseWriter, r *http.Request) {
	servers := s.cfg.ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	if s.creds != nil {
		creds := s.creds.Generate()
		s.metrics.Inc(metrics.TURNCredentialsIssued)
		servers = withTURNRESTCredentials(servers, creds.Username, creds.Password)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"iceServers": servers})
}

func withTURNRESTCredentials(servers []webrtc.ICEServer, username, credential string) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, len(servers))
	for i, server := range servers {
		out[i] = server
		if config.IsTURNServer(server) {
			out[i].Username = username
			out[i].Credential = credential
		}
	}
	return out
}
