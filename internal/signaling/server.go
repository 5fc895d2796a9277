package signaling

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/metrics"
)

const (
	DefaultMaxMessageBytes int64 = 64 * 1024
	DefaultSendQueueBytes        = 1 << 20
)

// Config wires together the runtime dependencies for the relay.
type Config struct {
	// Registry is the peer table. If nil, the Server creates its own.
	Registry *Registry

	HeartbeatInterval time.Duration

	// MaxMessageBytes bounds a single inbound frame. Larger frames close the
	// connection with 1009.
	MaxMessageBytes int64

	// SendQueueBytes bounds the frames buffered for one slow peer. Envelopes
	// that do not fit are dropped.
	SendQueueBytes int

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Server accepts WebSocket connections, admits them by id and relays
// envelopes between them.
//
// Endpoints:
//   - GET /           : WebSocket upgrade with ?id=<peer id>
//   - GET /peers/{id} : presence probe (204 registered, 404 otherwise)
type Server struct {
	registry   *Registry
	gatekeeper *Gatekeeper
	router     *Router
	heartbeat  *Heartbeat

	maxMessageBytes int64
	sendQueueBytes  int

	log      *slog.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

func NewServer(cfg Config) *Server {
	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxMessageBytes := cfg.MaxMessageBytes
	if maxMessageBytes <= 0 {
		maxMessageBytes = DefaultMaxMessageBytes
	}
	sendQueueBytes := cfg.SendQueueBytes
	if sendQueueBytes <= 0 {
		sendQueueBytes = DefaultSendQueueBytes
	}

	return &Server{
		registry:        registry,
		gatekeeper:      NewGatekeeper(registry),
		router:          NewRouter(registry, logger, cfg.Metrics),
		heartbeat:       NewHeartbeat(registry, cfg.HeartbeatInterval, logger, cfg.Metrics),
		maxMessageBytes: maxMessageBytes,
		sendQueueBytes:  sendQueueBytes,
		log:             logger,
		metrics:         cfg.Metrics,
		upgrader: websocket.Upgrader{
			// Any page may open a signaling connection.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) Heartbeat() *Heartbeat { return s.heartbeat }

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /", s)
	mux.HandleFunc("GET /peers/{id}", s.handlePresence)
}

// ServeHTTP upgrades WebSocket requests on any path and answers everything
// else with 404.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.NotFound(w, r)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		s.log.Debug("websocket_upgrade_failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	s.serveConn(ws, r.URL.Query().Get("id"), r.RemoteAddr)
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.registry.Lookup(PeerID(r.PathValue("id"))); !ok {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveConn(ws *websocket.Conn, rawID, remote string) {
	wc := newWSConn(ws, s.sendQueueBytes)

	sess, err := s.gatekeeper.Admit(rawID, wc)
	if err != nil {
		code, reason, ok := CloseCode(err)
		if !ok {
			code, reason = websocket.CloseInternalServerErr, "internal error"
		}
		switch code {
		case CloseMissingID:
			s.metrics.Inc(metrics.PeersRejectedMissingID)
		case CloseIDTaken:
			s.metrics.Inc(metrics.PeersRejectedIDTaken)
		}
		s.log.Debug("peer_rejected", "peer_id", rawID, "remote", remote, "code", code, "reason", reason)
		_ = wc.Close(code, reason)
		return
	}

	s.metrics.Inc(metrics.PeersAdmitted)
	s.log.Info("peer_admitted", "peer_id", sess.ID(), "conn_id", sess.ConnID(), "remote", remote)

	go wc.writeLoop()
	defer s.teardown(sess)

	ws.SetReadLimit(s.maxMessageBytes)
	ws.SetPongHandler(func(string) error {
		sess.MarkAlive()
		return nil
	})

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.log.Debug("peer_read_failed", "peer_id", sess.ID(), "conn_id", sess.ConnID(), "err", err)
			}
			return
		}
		mode, ok := frameMode(msgType)
		if !ok {
			continue
		}
		if res, err := s.router.Route(sess, mode, data); err != nil {
			s.log.Debug("envelope_not_relayed", "peer_id", sess.ID(), "result", res.String(), "err", err)
		}
	}
}

// teardown releases the transport and removes sess from the Registry. Every
// exit path of a connection ends here.
func (s *Server) teardown(sess *Session) {
	_ = sess.Conn().Terminate()
	if s.registry.Teardown(sess) {
		s.metrics.Inc(metrics.PeersDisconnected)
		s.log.Info("peer_disconnected", "peer_id", sess.ID(), "conn_id", sess.ConnID())
	}
}

// Close sends 1001 (going away) to every connected peer and removes them.
func (s *Server) Close() {
	for _, sess := range s.registry.Sessions() {
		_ = sess.close(websocket.CloseGoingAway, "going away", false)
		s.teardown(sess)
	}
}
