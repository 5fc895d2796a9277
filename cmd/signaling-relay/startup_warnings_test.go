package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/config"
)

type recordedLog struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

type recordingHandler struct {
	mu      *sync.Mutex
	records *[]recordedLog
	attrs   []slog.Attr
	groups  []string
}

func newRecordingLogger() (*slog.Logger, func() []recordedLog) {
	mu := &sync.Mutex{}
	records := &[]recordedLog{}
	h := &recordingHandler{mu: mu, records: records}
	return slog.New(h), func() []recordedLog {
		mu.Lock()
		defer mu.Unlock()
		out := make([]recordedLog, len(*records))
		copy(out, *records)
		return out
	}
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	rec := recordedLog{
		level: r.Level,
		msg:   r.Message,
		attrs: map[string]any{},
	}
	for _, a := range h.attrs {
		rec.attrs[h.key(a.Key)] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.attrs[h.key(a.Key)] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	nh.attrs = append(nh.attrs, attrs...)
	return nh
}

func (h *recordingHandler) WithGroup(name string) slog.Handler {
	nh := h.clone()
	nh.groups = append(nh.groups, name)
	return nh
}

func (h *recordingHandler) clone() *recordingHandler {
	return &recordingHandler{
		mu:      h.mu,
		records: h.records,
		attrs:   append([]slog.Attr(nil), h.attrs...),
		groups:  append([]string(nil), h.groups...),
	}
}

func (h *recordingHandler) key(k string) string {
	if len(h.groups) == 0 {
		return k
	}
	return strings.Join(h.groups, ".") + "." + k
}

func warningCodes(records []recordedLog) map[string]bool {
	out := map[string]bool{}
	for _, r := range records {
		if r.level != slog.LevelWarn {
			continue
		}
		if code, ok := r.attrs["warning_code"].(string); ok {
			out[code] = true
		}
	}
	return out
}

func safeConfig() config.Config {
	return config.Config{
		Mode:     config.ModeProd,
		CertFile: "cert.pem",
		KeyFile:  "key.pem",
		TURN: config.TURNConfig{
			Secret:         "secret",
			Realm:          config.DefaultTURNRealm,
			TTL:            24 * time.Hour,
			AllowedOrigins: []string{"https://app.example.com"},
		},
	}
}

func TestStartupWarnings_SafeConfigIsQuiet(t *testing.T) {
	logger, records := newRecordingLogger()

	logStartupWarnings(logger, safeConfig(), nil)

	if codes := warningCodes(records()); len(codes) != 0 {
		t.Fatalf("unexpected warnings: %v", codes)
	}
}

func TestStartupWarnings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		tlsErr error
		want   string
	}{
		{
			name:   "turn secret unset",
			mutate: func(c *config.Config) { c.TURN.Secret = "" },
			want:   "turn_secret_unset",
		},
		{
			name: "turn servers without secret",
			mutate: func(c *config.Config) {
				c.TURN.Secret = ""
				c.ICEServers = []webrtc.ICEServer{{URLs: []string{"turn:turn.example.com:3478"}}}
			},
			want: "turn_servers_without_secret",
		},
		{
			name:   "empty allow-list",
			mutate: func(c *config.Config) { c.TURN.AllowedOrigins = nil },
			want:   "allowed_turn_origins_empty",
		},
		{
			name:   "wildcard origin",
			mutate: func(c *config.Config) { c.TURN.AllowedOrigins = []string{"*"} },
			want:   "allowed_turn_origins_wildcard",
		},
		{
			name:   "tls fallback",
			mutate: func(c *config.Config) {},
			tlsErr: errors.New("boom"),
			want:   "tls_fallback",
		},
		{
			name: "plain http in prod",
			mutate: func(c *config.Config) {
				c.CertFile = ""
				c.KeyFile = ""
			},
			want: "tls_disabled_in_prod",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, records := newRecordingLogger()
			cfg := safeConfig()
			tc.mutate(&cfg)

			logStartupWarnings(logger, cfg, tc.tlsErr)

			codes := warningCodes(records())
			if !codes[tc.want] {
				t.Fatalf("expected warning_code=%s, got %v", tc.want, codes)
			}
		})
	}
}

func TestStartupWarnings_PlainHTTPInDevIsQuiet(t *testing.T) {
	logger, records := newRecordingLogger()
	cfg := safeConfig()
	cfg.Mode = config.ModeDev
	cfg.CertFile = ""
	cfg.KeyFile = ""

	logStartupWarnings(logger, cfg, nil)

	if codes := warningCodes(records()); codes["tls_disabled_in_prod"] {
		t.Fatalf("unexpected tls warning in dev: %v", codes)
	}
}
