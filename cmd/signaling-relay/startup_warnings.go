package main

import (
	"log/slog"
	"slices"

	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/config"
	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/origin"
)

func logStartupWarnings(logger *slog.Logger, cfg config.Config, tlsErr error) {
	if logger == nil {
		logger = slog.Default()
	}

	if !cfg.TURN.Enabled() {
		logger.Warn("startup warning: TURN_SECRET is unset; /turn_credentials answers 503",
			"warning_code", "turn_secret_unset",
			"mode", cfg.Mode,
		)
		if hasTURNServer(cfg) {
			logger.Warn("startup warning: TURN servers are configured without TURN_SECRET; clients get them without credentials",
				"warning_code", "turn_servers_without_secret",
				"mode", cfg.Mode,
			)
		}
	}

	if cfg.TURN.Enabled() && len(cfg.TURN.AllowedOrigins) == 0 {
		logger.Warn("startup warning: ALLOWED_TURN_ORIGINS is empty; every browser gets 403 from /turn_credentials",
			"warning_code", "allowed_turn_origins_empty",
			"mode", cfg.Mode,
		)
	}

	if slices.Contains(cfg.TURN.AllowedOrigins, origin.Wildcard) {
		logger.Warn("startup security warning: ALLOWED_TURN_ORIGINS contains '*' (any page can mint TURN credentials)",
			"warning_code", "allowed_turn_origins_wildcard",
			"allowed_turn_origins", cfg.TURN.AllowedOrigins,
			"mode", cfg.Mode,
		)
	}

	if tlsErr != nil {
		logger.Warn("startup security warning: tls was requested but is unavailable; serving plain http",
			"warning_code", "tls_fallback",
			"cert_file", cfg.CertFile,
			"key_file", cfg.KeyFile,
			"mode", cfg.Mode,
		)
	} else if cfg.Mode == config.ModeProd && !cfg.TLSRequested() {
		logger.Warn("startup security warning: no tls certificate configured while --mode=prod",
			"warning_code", "tls_disabled_in_prod",
			"mode", cfg.Mode,
		)
	}
}

func hasTURNServer(cfg config.Config) bool {
	for _, server := range cfg.ICEServers {
		if config.IsTURNServer(server) {
			return true
		}
	}
	return false
}
