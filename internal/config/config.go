package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/origin"
)

const (
	envVarConfigPath      = "SIGNALING_RELAY_CONFIG"
	envVarListenHost      = "SIGNALING_RELAY_LISTEN_HOST"
	envVarPort            = "SIGNALING_RELAY_PORT"
	envVarCert            = "SIGNALING_RELAY_CERT"
	envVarKey             = "SIGNALING_RELAY_KEY"
	envVarLogFormat       = "SIGNALING_RELAY_LOG_FORMAT"
	envVarLogLevel        = "SIGNALING_RELAY_LOG_LEVEL"
	envVarShutdownTimeout = "SIGNALING_RELAY_SHUTDOWN_TIMEOUT"
	envVarMode            = "SIGNALING_RELAY_MODE"

	envVarTURNSecret         = "TURN_SECRET"
	envVarAllowedTURNOrigins = "ALLOWED_TURN_ORIGINS"
	envVarTURNRealm          = "TURN_REALM"
	envVarTURNTTL            = "TURN_TTL"

	envVarHeartbeatInterval = "HEARTBEAT_INTERVAL"
	envVarMaxMessageBytes   = "MAX_MESSAGE_BYTES"
	envVarSendQueueBytes    = "SEND_QUEUE_BYTES"
)

const (
	DefaultMode              = ModeDev
	DefaultShutdown          = 15 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultMaxMessageBytes   = 64 * 1024
	DefaultSendQueueBytes    = 1 << 20
	DefaultTURNRealm         = "listentogether"
	DefaultTURNTTL           = 24 * time.Hour
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// TURNConfig controls the TURN REST credential issuer.
type TURNConfig struct {
	Secret string
	Realm  string
	TTL    time.Duration
	// AllowedOrigins holds normalized origins or "*". Empty denies every
	// browser.
	AllowedOrigins []string
}

func (c TURNConfig) Enabled() bool {
	return strings.TrimSpace(c.Secret) != ""
}

type Config struct {
	// ConfigPath is the YAML file the settings were layered on, if any.
	ConfigPath string

	ListenHost string
	// Port 0 means the scheme default (443 with TLS, 80 without).
	Port     int
	CertFile string
	KeyFile  string

	TURN       TURNConfig
	ICEServers []webrtc.ICEServer

	HeartbeatInterval time.Duration
	MaxMessageBytes   int64
	SendQueueBytes    int

	Mode            Mode
	LogFormat       LogFormat
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
}

// TLSRequested reports whether a certificate or key was configured.
func (c Config) TLSRequested() bool {
	return c.CertFile != "" || c.KeyFile != ""
}

func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	configPath := configPathFromArgs(args)
	if configPath == "" {
		configPath = envOrDefault(lookup, envVarConfigPath, "")
	}
	if configPath != "" {
		fileValues, err := readFile(configPath, lookup)
		if err != nil {
			return Config{}, err
		}
		lookup = layered(lookup, fileValues)
	}

	envMode, _ := lookup(envVarMode)
	modeDefault := string(DefaultMode)
	if envMode != "" {
		modeDefault = envMode
	}

	envLogFormat, envLogFormatOK := lookup(envVarLogFormat)
	envLogFormatSet := envLogFormatOK && envLogFormat != ""
	logFormatDefault := envLogFormat
	if !envLogFormatSet {
		logFormatDefault = defaultLogFormatForMode(modeDefault)
	}

	envLogLevel, envLogLevelOK := lookup(envVarLogLevel)
	envLogLevelSet := envLogLevelOK && envLogLevel != ""
	logLevelDefault := envLogLevel
	if !envLogLevelSet {
		logLevelDefault = defaultLogLevelForMode(modeDefault)
	}

	listenHost := envOrDefault(lookup, envVarListenHost, "")
	port, err := envIntOrDefault(lookup, envVarPort, 0)
	if err != nil {
		return Config{}, err
	}
	certFile := envOrDefault(lookup, envVarCert, "")
	keyFile := envOrDefault(lookup, envVarKey, "")

	turnSecret := envOrDefault(lookup, envVarTURNSecret, "")
	allowedTURNOriginsStr := envOrDefault(lookup, envVarAllowedTURNOrigins, "")
	turnRealm := envOrDefault(lookup, envVarTURNRealm, DefaultTURNRealm)
	turnTTL, err := envDurationOrDefault(lookup, envVarTURNTTL, DefaultTURNTTL)
	if err != nil {
		return Config{}, err
	}

	ice := iceSource{
		serversJSON:    envOrDefault(lookup, envICEServersJSON, ""),
		stunURLs:       envOrDefault(lookup, envStunURLs, ""),
		turnURLs:       envOrDefault(lookup, envTurnURLs, ""),
		turnUsername:   envOrDefault(lookup, envTurnUsername, ""),
		turnCredential: envOrDefault(lookup, envTurnCredential, ""),
	}

	heartbeatInterval, err := envDurationOrDefault(lookup, envVarHeartbeatInterval, DefaultHeartbeatInterval)
	if err != nil {
		return Config{}, err
	}
	maxMessageBytes, err := envIntOrDefault(lookup, envVarMaxMessageBytes, DefaultMaxMessageBytes)
	if err != nil {
		return Config{}, err
	}
	sendQueueBytes, err := envIntOrDefault(lookup, envVarSendQueueBytes, DefaultSendQueueBytes)
	if err != nil {
		return Config{}, err
	}
	shutdownTimeout, err := envDurationOrDefault(lookup, envVarShutdownTimeout, DefaultShutdown)
	if err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("signaling-relay", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		modeStr      string
		logFormatStr string
		logLevelStr  string
		ignoredPath  string
	)
	fs.StringVar(&ignoredPath, "config", configPath, "YAML config file layered below env and flags (env "+envVarConfigPath+")")
	fs.StringVar(&listenHost, "listen-host", listenHost, "Host/IP to listen on; empty listens on all interfaces (env "+envVarListenHost+")")
	fs.IntVar(&port, "port", port, "Port to listen on; 0 means 443 with TLS and 80 without (env "+envVarPort+")")
	fs.StringVar(&certFile, "cert", certFile, "TLS certificate file (PEM) (env "+envVarCert+")")
	fs.StringVar(&keyFile, "key", keyFile, "TLS private key file (PEM) (env "+envVarKey+")")
	fs.StringVar(&turnSecret, "turn-secret", turnSecret, "TURN REST shared secret; empty disables credential issuing (env "+envVarTURNSecret+")")
	fs.StringVar(&allowedTURNOriginsStr, "allowed-turn-origins", allowedTURNOriginsStr, "Comma-separated origins allowed to fetch TURN credentials (env "+envVarAllowedTURNOrigins+")")
	fs.StringVar(&turnRealm, "turn-realm", turnRealm, "Suffix of issued TURN usernames (env "+envVarTURNRealm+")")
	fs.DurationVar(&turnTTL, "turn-ttl", turnTTL, "Lifetime of issued TURN credentials (env "+envVarTURNTTL+")")
	fs.StringVar(&ice.serversJSON, "ice-servers-json", ice.serversJSON, "ICE server JSON config ("+envICEServersJSON+")")
	fs.StringVar(&ice.stunURLs, "stun-urls", ice.stunURLs, "comma-separated STUN URLs ("+envStunURLs+")")
	fs.StringVar(&ice.turnURLs, "turn-urls", ice.turnURLs, "comma-separated TURN URLs ("+envTurnURLs+")")
	fs.StringVar(&ice.turnUsername, "turn-username", ice.turnUsername, "static TURN username ("+envTurnUsername+")")
	fs.StringVar(&ice.turnCredential, "turn-credential", ice.turnCredential, "static TURN credential ("+envTurnCredential+")")
	fs.DurationVar(&heartbeatInterval, "heartbeat-interval", heartbeatInterval, "Ping period; silent peers are dropped after one to two periods (env "+envVarHeartbeatInterval+")")
	fs.IntVar(&maxMessageBytes, "max-message-bytes", maxMessageBytes, "Max inbound WebSocket message size in bytes (env "+envVarMaxMessageBytes+")")
	fs.IntVar(&sendQueueBytes, "send-queue-bytes", sendQueueBytes, "Max queued outbound bytes per peer before dropping (env "+envVarSendQueueBytes+")")
	fs.StringVar(&modeStr, "mode", modeDefault, "Run mode: dev or prod")
	fs.StringVar(&logFormatStr, "log-format", logFormatDefault, "Log format: text or json")
	fs.StringVar(&logLevelStr, "log-level", logLevelDefault, "Log level: debug, info, warn, error")
	fs.DurationVar(&shutdownTimeout, "shutdown-timeout", shutdownTimeout, "Graceful shutdown timeout (e.g. 15s)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	mode, err := parseMode(modeStr)
	if err != nil {
		return Config{}, err
	}

	setFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	// --mode picks that mode's log defaults unless format or level were set.
	if setFlags["mode"] {
		if !setFlags["log-format"] && !envLogFormatSet {
			logFormatStr = defaultLogFormatForMode(string(mode))
		}
		if !setFlags["log-level"] && !envLogLevelSet {
			logLevelStr = defaultLogLevelForMode(string(mode))
		}
	}

	logFormat, err := parseLogFormat(logFormatStr)
	if err != nil {
		return Config{}, err
	}
	logLevel, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	if port < 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d (expected 0-65535)", port)
	}
	if heartbeatInterval <= 0 {
		return Config{}, fmt.Errorf("heartbeat interval must be > 0 (got %s)", heartbeatInterval)
	}
	if maxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("max message bytes must be > 0 (got %d)", maxMessageBytes)
	}
	if sendQueueBytes <= 0 {
		return Config{}, fmt.Errorf("send queue bytes must be > 0 (got %d)", sendQueueBytes)
	}
	if shutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("shutdown timeout must be > 0 (got %s)", shutdownTimeout)
	}
	if turnTTL < time.Second {
		return Config{}, fmt.Errorf("TURN TTL must be at least 1s (got %s)", turnTTL)
	}
	turnRealm = strings.TrimSpace(turnRealm)
	if turnRealm == "" || strings.Contains(turnRealm, ":") {
		return Config{}, fmt.Errorf("invalid TURN realm %q (must be non-empty and contain no ':')", turnRealm)
	}

	allowedTURNOrigins, err := parseAllowedOrigins(allowedTURNOriginsStr)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", envVarAllowedTURNOrigins, err)
	}

	turnSecret = strings.TrimSpace(turnSecret)
	iceServers, err := parseICEServers(ice, turnSecret != "")
	if err != nil {
		return Config{}, err
	}

	return Config{
		ConfigPath:        configPath,
		ListenHost:        strings.TrimSpace(listenHost),
		Port:              port,
		CertFile:          strings.TrimSpace(certFile),
		KeyFile:           strings.TrimSpace(keyFile),
		ICEServers:        iceServers,
		HeartbeatInterval: heartbeatInterval,
		MaxMessageBytes:   int64(maxMessageBytes),
		SendQueueBytes:    sendQueueBytes,
		Mode:              mode,
		LogFormat:         logFormat,
		LogLevel:          logLevel,
		ShutdownTimeout:   shutdownTimeout,
		TURN: TURNConfig{
			Secret:         turnSecret,
			Realm:          turnRealm,
			TTL:            turnTTL,
			AllowedOrigins: allowedTURNOrigins,
		},
	}, nil
}

func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return slog.New(handler), nil
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func defaultLogFormatForMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeProd), "production":
		return string(LogFormatJSON)
	default:
		return string(LogFormatText)
	}
}

func defaultLogLevelForMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeProd), "production":
		return "info"
	default:
		return "debug"
	}
}

func parseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ModeDev), "development":
		return ModeDev, nil
	case string(ModeProd), "production":
		return ModeProd, nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected dev or prod)", raw)
	}
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("invalid log format %q (expected text or json)", raw)
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn, error)", raw)
	}
}

func parseAllowedOrigins(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var out []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if entry == origin.Wildcard {
			out = append(out, entry)
			continue
		}
		normalized, ok := origin.NormalizeHeader(entry)
		if !ok {
			return nil, fmt.Errorf("invalid origin %q (expected full origin like https://example.com)", entry)
		}
		out = append(out, normalized)
	}
	return out, nil
}
