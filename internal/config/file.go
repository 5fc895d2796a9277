package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileKeys maps YAML keys (the flag names) to the env var they stand in for.
var fileKeys = map[string]string{
	"listen-host":          envVarListenHost,
	"port":                 envVarPort,
	"cert":                 envVarCert,
	"key":                  envVarKey,
	"turn-secret":          envVarTURNSecret,
	"allowed-turn-origins": envVarAllowedTURNOrigins,
	"turn-realm":           envVarTURNRealm,
	"turn-ttl":             envVarTURNTTL,
	"ice-servers-json":     envICEServersJSON,
	"stun-urls":            envStunURLs,
	"turn-urls":            envTurnURLs,
	"turn-username":        envTurnUsername,
	"turn-credential":      envTurnCredential,
	"heartbeat-interval":   envVarHeartbeatInterval,
	"max-message-bytes":    envVarMaxMessageBytes,
	"send-queue-bytes":     envVarSendQueueBytes,
	"mode":                 envVarMode,
	"log-format":           envVarLogFormat,
	"log-level":            envVarLogLevel,
	"shutdown-timeout":     envVarShutdownTimeout,
}

// readFile loads a YAML config file and returns its values keyed by env var
// name. ${VAR} references are expanded through lookup before parsing. Lists
// become comma-separated strings.
func readFile(path string, lookup func(string) (string, bool)) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		v, _ := lookup(key)
		return v
	})

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	out := make(map[string]string, len(raw))
	var unknown []string
	for key, value := range raw {
		envKey, ok := fileKeys[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		s, err := yamlScalar(value)
		if err != nil {
			return nil, fmt.Errorf("config file key %q: %w", key, err)
		}
		out[envKey] = s
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(unknown, ", "))
	}
	return out, nil
}

func yamlScalar(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, err := yamlScalar(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	case map[string]any:
		return "", fmt.Errorf("nested mappings are not supported")
	default:
		return fmt.Sprint(v), nil
	}
}

// layered resolves keys from lookup first and falls back to file values.
func layered(lookup func(string) (string, bool), file map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok && v != "" {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}
}

// configPathFromArgs finds --config before the full flag set is parsed.
func configPathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return ""
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg || len(arg)-len(name) > 2 {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
