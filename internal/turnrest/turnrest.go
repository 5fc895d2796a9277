package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// This package issues time-limited TURN REST credentials that a coturn server
// configured with the same shared secret (use-auth-secret) accepts.
//
// See https://datatracker.ietf.org/doc/html/draft-uberti-behave-turn-rest
//
//	username = <unix_expiry_timestamp>:<realm>
//	password = base64(hmac_sha1(shared_secret, username))
//
// unix_expiry_timestamp = now_utc_unix + ttl_seconds

const (
	DefaultRealm = "listentogether"
	DefaultTTL   = 24 * time.Hour
)

var ErrNoSharedSecret = errors.New("turnrest: shared secret is required")

type GeneratorConfig struct {
	SharedSecret string
	// TTL is rounded down to whole seconds. Zero means DefaultTTL.
	TTL time.Duration
	// Realm is the username suffix. Empty means DefaultRealm.
	Realm string
	Now   func() time.Time
}

type Generator struct {
	sharedSecret []byte
	ttlSeconds   int64
	realm        string
	now          func() time.Time
}

func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.SharedSecret == "" {
		return nil, ErrNoSharedSecret
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	ttlSeconds := int64(cfg.TTL / time.Second)
	if ttlSeconds <= 0 {
		return nil, fmt.Errorf("turnrest: TTL must be at least 1s, got %s", cfg.TTL)
	}
	if cfg.Realm == "" {
		cfg.Realm = DefaultRealm
	}
	if strings.Contains(cfg.Realm, ":") {
		return nil, errors.New("turnrest: realm must not contain ':'")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Generator{
		sharedSecret: []byte(cfg.SharedSecret),
		ttlSeconds:   ttlSeconds,
		realm:        cfg.Realm,
		now:          cfg.Now,
	}, nil
}

// Credentials is the JSON body of the credential endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TTL      int64  `json:"ttl"`
}

func (g *Generator) TTLSeconds() int64 { return g.ttlSeconds }

// Generate issues credentials that expire TTL seconds from now.
func (g *Generator) Generate() Credentials {
	expiryUnix := g.now().UTC().Unix() + g.ttlSeconds
	username := fmt.Sprintf("%d:%s", expiryUnix, g.realm)
	return Credentials{
		Username: username,
		Password: signUsername(g.sharedSecret, username),
		TTL:      g.ttlSeconds,
	}
}

func signUsername(sharedSecret []byte, username string) string {
	mac := hmac.New(sha1.New, sharedSecret)
	_, _ = mac.Write([]byte(username))
	sum := mac.Sum(nil)
	return base64.StdEncoding.EncodeToString(sum)
}
