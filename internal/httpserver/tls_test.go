package httpserver

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSelfSignedCert(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return certFile, keyFile
}

func TestLoadTLSConfig(t *testing.T) {
	certFile, keyFile := writeSelfSignedCert(t)

	t.Run("none", func(t *testing.T) {
		cfg, err := LoadTLSConfig("", "")
		if cfg != nil || err != nil {
			t.Fatalf("LoadTLSConfig=%v,%v, want nil,nil", cfg, err)
		}
	})

	t.Run("valid pair", func(t *testing.T) {
		cfg, err := LoadTLSConfig(certFile, keyFile)
		if err != nil {
			t.Fatalf("LoadTLSConfig: %v", err)
		}
		if len(cfg.Certificates) != 1 || cfg.MinVersion != tls.VersionTLS12 {
			t.Fatalf("unexpected tls config: %+v", cfg)
		}
	})

	t.Run("only one file", func(t *testing.T) {
		for _, pair := range [][2]string{{certFile, ""}, {"", keyFile}} {
			if _, err := LoadTLSConfig(pair[0], pair[1]); !errors.Is(err, ErrTLSUnavailable) {
				t.Fatalf("err=%v, want %v", err, ErrTLSUnavailable)
			}
		}
	})

	t.Run("unreadable", func(t *testing.T) {
		if _, err := LoadTLSConfig(filepath.Join(t.TempDir(), "nope.pem"), keyFile); !errors.Is(err, ErrTLSUnavailable) {
			t.Fatalf("err=%v, want %v", err, ErrTLSUnavailable)
		}
	})
}

func TestListenAddr(t *testing.T) {
	cases := []struct {
		host   string
		port   int
		secure bool
		want   string
	}{
		{"", 0, false, ":80"},
		{"", 0, true, ":443"},
		{"127.0.0.1", 8080, true, "127.0.0.1:8080"},
		{"::1", 0, false, "[::1]:80"},
	}
	for _, c := range cases {
		if got := ListenAddr(c.host, c.port, c.secure); got != c.want {
			t.Fatalf("ListenAddr(%q,%d,%v)=%q, want %q", c.host, c.port, c.secure, got, c.want)
		}
	}
}
