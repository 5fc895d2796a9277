package httpserver

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrTLSUnavailable means TLS was requested but cannot be used. Callers fall
// back to plain HTTP and log it.
var ErrTLSUnavailable = errors.New("httpserver: tls unavailable")

// LoadTLSConfig returns nil, nil when neither file is set.
func LoadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	switch {
	case certFile == "" && keyFile == "":
		return nil, nil
	case certFile == "" || keyFile == "":
		return nil, fmt.Errorf("%w: only cert or key provided, need both", ErrTLSUnavailable)
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTLSUnavailable, err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"http/1.1"},
	}, nil
}

// ListenAddr resolves port 0 to the scheme default.
func ListenAddr(host string, port int, secure bool) string {
	if port == 0 {
		port = 80
		if secure {
			port = 443
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
