package icinga2

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
)

// buildTLSConfig assembles the client TLS configuration from the session
// config. A client certificate pair is loaded when configured. When no CA
// bundle is given, server verification is skipped: Icinga ships a private CA
// and the original behavior is to trust the endpoint unless a bundle is
// provided.
func buildTLSConfig(cfg Config) (*tls.Config, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("base URL missing hostname")
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: parsed.Hostname(),
	}

	if cfg.CertFile != "" {
		keyFile := cfg.KeyFile
		if keyFile == "" {
			// certificate and key may live in the same file
			keyFile = cfg.CertFile
		}
		certificate, err := tls.LoadX509KeyPair(cfg.CertFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{certificate}
	}

	if cfg.CAFile != "" {
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA bundle: %w", err)
		}
		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("invalid CA bundle %q", cfg.CAFile)
		}
		tlsConfig.RootCAs = roots
	} else {
		tlsConfig.InsecureSkipVerify = true
	}

	return tlsConfig, nil
}
