package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/kbukum/workerbridge/errors"
)

// TLSConfig holds TLS settings.
type TLSConfig struct {
	// SkipVerify disables server certificate verification when dialing.
	SkipVerify bool   `yaml:"skip_verify" mapstructure:"skip_verify"`
	CAFile     string `yaml:"ca_file" mapstructure:"ca_file"`
	CertFile   string `yaml:"cert_file" mapstructure:"cert_file" validate:"required_with=KeyFile"`
	KeyFile    string `yaml:"key_file" mapstructure:"key_file" validate:"required_with=CertFile"`
	ServerName string `yaml:"server_name" mapstructure:"server_name"`
	// MinVersion defaults to TLS 1.2.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// IsEnabled reports whether any setting is present.
func (c *TLSConfig) IsEnabled() bool {
	return c != nil && (c.SkipVerify || c.CAFile != "" || c.CertFile != "" || c.ServerName != "")
}

// ServesTLS reports whether a listener should terminate TLS.
func (c *TLSConfig) ServesTLS() bool {
	return c != nil && c.CertFile != ""
}

// Validate checks that cert and key come together.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return errors.InvalidInput("tls", "cert_file and key_file must be set together")
	}
	return nil
}

// Build returns a client config, or nil when nothing is configured.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in for development
		ServerName:         c.ServerName,
		MinVersion:         c.minVersion(),
	}
	if c.CAFile != "" {
		pool, err := loadPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("security/tls: load certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// BuildServer returns a listener config, or nil when no certificate is
// configured.
func (c *TLSConfig) BuildServer() (*tls.Config, error) {
	if !c.ServesTLS() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("security/tls: load certificate: %w", err)
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   c.minVersion(),
		NextProtos:   []string{"http/1.1"},
	}
	if c.CAFile != "" {
		pool, err := loadPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

func (c *TLSConfig) minVersion() uint16 {
	if c.MinVersion == 0 {
		return tls.VersionTLS12
	}
	return c.MinVersion
}

func loadPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("security/tls: read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("security/tls: no certificates in %s", path)
	}
	return pool, nil
}
