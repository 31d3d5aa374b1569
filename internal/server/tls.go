package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"resumatch/internal/observability"
)

// configureTLS sets up TLS configuration based on the mode
func (s *Server) configureTLS(httpServer *http.Server, om *observability.Manager) error {
	switch s.TLSConfig.Mode {
	case "server", "mutual":
		tlsConfig, err := s.buildTLSConfig(om)
		if err != nil {
			return fmt.Errorf("failed to set up TLS: %w", err)
		}
		httpServer.TLSConfig = tlsConfig
		s.Logger.Info("TLS enabled",
			"mode", s.TLSConfig.Mode,
			"address", "https://"+httpServer.Addr,
			"auto_reload", s.Reloader != nil)
		return nil
	case "disabled", "":
		s.Logger.Info("TLS disabled", "address", "http://"+httpServer.Addr)
		return nil
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}
}

// buildTLSConfig creates the TLS configuration
func (s *Server) buildTLSConfig(om *observability.Manager) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: s.minTLSVersion(),
	}

	if err := s.configureTLSCertificates(tlsConfig, om); err != nil {
		return nil, err
	}

	if err := s.configureClientAuthentication(tlsConfig); err != nil {
		return nil, err
	}

	return tlsConfig, nil
}

// configureTLSCertificates sets up certificate loading, dynamic when
// file watching is enabled, static otherwise.
func (s *Server) configureTLSCertificates(tlsConfig *tls.Config, om *observability.Manager) error {
	if s.TLSConfig.CertFile == "" || s.TLSConfig.KeyFile == "" {
		return fmt.Errorf("TLS certificate and key files are required")
	}

	if s.TLSConfig.Reload.Enabled {
		reloader, err := NewCertReloader(
			s.TLSConfig.CertFile,
			s.TLSConfig.KeyFile,
			s.TLSConfig.Reload.DebounceDelay,
			om.GetMetrics(),
			s.Logger,
		)
		if err != nil {
			return err
		}
		if err := reloader.Start(); err != nil {
			return fmt.Errorf("failed to start certificate reloader: %w", err)
		}
		s.Reloader = reloader
		tlsConfig.GetCertificate = reloader.GetCertificate
		return nil
	}

	cert, err := tls.LoadX509KeyPair(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key: %w", err)
	}
	tlsConfig.Certificates = []tls.Certificate{cert}
	return nil
}

// minTLSVersion maps the configured minimum version string.
func (s *Server) minTLSVersion() uint16 {
	switch s.TLSConfig.MinVersion {
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}

// configureClientAuthentication sets up client authentication for mutual TLS
func (s *Server) configureClientAuthentication(tlsConfig *tls.Config) error {
	if s.TLSConfig.Mode != "mutual" {
		tlsConfig.ClientAuth = tls.NoClientCert
		return nil
	}

	caCertPool, err := s.loadCACertificatePool()
	if err != nil {
		return err
	}

	tlsConfig.ClientCAs = caCertPool
	tlsConfig.ClientAuth = s.clientAuthPolicy()

	return nil
}

// loadCACertificatePool loads the CA certificate pool for client verification
func (s *Server) loadCACertificatePool() (*x509.CertPool, error) {
	if s.TLSConfig.CAFile == "" {
		return nil, fmt.Errorf("CA certificate file is required for mutual TLS mode")
	}

	caCert, err := os.ReadFile(s.TLSConfig.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("failed to append CA cert")
	}

	return caCertPool, nil
}

// clientAuthPolicy returns the appropriate client authentication policy
func (s *Server) clientAuthPolicy() tls.ClientAuthType {
	switch s.TLSConfig.ClientAuthPolicy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
