package config

import (
	"crypto/tls"
	"time"

	"github.com/yndnr/kvwire-go/internal/core/domain"
	"github.com/yndnr/kvwire-go/internal/infra/tlsroots"
	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
)

// EndpointTarget returns the validated endpoint.
func (c *ClientConfig) EndpointTarget() (domain.Endpoint, error) {
	return domain.NewEndpoint(c.Endpoint.Host, c.Endpoint.Port, c.Endpoint.TLS)
}

// BuildTLSConfig assembles the client TLS config. It returns nil for a
// plain endpoint. When a client certificate is configured the returned
// watcher serves it and must be stopped by the caller.
func (c *ClientConfig) BuildTLSConfig(log logger.Logger) (*tls.Config, *tlsroots.Watcher, error) {
	if !c.Endpoint.TLS {
		return nil, nil, nil
	}

	var pool *tlsroots.Pool
	if c.TLS.SystemRoots {
		pool = tlsroots.NewSystemPool()
	} else {
		pool = tlsroots.NewEmptyPool()
	}
	if c.TLS.CAFile != "" {
		if err := pool.AddCertFile(c.TLS.CAFile); err != nil {
			return nil, nil, domain.ErrInvalidConfig.WithDetails("tls.ca_file").WithCause(err)
		}
	}
	if c.TLS.CADir != "" {
		if err := pool.AddCertDir(c.TLS.CADir); err != nil {
			return nil, nil, domain.ErrInvalidConfig.WithDetails("tls.ca_dir").WithCause(err)
		}
	}

	for _, a := range pool.Expired(time.Now()) {
		log.Warn("trusted root has expired", "subject", a.Subject, "not_after", a.NotAfter, "source", a.Source)
	}

	cfg := pool.ClientTLSConfig(c.TLS.ServerName)
	if c.TLS.InsecureSkipVerify {
		log.Warn("tls certificate verification disabled")
		cfg.InsecureSkipVerify = true
	}

	if c.TLS.CertFile == "" {
		return cfg, nil, nil
	}
	w, err := tlsroots.NewWatcher(c.TLS.CertFile, c.TLS.KeyFile, tlsroots.WithLogger(log))
	if err != nil {
		return nil, nil, domain.ErrInvalidConfig.WithDetails("tls.cert_file").WithCause(err)
	}
	cfg.GetClientCertificate = w.GetClientCertificate
	return cfg, w, nil
}
