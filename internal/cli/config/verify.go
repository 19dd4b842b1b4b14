package config

import (
	"fmt"
	"net"

	"github.com/yndnr/kvwire-go/internal/core/domain"
)

// Verify validates the configuration.
func Verify(cfg *ClientConfig) error {
	if _, err := cfg.EndpointTarget(); err != nil {
		return err
	}
	if err := verifyTimeouts(&cfg.Timeouts); err != nil {
		return err
	}
	if err := verifyTLS(&cfg.TLS); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			return invalid("metrics.addr %q: %v", cfg.Metrics.Addr, err)
		}
	}

	switch cfg.Output {
	case "table", "json", "yaml":
	default:
		return invalid("output must be table, json or yaml, got %q", cfg.Output)
	}
	return nil
}

func verifyTimeouts(t *TimeoutSection) error {
	if t.Connect <= 0 {
		return invalid("timeouts.connect must be positive")
	}
	if t.Handshake <= 0 {
		return invalid("timeouts.handshake must be positive")
	}
	if t.Request < 0 {
		return invalid("timeouts.request must not be negative")
	}
	return nil
}

func verifyTLS(t *TLSSection) error {
	if (t.CertFile == "") != (t.KeyFile == "") {
		return invalid("tls.cert_file and tls.key_file must be set together")
	}
	return nil
}

func verifyLog(l *LogSection) error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be debug, info, warn or error, got %q", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", l.Format)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return domain.ErrInvalidConfig.WithDetails(fmt.Sprintf(format, args...))
}
