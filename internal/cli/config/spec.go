// Package config defines the kvwire client configuration: where to
// connect, how long to wait, and which certificate material to trust.
package config

import (
	"time"

	"github.com/yndnr/kvwire-go/internal/transport/socket"
)

// ClientConfig is the root configuration for kvwire-cli.
type ClientConfig struct {
	Endpoint EndpointSection `koanf:"endpoint" yaml:"endpoint" json:"endpoint"`
	Timeouts TimeoutSection  `koanf:"timeouts" yaml:"timeouts" json:"timeouts"`
	TLS      TLSSection      `koanf:"tls" yaml:"tls" json:"tls"`
	Log      LogSection      `koanf:"log" yaml:"log" json:"log"`
	Metrics  MetricsSection  `koanf:"metrics" yaml:"metrics" json:"metrics"`
	Output   string          `koanf:"output" yaml:"output" json:"output"` // table, json, yaml
}

// EndpointSection is the target server.
type EndpointSection struct {
	Host string `koanf:"host" yaml:"host" json:"host"`
	Port int    `koanf:"port" yaml:"port" json:"port"`
	TLS  bool   `koanf:"tls" yaml:"tls" json:"tls"`
}

// TimeoutSection bounds each phase of a connection.
type TimeoutSection struct {
	Connect   time.Duration `koanf:"connect" yaml:"connect" json:"connect"`
	Handshake time.Duration `koanf:"handshake" yaml:"handshake" json:"handshake"`
	Request   time.Duration `koanf:"request" yaml:"request" json:"request"`
}

// TLSSection is the trusted certificate material.
type TLSSection struct {
	CAFile             string `koanf:"ca_file" yaml:"ca_file,omitempty" json:"ca_file,omitempty"`
	CADir              string `koanf:"ca_dir" yaml:"ca_dir,omitempty" json:"ca_dir,omitempty"`
	SystemRoots        bool   `koanf:"system_roots" yaml:"system_roots" json:"system_roots"`
	ServerName         string `koanf:"server_name" yaml:"server_name,omitempty" json:"server_name,omitempty"`
	CertFile           string `koanf:"cert_file" yaml:"cert_file,omitempty" json:"cert_file,omitempty"`
	KeyFile            string `koanf:"key_file" yaml:"key_file,omitempty" json:"key_file,omitempty"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify" yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}

// MetricsSection configures the Prometheus endpoint served by long-running
// commands. An empty Addr disables it.
type MetricsSection struct {
	Addr string `koanf:"addr" yaml:"addr,omitempty" json:"addr,omitempty"`
}

// Default returns the default client configuration.
func Default() *ClientConfig {
	return &ClientConfig{
		Endpoint: EndpointSection{
			Host: "localhost",
			Port: 8123,
		},
		Timeouts: TimeoutSection{
			Connect:   socket.DefaultConnectTimeout,
			Handshake: socket.DefaultHandshakeTimeout,
			Request:   5 * time.Second,
		},
		TLS: TLSSection{
			SystemRoots: true,
		},
		Log: LogSection{
			Level:  "warn",
			Format: "text",
		},
		Output: "table",
	}
}
