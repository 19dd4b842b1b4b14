package confloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testConfig struct {
	Endpoint struct {
		Host string `koanf:"host"`
		Port int    `koanf:"port"`
		TLS  bool   `koanf:"tls"`
	} `koanf:"endpoint"`
	TLS struct {
		CAFile string `koanf:"ca_file"`
	} `koanf:"tls"`
	Timeouts struct {
		Connect time.Duration `koanf:"connect"`
	} `koanf:"timeouts"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kvwire.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/etc/kvwire.yaml"))
	if l.envPrefix != "TEST_" || l.filePath != "/etc/kvwire.yaml" {
		t.Errorf("options not applied: %+v", l)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"KVWIRE_ENDPOINT_HOST", "endpoint.host"},
		{"KVWIRE_TLS_CA_FILE", "tls.ca_file"},
		{"KVWIRE_TLS_INSECURE_SKIP_VERIFY", "tls.insecure_skip_verify"},
		{"KVWIRE_METRICS", ""},
		{"KVWIRE_CONFIG", ""},
		{"KVWIRE__HOST", ""},
	}
	for _, tt := range tests {
		if got := EnvKey("KVWIRE_", tt.name); got != tt.want {
			t.Errorf("EnvKey(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  host: storage.local
  port: 8443
  tls: true
timeouts:
  connect: 3s
`)

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint.Host != "storage.local" || cfg.Endpoint.Port != 8443 || !cfg.Endpoint.TLS {
		t.Errorf("endpoint = %+v", cfg.Endpoint)
	}
	if cfg.Timeouts.Connect != 3*time.Second {
		t.Errorf("timeouts.connect = %v, want 3s", cfg.Timeouts.Connect)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	var cfg testConfig
	err := NewLoader(WithConfigFile("/nonexistent/kvwire.yaml")).Load(&cfg)
	if err == nil || !strings.Contains(err.Error(), "/nonexistent/kvwire.yaml") {
		t.Errorf("Load() error = %v, want one naming the file", err)
	}
}

func TestLoader_BadYAML(t *testing.T) {
	path := writeConfig(t, "endpoint: [unclosed\n")
	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err == nil {
		t.Error("malformed YAML should fail")
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  host: file.local
  port: 8123
tls:
  ca_file: /file/ca.pem
`)
	t.Setenv("KVWIRE_ENDPOINT_HOST", "env.local")
	t.Setenv("KVWIRE_TLS_CA_FILE", "/env/ca.pem")

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"endpoint.port": 9000}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint.Host != "env.local" {
		t.Errorf("host = %q, env should override file", cfg.Endpoint.Host)
	}
	if cfg.TLS.CAFile != "/env/ca.pem" {
		t.Errorf("ca_file = %q, want /env/ca.pem", cfg.TLS.CAFile)
	}
	if cfg.Endpoint.Port != 9000 {
		t.Errorf("port = %d, overrides should win", cfg.Endpoint.Port)
	}

	origins := map[string]Source{
		"endpoint.host": SourceEnv,
		"endpoint.port": SourceFlag,
		"tls.ca_file":   SourceEnv,
	}
	for key, want := range origins {
		if got, ok := l.Origin(key); !ok || got != want {
			t.Errorf("Origin(%q) = %q, %v; want %q", key, got, ok, want)
		}
	}
	if _, ok := l.Origin("timeouts.connect"); ok {
		t.Error("timeouts.connect was set by no layer")
	}
}

func TestLoader_KeepsExistingValues(t *testing.T) {
	var cfg testConfig
	cfg.Endpoint.Host = "default.local"
	cfg.Timeouts.Connect = 10 * time.Second

	path := writeConfig(t, "endpoint:\n  port: 8123\n")
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint.Host != "default.local" {
		t.Errorf("host = %q, default should survive", cfg.Endpoint.Host)
	}
	if cfg.Timeouts.Connect != 10*time.Second {
		t.Errorf("connect = %v, default should survive", cfg.Timeouts.Connect)
	}
}

func TestLoader_EnvCoercion(t *testing.T) {
	t.Setenv("KVWIRE_ENDPOINT_TLS", "true")
	t.Setenv("KVWIRE_ENDPOINT_PORT", "8443")
	t.Setenv("KVWIRE_TIMEOUTS_CONNECT", "250ms")

	var cfg testConfig
	if err := NewLoader().Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Endpoint.TLS || cfg.Endpoint.Port != 8443 || cfg.Timeouts.Connect != 250*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoader_Settings(t *testing.T) {
	path := writeConfig(t, "endpoint:\n  host: file.local\n  port: 8123\n")
	t.Setenv("KVWIRE_CONFIG", "/ignored.yaml")
	t.Setenv("KVWIRE_ENDPOINT_TLS", "true")

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"endpoint.host": "flag.local"}),
		WithOverrides(nil),
	)
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatal(err)
	}

	want := []Setting{
		{Key: "endpoint.host", Value: "flag.local", Source: SourceFlag},
		{Key: "endpoint.port", Value: 8123, Source: SourceFile},
		{Key: "endpoint.tls", Value: "true", Source: SourceEnv},
	}
	got := l.Settings()
	if len(got) != len(want) {
		t.Fatalf("Settings() = %+v", got)
	}
	for i := range want {
		if got[i].Key != want[i].Key || got[i].Source != want[i].Source || fmt.Sprint(got[i].Value) != fmt.Sprint(want[i].Value) {
			t.Errorf("Settings()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMapProvider(t *testing.T) {
	m := map[string]any{"endpoint.host": "map.local", "log.level": "debug"}
	p := mapProvider(m)

	if _, err := p.ReadBytes(); err == nil {
		t.Error("ReadBytes() should fail")
	}
	nested, err := p.Read()
	if err != nil {
		t.Fatal(err)
	}
	endpoint, ok := nested["endpoint"].(map[string]any)
	if !ok || endpoint["host"] != "map.local" {
		t.Errorf("Read() = %v", nested)
	}
	if _, ok := m["endpoint.host"]; !ok || len(m) != 2 {
		t.Errorf("caller map modified: %v", m)
	}
}
