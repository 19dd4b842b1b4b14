package confloader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix prefixes every environment variable the loader reads.
const DefaultEnvPrefix = "KVWIRE_"

// Source names where a setting came from.
type Source string

// Sources, lowest priority first.
const (
	SourceFile Source = "file"
	SourceEnv  Source = "env"
	SourceFlag Source = "flag"
)

// Setting is one key set by a source, after all layers are merged.
type Setting struct {
	Key    string `json:"key" yaml:"key"`
	Value  any    `json:"value" yaml:"value"`
	Source Source `json:"source" yaml:"source"`
}

// Loader merges a YAML file, KVWIRE_* environment variables and
// caller-supplied maps, remembering which layer set each key.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides []map[string]any
	origin    map[string]Source
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile names the YAML file. Empty means none.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides adds a map keyed by dotted path ("endpoint.host"),
// applied after env. Later maps win.
func WithOverrides(m map[string]any) Option {
	return func(l *Loader) {
		if len(m) > 0 {
			l.overrides = append(l.overrides, m)
		}
	}
}

// NewLoader returns a Loader; nothing is read until Load.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		origin:    make(map[string]Source),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges file, env and overrides, in that order, into target.
// Keys no layer sets keep the value target already holds.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.merge(SourceFile, file.Provider(l.filePath), yaml.Parser()); err != nil {
			return fmt.Errorf("config file %s: %w", l.filePath, err)
		}
	}

	envProvider := env.Provider(l.envPrefix, ".", func(name string) string {
		return EnvKey(l.envPrefix, name)
	})
	if err := l.merge(SourceEnv, envProvider, nil); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	for _, m := range l.overrides {
		if err := l.merge(SourceFlag, mapProvider(m), nil); err != nil {
			return fmt.Errorf("overrides: %w", err)
		}
	}

	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// merge loads one layer on its own first so its keys can be attributed.
func (l *Loader) merge(src Source, p koanf.Provider, pa koanf.Parser) error {
	layer := koanf.New(".")
	if err := layer.Load(p, pa); err != nil {
		return err
	}
	for _, key := range layer.Keys() {
		l.origin[key] = src
	}
	return l.k.Merge(layer)
}

// EnvKey maps a variable name to a dotted key. The first underscore
// after the prefix separates section from key, so KVWIRE_TLS_CA_FILE
// becomes tls.ca_file. Names without a section (KVWIRE_CONFIG) map to
// "", which the env provider skips.
func EnvKey(prefix, name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

// Settings lists every key some layer set, sorted by key, with the
// winning value and layer.
func (l *Loader) Settings() []Setting {
	out := make([]Setting, 0, len(l.origin))
	for key, src := range l.origin {
		out = append(out, Setting{Key: key, Value: l.k.Get(key), Source: src})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Origin reports which layer set key.
func (l *Loader) Origin(key string) (Source, bool) {
	src, ok := l.origin[key]
	return src, ok
}
