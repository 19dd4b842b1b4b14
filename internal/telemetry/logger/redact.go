package logger

import (
	"log/slog"
	"strings"
)

const redactedValue = "***REDACTED***"

// Attribute keys whose string values are never logged as-is.
var sensitiveKeys = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"credential",
	"private",
	"auth",
}

// Commands whose arguments carry credentials.
var credentialCommands = map[string]bool{
	"AUTH":  true,
	"HELLO": true,
}

// redactSensitive is the ReplaceAttr hook of every handler built by New.
// It masks PEM private keys, credential-looking keys and the arguments
// of AUTH-style command lines. Groups are walked recursively.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		switch {
		case v == "":
			return a
		case isPrivateKeyPEM(v) || isSensitiveKey(a.Key):
			return slog.String(a.Key, redactedValue)
		}
		if masked := RedactCommandLine(v); masked != v {
			return slog.String(a.Key, masked)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func isPrivateKeyPEM(v string) bool {
	return strings.Contains(v, "PRIVATE KEY-----") || strings.Contains(v, "-----BEGIN ENCRYPTED")
}

// RedactCommandLine keeps the command name of an AUTH or HELLO line and
// masks the rest. Other lines are returned unchanged.
func RedactCommandLine(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	name, rest, ok := strings.Cut(trimmed, " ")
	if !ok || !credentialCommands[strings.ToUpper(name)] {
		return line
	}
	if strings.TrimSpace(rest) == "" {
		return line
	}
	return name + " " + redactedValue
}
