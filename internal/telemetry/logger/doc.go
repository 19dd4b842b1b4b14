// Package logger is kvwire's structured logging on log/slog.
//
// All loggers built by New share one level, so SetLevel (driven by
// --verbose or a config reload) reaches loggers already handed to
// connections. Records carry the conn_id from their context, and
// credentials and PEM private keys are masked before they are written.
package logger
