// Package command defines the kvwire-cli commands.
//
// It uses urfave/cli/v2. Global flags override the config file and the
// KVWIRE_* environment, and every command that talks to a server opens
// exactly one connection through connection.Manager.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvwire-go/internal/cli/config"
	"github.com/yndnr/kvwire-go/internal/cli/connection"
	"github.com/yndnr/kvwire-go/internal/cli/output"
	"github.com/yndnr/kvwire-go/internal/core/domain"
	"github.com/yndnr/kvwire-go/internal/infra/buildinfo"
	"github.com/yndnr/kvwire-go/internal/infra/confloader"
	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
	"github.com/yndnr/kvwire-go/internal/telemetry/metric"
)

// AppName is the binary name.
const AppName = "kvwire-cli"

const runtimeKey = "runtime"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    AppName,
		Usage:   "Connect to a key-value server over TCP or TLS",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ProbeCommand(),
			PingCommand(),
			GetCommand(),
			SetCommand(),
			DelCommand(),
			ConfigCommand(),
			ShellCommand(),
			VersionCommand(),
		},
		Before: setup,
		After:  teardown,
	}
}

// globalFlags returns the global CLI flags. Flags left unset fall back to
// the config file, then to KVWIRE_* variables, then to defaults.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file (default ~/.kvwire/config.yaml if present)",
			EnvVars: []string{"KVWIRE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"H"},
			Usage:   "server host name or IP address",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "server port",
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "connect with TLS",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM file of additional trusted CA certificates",
		},
		&cli.StringFlag{
			Name:  "server-name",
			Usage: "TLS server name to verify (default: host)",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip TLS certificate verification",
		},
		&cli.DurationFlag{
			Name:  "connect-timeout",
			Usage: "bound on name resolution plus TCP connect",
		},
		&cli.DurationFlag{
			Name:  "handshake-timeout",
			Usage: "bound on the TLS handshake",
		},
		&cli.DurationFlag{
			Name:  "request-timeout",
			Usage: "bound on each command round trip",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "enable debug logging",
		},
	}
}

// flagKeys maps global flags to config keys.
var flagKeys = map[string]string{
	"host":              "endpoint.host",
	"port":              "endpoint.port",
	"tls":               "endpoint.tls",
	"ca-file":           "tls.ca_file",
	"server-name":       "tls.server_name",
	"insecure":          "tls.insecure_skip_verify",
	"connect-timeout":   "timeouts.connect",
	"handshake-timeout": "timeouts.handshake",
	"request-timeout":   "timeouts.request",
	"output":            "output",
}

// flagOverrides collects the global flags the user actually set.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		if !c.IsSet(name) {
			continue
		}
		overrides[key] = c.Value(name)
	}
	if c.Bool("verbose") {
		overrides["log.level"] = "debug"
	}
	return overrides
}

// Runtime is the per-invocation state shared by commands.
type Runtime struct {
	Config   *config.ClientConfig
	Settings []confloader.Setting // keys set by file, env or flags
	Log      logger.Logger
	Metrics  *metric.Registry
	Conns    *connection.Manager

	Stdout io.Writer
	Stderr io.Writer
	Format output.Format
	Wide   bool
}

func setup(c *cli.Context) error {
	cfg, settings, err := config.LoadWithSources(c.String("config"), flagOverrides(c))
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return domain.ErrInvalidConfig.WithDetails(err.Error())
	}

	stderr := c.App.ErrWriter
	if stderr == nil {
		stderr = os.Stderr
	}
	stdout := c.App.Writer
	if stdout == nil {
		stdout = os.Stdout
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log = log.With("client", buildinfo.UserAgent(AppName))
	logger.SetDefault(log)

	reg := metric.NewRegistry()
	rt := &Runtime{
		Config:   cfg,
		Settings: settings,
		Log:      log,
		Metrics:  reg,
		Conns: connection.NewManager(cfg,
			connection.WithLogger(log),
			connection.WithObserver(metric.NewObserver(reg)),
		),
		Stdout: stdout,
		Stderr: stderr,
		Format: format,
		Wide:   c.Bool("wide"),
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[runtimeKey] = rt
	return nil
}

func teardown(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return nil
	}
	return rt.Conns.Disconnect()
}

// GetRuntime returns the runtime built by the Before hook.
func GetRuntime(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
		return rt, nil
	}
	return nil, fmt.Errorf("runtime not initialized")
}

// Print formats data in the selected output format.
func (rt *Runtime) Print(data any) error {
	return output.NewFormatter(rt.Format, rt.Wide).Format(rt.Stdout, data)
}

// withConnection opens the connection, runs fn and closes it again.
func withConnection(c *cli.Context, fn func(ctx context.Context, rt *Runtime, conn *connection.Connection) error) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	ctx = logger.WithLogger(ctx, rt.Log)

	conn, err := rt.Conns.Connect(ctx)
	if err != nil {
		return err
	}
	defer rt.Conns.Disconnect()

	return fn(logger.WithConnID(ctx, conn.ID()), rt, conn)
}

// PrintError prints an error to w.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

// ExitCode maps an error to the process exit status: 2 for bad
// configuration or arguments, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidConfig), errors.Is(err, domain.ErrInvalidEndpoint), errors.Is(err, errUsage):
		return 2
	default:
		return 1
	}
}

var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
