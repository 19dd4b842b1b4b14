package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/kvwire-go/internal/cli/config"
	"github.com/yndnr/kvwire-go/internal/cli/connection"
	"github.com/yndnr/kvwire-go/internal/cli/output"
	"github.com/yndnr/kvwire-go/internal/core/domain"
	"github.com/yndnr/kvwire-go/internal/infra/confloader"
	"github.com/yndnr/kvwire-go/internal/infra/shutdown"
	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
	"github.com/yndnr/kvwire-go/internal/telemetry/tracer"
)

// ProbeCommand returns the probe command.
func ProbeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Establish a connection and report how it went",
		Description: "Runs name resolution, TCP connect and, for TLS endpoints, the handshake.\n" +
			"With --count the probe repeats at --interval. With --hold the connection\n" +
			"stays open until interrupted, pinging every --keepalive and serving\n" +
			"metrics on metrics.addr when configured.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "number of probes",
				Value:   1,
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "minimum time between probe starts",
				Value: time.Second,
			},
			&cli.BoolFlag{
				Name:  "hold",
				Usage: "keep the connection open until interrupted",
			},
			&cli.DurationFlag{
				Name:  "keepalive",
				Usage: "PING interval while holding (0 disables)",
				Value: 30 * time.Second,
			},
		},
		Action: probeAction,
	}
}

// ProbeResult is one row of a repeated probe.
type ProbeResult struct {
	Attempt    int           `json:"attempt" yaml:"attempt"`
	Endpoint   string        `json:"endpoint" yaml:"endpoint"`
	Outcome    string        `json:"outcome" yaml:"outcome"`
	Category   string        `json:"category,omitempty" yaml:"category,omitempty" table:"wide"`
	Code       string        `json:"code,omitempty" yaml:"code,omitempty"`
	Reason     string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	RemoteAddr string        `json:"remote_addr,omitempty" yaml:"remote_addr,omitempty"`
	TLSVersion string        `json:"tls_version,omitempty" yaml:"tls_version,omitempty"`
	Resolve    time.Duration `json:"resolve,omitempty" yaml:"resolve,omitempty" table:"wide"`
	Connect    time.Duration `json:"connect,omitempty" yaml:"connect,omitempty" table:"wide"`
	Handshake  time.Duration `json:"handshake,omitempty" yaml:"handshake,omitempty" table:"wide"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty" table:"wide"`
}

// Probe outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

func probeAction(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	count := c.Int("count")
	if count < 1 {
		return usageError("--count must be at least 1")
	}
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if c.Bool("hold") {
		if count != 1 {
			return usageError("--hold cannot be combined with --count")
		}
		return probeHold(ctx, c, rt)
	}
	if count == 1 {
		conn, err := connectWithSpinner(ctx, rt)
		if err != nil {
			return err
		}
		info := connection.Describe(conn)
		if err := rt.Conns.Disconnect(); err != nil {
			rt.Log.Warn("close failed", "error", err)
		}
		return rt.Print(info)
	}
	return probeRepeat(ctx, rt, count, c.Duration("interval"))
}

func connectWithSpinner(ctx context.Context, rt *Runtime) (*connection.Connection, error) {
	sp := output.NewSpinner(rt.Stderr, "connecting to "+endpointLabel(rt.Config))
	sp.Start()
	conn, err := rt.Conns.Connect(ctx)
	sp.Stop()
	return conn, err
}

// probeRepeat runs count independent probes, starting at most one per
// interval.
func probeRepeat(ctx context.Context, rt *Runtime, count int, interval time.Duration) error {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	results := make([]ProbeResult, 0, count)
	failed := 0
	for i := 1; i <= count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			rt.Log.Debug("probe loop stopped", "error", err)
			break
		}
		res := probeOnce(ctx, rt, i)
		if res.Outcome != OutcomeOK {
			failed++
		}
		results = append(results, res)
	}

	if err := rt.Print(results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d probes failed", failed, len(results))
	}
	if len(results) < count {
		return ctx.Err()
	}
	return nil
}

func probeOnce(ctx context.Context, rt *Runtime, attempt int) ProbeResult {
	ctx, trace := tracer.WithTrace(ctx)
	start := time.Now()
	conn, err := rt.Conns.Connect(ctx)
	res := ProbeResult{
		Attempt:   attempt,
		Endpoint:  endpointLabel(rt.Config),
		Resolve:   trace.Elapsed(tracer.PhaseResolve),
		Connect:   trace.Elapsed(tracer.PhaseConnect),
		Handshake: trace.Elapsed(tracer.PhaseHandshake),
		Elapsed:   time.Since(start),
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Category = domain.Category(err)
		res.Code = domain.GetErrorCode(err)
		res.Reason = domain.Reason(err)
		res.Error = err.Error()
		return res
	}

	info := connection.Describe(conn)
	res.Outcome = OutcomeOK
	res.Endpoint = info.Endpoint
	res.RemoteAddr = info.RemoteAddr
	res.TLSVersion = info.TLSVersion
	if err := rt.Conns.Disconnect(); err != nil {
		rt.Log.Warn("close failed", "error", err)
	}
	return res
}

func endpointLabel(cfg *config.ClientConfig) string {
	if ep, err := cfg.EndpointTarget(); err == nil {
		return ep.String()
	}
	return net.JoinHostPort(cfg.Endpoint.Host, strconv.Itoa(cfg.Endpoint.Port))
}

// probeHold keeps one connection open until a signal or ctx ends it.
func probeHold(ctx context.Context, c *cli.Context, rt *Runtime) error {
	conn, err := connectWithSpinner(ctx, rt)
	if err != nil {
		return err
	}
	if err := rt.Print(connection.Describe(conn)); err != nil {
		_ = rt.Conns.Disconnect()
		return err
	}

	h := shutdown.NewHandler(shutdown.DefaultTimeout, rt.Log)
	h.OnShutdown("connection", func(context.Context) error {
		return rt.Conns.Disconnect()
	})

	if addr := rt.Config.Metrics.Addr; addr != "" {
		srv, bound, err := serveMetrics(addr, rt.Metrics.Handler(), rt.Log)
		if err != nil {
			_ = rt.Conns.Disconnect()
			return err
		}
		rt.Log.Info("serving metrics", "addr", bound.String())
		h.OnShutdown("metrics", srv.Shutdown)
	}

	if path := configFile(c); path != "" {
		w, err := watchLogLevel(path, flagOverrides(c), rt.Log)
		if err != nil {
			rt.Log.Warn("config watcher disabled", "path", path, "error", err)
		} else {
			h.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
		}
	}

	var (
		kaErr error
		kaWG  sync.WaitGroup
	)
	kaCtx, kaStop := context.WithCancel(ctx)
	if interval := c.Duration("keepalive"); interval > 0 {
		kaWG.Add(1)
		go func() {
			defer kaWG.Done()
			kaErr = keepalive(kaCtx, conn, interval, rt.Log)
			if kaErr != nil {
				h.Trigger()
			}
		}()
	}
	h.OnShutdown("keepalive", func(context.Context) error {
		kaStop()
		kaWG.Wait()
		return nil
	})

	err = h.Wait(ctx)
	return errors.Join(kaErr, err)
}

// keepalive pings until ctx is done or a ping fails.
func keepalive(ctx context.Context, conn *connection.Connection, interval time.Duration, log logger.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		start := time.Now()
		if err := conn.Client.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("keepalive failed", "error", err)
			return err
		}
		log.Debug("keepalive", "rtt", time.Since(start))
	}
}

// serveMetrics starts a Prometheus endpoint on addr.
func serveMetrics(addr string, handler http.Handler, log logger.Logger) (*http.Server, net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	return srv, ln.Addr(), nil
}

// configFile returns the config file in effect, if any.
func configFile(c *cli.Context) string {
	if path := c.String("config"); path != "" {
		return path
	}
	path := config.DefaultConfigPath()
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// watchLogLevel re-reads path on change and applies its log level.
// Other settings only take effect on the next connection.
func watchLogLevel(path string, overrides map[string]any, log logger.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(path, confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	w.OnChange(func(string) {
		cfg, err := config.Load(path, overrides)
		if err != nil {
			log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		if cfg.Log.Level == logger.GetLevel() {
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn("log level not applied", "level", cfg.Log.Level, "error", err)
			return
		}
		log.Info("log level changed", "level", cfg.Log.Level)
	})
	w.StartAsync()
	return w, nil
}
