package command

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvwire-go/internal/cli/connection"
	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Send PING and report the round trip time",
		Action: pingAction,
	}
}

// PingResult is the output of ping.
type PingResult struct {
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Reply    string        `json:"reply" yaml:"reply"`
	Connect  time.Duration `json:"connect" yaml:"connect"`
	RTT      time.Duration `json:"rtt" yaml:"rtt"`
}

func pingAction(c *cli.Context) error {
	return withConnection(c, func(ctx context.Context, rt *Runtime, conn *connection.Connection) error {
		start := time.Now()
		if err := conn.Client.Ping(ctx); err != nil {
			return err
		}
		return rt.Print(PingResult{
			Endpoint: conn.Endpoint.String(),
			Reply:    "PONG",
			Connect:  conn.Elapsed,
			RTT:      time.Since(start),
		})
	})
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read the value of a key",
		ArgsUsage: "KEY",
		Action:    getAction,
	}
}

// KeyValue is the output of get.
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
	Found bool   `json:"found" yaml:"found"`
}

func getAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageError("get requires exactly one KEY")
	}
	key := c.Args().First()

	return withConnection(c, func(ctx context.Context, rt *Runtime, conn *connection.Connection) error {
		value, found, err := conn.Client.Get(ctx, key)
		if err != nil {
			return err
		}
		return rt.Print(KeyValue{Key: key, Value: string(value), Found: found})
	})
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Write the value of a key",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "expire the key after this duration (0 keeps it forever)",
			},
		},
		Action: setAction,
	}
}

// SetResult is the output of set.
type SetResult struct {
	Key string        `json:"key" yaml:"key"`
	TTL time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	OK  bool          `json:"ok" yaml:"ok"`
}

func setAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return usageError("set requires KEY and VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)
	ttl := c.Duration("ttl")
	if ttl < 0 {
		return usageError("--ttl must not be negative")
	}

	return withConnection(c, func(ctx context.Context, rt *Runtime, conn *connection.Connection) error {
		if err := conn.Client.Set(ctx, key, []byte(value), ttl); err != nil {
			return err
		}
		return rt.Print(SetResult{Key: key, TTL: ttl, OK: true})
	})
}

// DelCommand returns the del command.
func DelCommand() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "Delete one or more keys",
		ArgsUsage: "KEY [KEY...]",
		Action:    delAction,
	}
}

// DelResult is the output of del.
type DelResult struct {
	Keys    []string `json:"keys" yaml:"keys"`
	Deleted int64    `json:"deleted" yaml:"deleted"`
}

func delAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return usageError("del requires at least one KEY")
	}
	keys := c.Args().Slice()

	return withConnection(c, func(ctx context.Context, rt *Runtime, conn *connection.Connection) error {
		n, err := conn.Client.Del(ctx, keys...)
		if err != nil {
			return err
		}
		logger.L(ctx).Debug("keys deleted", "requested", len(keys), "deleted", n)
		return rt.Print(DelResult{Keys: keys, Deleted: n})
	})
}
