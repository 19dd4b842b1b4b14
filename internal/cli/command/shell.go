package command

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvwire-go/internal/cli/connection"
	"github.com/yndnr/kvwire-go/internal/cli/repl"
	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Send commands interactively over one connection",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "do not read or write ~/.kvwire/history",
			},
		},
		Action: shellAction,
	}
}

// shellInput is the shell's command source.
var shellInput io.Reader = os.Stdin

func shellAction(c *cli.Context) error {
	historyFile := repl.DefaultHistoryFile()
	if c.Bool("no-history") {
		historyFile = ""
	}

	return withConnection(c, func(ctx context.Context, rt *Runtime, conn *connection.Connection) error {
		history := repl.NewHistory(historyFile)
		if err := history.Load(); err != nil {
			logger.L(ctx).Warn("history not loaded", "error", err)
		}
		defer func() {
			if err := history.Save(); err != nil {
				logger.L(ctx).Warn("history not saved", "error", err)
			}
		}()

		r := repl.New(conn.Client,
			repl.WithIO(shellInput, rt.Stdout),
			repl.WithHistory(history),
			repl.WithPrompt(conn.Endpoint.Address()+"> "),
		)
		return r.Run(ctx)
	})
}
