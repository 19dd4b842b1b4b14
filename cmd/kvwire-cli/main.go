// Command kvwire-cli probes and talks to a key-value server over plain
// TCP or TLS.
//
// Usage:
//
//	kvwire-cli --host storage.local --port 8443 --tls probe
//	kvwire-cli -H 127.0.0.1 ping
//	kvwire-cli set --ttl 30s user:1 alice
//
// Settings are read from ~/.kvwire/config.yaml (or --config), then
// KVWIRE_* environment variables, then flags.
package main

import (
	"os"

	"github.com/yndnr/kvwire-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		command.PrintError(os.Stderr, err)
		os.Exit(command.ExitCode(err))
	}
}
