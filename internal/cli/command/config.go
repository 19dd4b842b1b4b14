package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvwire-go/internal/cli/config"
	"github.com/yndnr/kvwire-go/internal/infra/buildinfo"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the client configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the effective configuration after files, env and flags",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "origins",
						Usage: "list only the keys set by a file, env or flag, with their source",
					},
				},
				Action: configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "[FILE]",
				Action:    configValidate,
			},
			{
				Name:   "path",
				Usage:  "Print the default configuration file path",
				Action: configPath,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}
	if c.Bool("origins") {
		return rt.Print(rt.Settings)
	}
	return rt.Print(rt.Config)
}

func configValidate(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	if path == "" {
		path = c.String("config")
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if _, err := config.Load(path, nil); err != nil {
		return err
	}
	fmt.Fprintf(rt.Stdout, "configuration is valid: %s\n", path)
	return nil
}

func configPath(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(rt.Stdout, config.DefaultConfigPath())
	return nil
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			rt, err := GetRuntime(c)
			if err != nil {
				return err
			}
			return rt.Print(buildinfo.Get())
		},
	}
}
