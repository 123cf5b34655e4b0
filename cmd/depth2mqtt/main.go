package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/acheta/depth2mqtt/internal/configuration"
	"github.com/acheta/depth2mqtt/internal/devices"
	"github.com/acheta/depth2mqtt/internal/logger"
	"github.com/acheta/depth2mqtt/internal/registry"
)

var version = "dev"

func main() {
	defer logger.Sync()

	app := &cli.Command{
		Name:    "depth2mqtt",
		Usage:   "Zigbee to MQTT gateway driven by device definitions",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "./configuration.yaml",
				Usage:   "path to config file name",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("DEPTH2MQTT_CONFIG"),
				),
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			definitionsCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.GetLogger("[main]").Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

// newRegistry holds the built-in definitions plus the ones found in dir.
func newRegistry(cfg configuration.DefinitionsConfiguration) (*registry.Registry, error) {
	reg := registry.New(registry.Options{Strict: cfg.Strict})
	if err := reg.Add(devices.Builtin()...); err != nil {
		return nil, err
	}

	if cfg.Directory != "" {
		if err := reg.LoadDir(cfg.Directory); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
