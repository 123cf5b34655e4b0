package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/acheta/depth2mqtt/internal/configuration"
	"github.com/acheta/depth2mqtt/internal/definition"
	"github.com/acheta/depth2mqtt/internal/registry"
)

func definitionsCommand() *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:  "dir",
		Usage: "definitions directory, overrides the one from the config file",
	}

	return &cli.Command{
		Name:  "definitions",
		Usage: "inspect device definitions",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list built-in and external definitions",
				Flags:  []cli.Flag{dirFlag},
				Action: listDefinitions,
			},
			{
				Name:      "validate",
				Usage:     "check definition files",
				ArgsUsage: "FILE...",
				Action:    validateDefinitions,
			},
			{
				Name:      "export",
				Usage:     "print definitions in the external definition format",
				ArgsUsage: "[MODEL]",
				Flags: []cli.Flag{
					dirFlag,
					&cli.StringFlag{
						Name:  "format",
						Value: "json",
						Usage: "json or yaml",
					},
				},
				Action: exportDefinitions,
			},
		},
	}
}

// definitionsConfiguration reads the definitions section of the config file
// when there is one; a missing file means built-ins only.
func definitionsConfiguration(c *cli.Command) (configuration.DefinitionsConfiguration, error) {
	var ret configuration.DefinitionsConfiguration

	configService, err := configuration.Init(c.String("config"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return ret, err
	default:
		ret = configService.GetConfiguration().Definitions
	}

	if dir := c.String("dir"); dir != "" {
		ret.Directory = dir
	}

	return ret, nil
}

func loadDefinitions(c *cli.Command) (*registry.Registry, error) {
	cfg, err := definitionsConfiguration(c)
	if err != nil {
		return nil, err
	}

	return newRegistry(cfg)
}

func listDefinitions(ctx context.Context, c *cli.Command) error {
	reg, err := loadDefinitions(c)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tVENDOR\tZIGBEE MODEL\tDESCRIPTION")
	for _, d := range reg.All() {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", d.Model, d.Vendor, strings.Join(d.ZigbeeModel, ","), d.Description)
	}

	return w.Flush()
}

func validateDefinitions(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() == 0 {
		return cli.Exit("no definition files given", 2)
	}

	failed := false
	for _, filename := range c.Args().Slice() {
		defs, err := registry.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v: %v\n", filename, err)
			failed = true
			continue
		}

		for _, d := range defs {
			if err := d.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "%v: %v: %v\n", filename, d.Model, err)
				failed = true
				continue
			}
			fmt.Fprintf(os.Stdout, "%v: %v ok\n", filename, d.Model)
		}
	}

	if failed {
		return cli.Exit("invalid definitions", 1)
	}

	return nil
}

func exportDefinitions(ctx context.Context, c *cli.Command) error {
	reg, err := loadDefinitions(c)
	if err != nil {
		return err
	}

	defs := reg.All()
	if model := c.Args().First(); model != "" {
		def, ok := reg.Find(model)
		if !ok {
			return cli.Exit(fmt.Sprintf("no definition for model %q", model), 1)
		}
		defs = []definition.Definition{def}
	}

	return writeDefinitions(os.Stdout, c.String("format"), defs)
}

func writeDefinitions(w io.Writer, format string, defs []definition.Definition) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	case "yaml":
		buf, err := yaml.Marshal(defs)
		if err != nil {
			return err
		}
		_, err = w.Write(buf)
		return err
	}

	return cli.Exit(fmt.Sprintf("unknown format %q", format), 2)
}
