package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/cograph/pkg/config"
)

func newConfigCmd(root *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, locate and print the configuration",
	}
	cmd.AddCommand(newConfigInitCmd(root))
	cmd.AddCommand(newConfigShowCmd(root))
	cmd.AddCommand(newConfigPathCmd(root))
	return cmd
}

func newConfigInitCmd(root *rootOpts) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration",
		Long: `Write a starter configuration with one example view to --config, or to
the default location. A .toml extension selects TOML, anything else YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if path == "" {
				path = config.ConfigPath()
			}
			if path == "" {
				return fmt.Errorf("cannot determine config directory; pass --config")
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveTo(config.Example(), path); err != nil {
				return err
			}
			good.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			subtle.Fprintf(cmd.OutOrStdout(), "Edit the sources under views, then run 'cograph render'.\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(root *rootOpts) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg config.Config
				err error
			)
			if root.configPath != "" {
				cfg, err = config.LoadFrom(root.configPath)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			if format == "" {
				format = "yaml"
				if strings.EqualFold(filepath.Ext(cfg.Path()), ".toml") {
					format = "toml"
				}
			}
			if format != "yaml" && format != "toml" {
				return fmt.Errorf("unknown format %q (want yaml or toml)", format)
			}
			data, err := config.Encode(cfg, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "yaml or toml (default: the file's format)")
	return cmd
}

func newConfigPathCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			path := root.configPath
			if path == "" {
				path = config.ConfigPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	}
}
