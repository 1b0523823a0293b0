package main

import (
	"github.com/spf13/cobra"

	"github.com/mirkobrombin/go-redisdemo/v1/config"
	"github.com/mirkobrombin/go-redisdemo/v1/logging"
)

func newRootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "redisdemo",
		Short:         "Redis and PostgreSQL demo service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default $"+config.PathEnvVar+")")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		return cfg, nil
	}
	root.AddCommand(newServeCommand(load), newMigrateCommand(load))
	return root
}
