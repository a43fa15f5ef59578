package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/config"
	logpkg "github.com/kailas-cloud/resumatch/internal/logger"
)

const app = "resumatch"

var (
	// Used for flags.
	envName  string
	cfgFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "resumatch ranks companies against a resume by embedding similarity",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name, selects config/<env>.yaml (default from ENV or \"local\")")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "explicit config file, overrides --env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default from config)")
}

// loadConfig resolves the config file and builds the logger for it.
func loadConfig() (config.Config, *zap.Logger, error) {
	env := envName
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, nil, err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	log, err := logpkg.NewLogger(env, level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
