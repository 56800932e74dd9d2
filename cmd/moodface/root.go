package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dj-oyu/moodface/internal/config"
	"github.com/dj-oyu/moodface/internal/logger"
)

// Version is the application version.
const Version = "0.1.0"

// app carries state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	defaults := config.DefaultConfig()

	root := &cobra.Command{
		Use:           "moodface",
		Short:         "Facial expression classifier and avatar server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			level, err := logger.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			if cfg.LogFile != "" {
				logger.InitWithFile(level, os.Stderr, cfg.LogColor, logger.FileOptions{Path: cfg.LogFile})
			} else {
				logger.Init(level, os.Stderr, cfg.LogColor)
			}
			logger.Debug("Main", "Log level: %s", level)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Close()
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (yaml, json or toml)")
	pf.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error, silent)")
	pf.Bool("log-color", defaults.LogColor, "Enable colored log output")
	pf.String("log-file", defaults.LogFile, "Also write logs to this file, rotated by size")
	bindFlags(a.v, pf, map[string]string{
		"log_level": "log-level",
		"log_color": "log-color",
		"log_file":  "log-file",
	})

	root.AddCommand(newServeCmd(a), newClassifyCmd(a), newRenderCmd(a))
	return root
}

// bindFlags maps config keys to flag names so flags override file and env.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}
