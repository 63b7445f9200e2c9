// Package cli implements the ldap-sync command line interface.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/isometry/ldap-sync/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ldap-sync",
	Short: "Synchronize directory users and groups into a relational database",
	Long: `ldap-sync reconciles users, groups and group membership from an LDAP
directory into local database tables. Each run is a single reconciliation
pass: matching records are updated in place, new entries are bulk-created,
and records no longer present in the directory are handled according to the
configured removal action.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"path to configuration file (default ./ldap-sync.yaml, /etc/ldap-sync/ldap-sync.yaml)")
}

// setup loads configuration and builds the logger it describes.
func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	log.SetLevel(level)

	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
	}
	log.SetOutput(out)

	return cfg, log, nil
}
