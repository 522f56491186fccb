package main

import (
	"fmt"

	"github.com/neuroerp/backend/internal/infrastructure/config"
	"github.com/neuroerp/backend/internal/infrastructure/logger"
	"github.com/neuroerp/backend/internal/infrastructure/persistence"
	"github.com/neuroerp/backend/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the root has run
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "neuroerp",
		Short:         "NeuroERP aggregate backend tools",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Directory containing config.toml")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newRelayCmd(a))
	cmd.AddCommand(newOutboxCmd(a))
	return cmd
}

func (a *app) init() error {
	var paths []string
	if a.configPath != "" {
		paths = append(paths, a.configPath)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	a.cfg = cfg
	a.log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))
	return nil
}

// openDatabase connects with GORM logging through zap and, when enabled,
// otelgorm tracing
func (a *app) openDatabase() (*persistence.Database, error) {
	var gormOpts []logger.GormLoggerOption
	if a.cfg.Telemetry.DBLogFullSQL {
		gormOpts = append(gormOpts, logger.WithBoundParameters())
	}
	opts := []persistence.Option{
		persistence.WithGormLogger(logger.NewGormLogger(a.log, logger.MapGormLogLevel(a.cfg.Log.Level), gormOpts...)),
	}
	if a.cfg.Telemetry.DBTraceEnabled {
		tcfg := telemetry.DefaultDBTracingConfig()
		tcfg.Enabled = true
		tcfg.LogFullSQL = a.cfg.Telemetry.DBLogFullSQL
		tcfg.DBName = a.cfg.Database.DBName
		opts = append(opts, persistence.WithTracing(telemetry.NewDBTracingPlugin(tcfg, a.log)))
	}
	return persistence.NewDatabase(&a.cfg.Database, opts...)
}
