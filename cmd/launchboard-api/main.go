package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/launchboard/internal/admin"
	"github.com/MarcoPoloResearchLab/launchboard/internal/appconfig"
	"github.com/MarcoPoloResearchLab/launchboard/internal/audit"
	"github.com/MarcoPoloResearchLab/launchboard/internal/config"
	"github.com/MarcoPoloResearchLab/launchboard/internal/database"
	"github.com/MarcoPoloResearchLab/launchboard/internal/insights"
	"github.com/MarcoPoloResearchLab/launchboard/internal/logging"
	"github.com/MarcoPoloResearchLab/launchboard/internal/server"
	"github.com/MarcoPoloResearchLab/launchboard/internal/shortcuts"
	"github.com/MarcoPoloResearchLab/launchboard/internal/thumbs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "launchboard-api",
		Short: "Launchboard shortcuts dashboard backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("static-dir", defaults.GetString("static.dir"), "Compiled client bundle directory")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("click-log-retention-days", defaults.GetInt("retention.click_log_days"), "Click log retention window in days")
	cmd.PersistentFlags().String("admin-username", defaults.GetString("admin.username"), "Seed admin username")
	cmd.PersistentFlags().String("admin-password", defaults.GetString("admin.password"), "Seed admin password")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "static.dir", "static-dir")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "retention.click_log_days", "click-log-retention-days")
	bindFlag(cmd, "admin.username", "admin-username")
	bindFlag(cmd, "admin.password", "admin-password")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.PruneClickLogs(db, appConfig.ClickLogRetentionDays, logger); err != nil {
		logger.Warn("click log pruning failed", zap.Error(err))
	}

	shortcutService, err := shortcuts.NewService(shortcuts.ServiceConfig{
		Database:    db,
		Clock:       time.Now,
		Thumbnailer: thumbs.NewGenerator(logger),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	configService, err := appconfig.NewService(appconfig.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	insightService, err := insights.NewService(insights.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	adminService, err := admin.NewService(admin.ServiceConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := adminService.EnsureDefault(ctx, appConfig.AdminUsername, appConfig.AdminPassword); err != nil {
		return err
	}

	auditService, err := audit.NewService(audit.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Shortcuts: shortcutService,
		Config:    configService,
		Insights:  insightService,
		Admin:     adminService,
		Audit:     auditService,
		Realtime:  server.NewRealtimeDispatcher(),
		Logger:    logger,
		StaticDir: appConfig.StaticDir,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
