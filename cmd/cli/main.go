package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/cmd/cli/commands"
	"github.com/jakechorley/church-music-scheduler/internal/config"
	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/postgres"
	"github.com/jakechorley/church-music-scheduler/pkg/utils/logging"
)

var (
	env      string
	churchID string
	userID   string
	role     string

	app      = &commands.AppContext{Ctx: context.Background()}
	database *postgres.DB
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Church Music Scheduler CLI - Manage services, series and musician assignments",
		Long:  `A CLI tool for creating recurring services, editing series and auto-assigning musicians to open roles.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if database != nil {
				database.Close()
			}
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: dev, test, prod, etc.)")
	_ = rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVar(&churchID, "church", os.Getenv("CHURCH_ID"), "Church to act in (defaults to $CHURCH_ID)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", os.Getenv("USER_ID"), "User to act as (defaults to $USER_ID)")
	rootCmd.PersistentFlags().StringVar(&role, "role", string(model.RoleDirector), "Role to act with: DIRECTOR, ASSOCIATE_DIRECTOR or PASTOR")

	rootCmd.AddCommand(commands.CreateSeriesCmd(app))
	rootCmd.AddCommand(commands.EditSeriesCmd(app))
	rootCmd.AddCommand(commands.AutoAssignCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config and database
func initApp() error {
	var err error

	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.String("timezone", app.Cfg.Timezone),
		zap.Int("horizon_months", app.Cfg.Horizon()))

	app.Actor = model.Actor{
		UserID:   userID,
		ChurchID: churchID,
		Role:     model.ManagerRole(role),
	}

	app.Logger.Info("Connecting to database")
	database, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.Database = database
	app.Logger.Info("Database initialized successfully")

	return nil
}
