package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/internal/config"
	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/db"
)

// Store is the database the commands run against
type Store interface {
	db.Database
	RunMigrations(ctx context.Context) ([]string, error)
}

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database Store
	Logger   *zap.Logger
	Ctx      context.Context

	// Actor is the person the CLI acts as, set from the --church, --user and --role flags
	Actor model.Actor
}
