// Package handlers implements the command execution logic behind the CLI.
//
// Handlers wire configuration, logging, storage, the credential vault and
// the provisioner together, then perform one user-facing operation each.
package handlers

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/meridian-cp/meridian/internal/config"
	"github.com/meridian-cp/meridian/internal/crypto/secrets"
	"github.com/meridian-cp/meridian/internal/provisioner"
	"github.com/meridian-cp/meridian/internal/store"
	"github.com/meridian-cp/meridian/internal/vault"
)

// App bundles the wired subsystems a handler operates on.
type App struct {
	Config      *config.Config
	Log         logr.Logger
	Store       store.Store
	Vault       *vault.Vault
	Provisioner *provisioner.Provisioner

	close func() error
}

// Close releases the database handle.
func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// newApp builds the full application from a config path. Replaced in tests.
var newApp = func(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := buildLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Database.DSN, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway; one connection avoids lock errors.
	sqlDB.SetMaxOpenConns(1)

	s, err := store.New(db)
	if err != nil {
		return nil, err
	}

	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, err
	}
	cipher, err := secrets.NewCipher(key)
	if err != nil {
		return nil, err
	}

	v := vault.New(s, cipher, cfg.EnvCredentials(), log)
	p := provisioner.New(s, v, log)

	return &App{
		Config:      cfg,
		Log:         log,
		Store:       s,
		Vault:       v,
		Provisioner: p,
		close:       sqlDB.Close,
	}, nil
}

func buildLogger(cfg config.LogConfig) (logr.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	// logr V(n) maps to zap level -n.
	zapCfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-cfg.Level))

	zl, err := zapCfg.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}
