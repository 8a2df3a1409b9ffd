package migration

import (
	"github.com/maidlink/paycore/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Migrations run on the postgres dialect only; other dialects (sqlite in
// tests) create their schema directly.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			return nil
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
