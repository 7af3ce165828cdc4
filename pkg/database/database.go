package database

import (
	"fmt"
	"scorm_trends_backend/internal/config"
	"scorm_trends_backend/internal/model"
	applog "scorm_trends_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	applog.Log.Info("Database connection established", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return db, nil
}

// Migrate 建表；track 表通常由 LMS 维护，这里只在自建环境使用
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Scorm{},
		&model.ScormSco{},
		&model.ScormScoTrack{},
		&model.CapabilityGrant{},
		&model.GroupMember{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	applog.Log.Info("Database migration completed")
	return nil
}
