package data

import (
	"fmt"
	"time"

	chatmodels "github.com/leapstack-ai/sop-copilot-backend/internal/chat/models"
	"github.com/leapstack-ai/sop-copilot-backend/internal/conf"
	docmodels "github.com/leapstack-ai/sop-copilot-backend/internal/document/models"
	sopmodels "github.com/leapstack-ai/sop-copilot-backend/internal/sop/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Data holds shared data-layer resources
type Data struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewData initializes the PostgreSQL connection, runs migrations, and
// returns the data layer with its cleanup function
func NewData(config *conf.Config, log *zap.Logger) (*Data, func(), error) {
	db, err := initDB(config, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	d := &Data{
		DB:     db,
		Logger: log,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return d, cleanup, nil
}

func initDB(config *conf.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	for _, migrate := range []func(*gorm.DB) error{
		chatmodels.AutoMigrate,
		sopmodels.AutoMigrate,
		docmodels.AutoMigrate,
	} {
		if err := migrate(db); err != nil {
			return nil, fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	log.Info("database initialized successfully")
	return db, nil
}
