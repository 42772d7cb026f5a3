package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sirupsen/logrus"

	"bulk-mail-verify-go/internal/config"
	"bulk-mail-verify-go/internal/model"
)

// Init initializes the database connection and runs migrations
func Init(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormLogger := logger.New(
		logrus.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logrus.Info("Database initialized successfully")
	return db, nil
}

// Migrate creates or updates the schema: the shared tables once, then one
// copy of the batch tables per verification mode.
func Migrate(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.AutoMigrate(&model.Email{}, &model.DeliverabilityResult{}, &model.ToxicityResult{}); err != nil {
		return fmt.Errorf("failed to auto migrate shared tables: %w", err)
	}

	for _, mode := range model.Modes() {
		t := mode.Tables()
		steps := []struct {
			table string
			value interface{}
		}{
			{t.VerificationBatches, &model.VerificationBatch{}},
			{t.VerificationBatchEmails, &model.VerificationBatchEmail{}},
			{t.BouncerBatches, &model.BouncerBatch{}},
			{t.BouncerBatchEmails, &model.BouncerBatchEmail{}},
			{t.RateLimitEvents, &model.RateLimitEvent{}},
		}
		for _, step := range steps {
			if err := db.Table(step.table).AutoMigrate(step.value); err != nil {
				return fmt.Errorf("failed to auto migrate %s: %w", step.table, err)
			}
		}
	}

	logrus.Info("Database migrations completed")
	return nil
}
