package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autopay/config"
	"autopay/models"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database представляет подключение к базе данных
type Database struct {
	DB *gorm.DB
}

// NewLogger создает логгер gorm поверх logrus. Логируются только медленные запросы и ошибки.
func NewLogger(log *logrus.Logger) logger.Interface {
	return logger.New(
		log,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Connect устанавливает соединение с базой данных и настраивает пул соединений
func Connect(cfg *config.Config, log *logrus.Logger) (*Database, error) {
	// Устанавливаем соединение
	db, err := gorm.Open(postgres.Open(cfg.DB.URL), &gorm.Config{
		Logger: NewLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Настраиваем пул соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.DB.MaxOpenConns / 2)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Database{DB: db}, nil
}

// Ping проверяет доступность базы данных
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RunMigrations применяет SQL миграции из каталога migrationsPath.
// Возвращает текущую версию схемы.
func RunMigrations(databaseURL, migrationsPath string) (uint, error) {
	// Создаем экземпляр миграции
	m, err := migrate.New(migrationsPath, databaseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to create migration: %w", err)
	}
	defer m.Close()

	// Выполняем миграции
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// AutoMigrate создает таблицы по моделям. Используется для тестовых баз;
// рабочая схема управляется SQL миграциями.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Loan{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.PaymentObligation{},
		&models.AutopayConfig{},
		&models.JobRunLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return nil
}
