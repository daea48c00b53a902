package db

import (
	"fmt"
	"strconv"

	"github.com/davronov/tg-speaking-exam/pkg/config"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Export DB variable
var DB *gorm.DB

func InitDB(cfg config.DatabaseConfig) error {
	gormLogger, gormErr := newGormLogger(config.AppConfig.Logging.GormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", config.AppConfig.Logging.GormLevel, "error", gormErr)
	}

	dialector, err := openDialector(cfg)
	if err != nil {
		return err
	}

	DB, err = gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return err
	}
	if err := Migrate(DB); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		return err
	}
	if err := seedAdmins(DB, config.AppConfig.Telegram.AdminIDs); err != nil {
		logger.Error("failed to seed admins", "error", err)
		return err
	}
	return nil
}

func openDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "bot.db"
		}
		return sqlite.Open(path), nil
	case "postgres", "":
		dsn := "host=" + cfg.Host +
			" user=" + cfg.User +
			" password=" + cfg.Password +
			" dbname=" + cfg.DBName +
			" port=" + strconv.Itoa(cfg.Port) +
			" sslmode=" + cfg.SSLMode
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Admin{},
		&Attempt{},
		&Ad{},
		&Session{},
		&Response{},
		&DailyStudy{},
		&UserSetting{},
		&Referral{},
	)
}

func seedAdmins(db *gorm.DB, ids []int64) error {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		admin := Admin{UserID: id}
		if err := db.Where("user_id = ?", id).FirstOrCreate(&admin).Error; err != nil {
			return err
		}
	}
	return nil
}
