package models

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tagframe/utils"
)

// ConnectDataBase Open the configured database and migrate the schema
func ConnectDataBase(config utils.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case "mysql":
		dialector = mysql.Open(config.Mysql.Dsn)
		log.Info("Connecting mysql database")
	default:
		dialector = sqlite.Open(config.Sqlite.Filename)
		log.Info(fmt.Sprintf("Connecting sqlite database at %s", config.Sqlite.Filename))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log.StandardLogger(), config.SlowQueryThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect %s database: %w", config.Driver, err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate Create or update all tables
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Project{},
		&Member{},
		&Label{},
		&ProjectLabel{},
		&Image{},
		&Annotation{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
