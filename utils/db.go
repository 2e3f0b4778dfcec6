package utils

import (
	"os"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hoshi-social/feedstream/model"
)

// GetDBConnection connects to the Postgres instance configured by
// DB_CONN_STR.
func GetDBConnection() (*gorm.DB, error) {
	dsn := os.Getenv("DB_CONN_STR")
	if len(dsn) == 0 {
		return nil, errors.New("DB_CONN_STR is not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to connect database")
	}
	return db, nil
}

// GetTestDBConnection connects to the test database configured by
// TEST_DB_CONN_STR, falling back to DB_CONN_STR. Tests that need a real
// database skip themselves when neither is set.
func GetTestDBConnection() (*gorm.DB, error) {
	dsn := os.Getenv("TEST_DB_CONN_STR")
	if len(dsn) == 0 {
		dsn = os.Getenv("DB_CONN_STR")
	}
	if len(dsn) == 0 {
		return nil, errors.New("no test database configured")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to connect test database")
	}
	return db, nil
}

// DatabaseSetup migrates every table the feed engine owns. Entity tables
// (users, groups, medias) belong to the content-management collaborator but
// are migrated here too so a fresh dev database works out of the box.
func DatabaseSetup(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Activity{},
		&model.User{},
		&model.Group{},
		&model.GroupMember{},
		&model.Media{},
	)
}
