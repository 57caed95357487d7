package db

import (
	"fmt"

	"github.com/droverdev/drover/internal/config"
	sqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL DSN from database configuration.
func DSN(dc config.DatabaseConfig) string {
	mc := sqldriver.NewConfig()
	mc.User = dc.User
	mc.Passwd = dc.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", dc.Host, dc.Port)
	mc.DBName = dc.Name
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Connect opens a GORM connection to the configured database.
func Connect(dc config.DatabaseConfig) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch dc.Driver {
	case "mysql":
		dial = mysql.Open(DSN(dc))
	default:
		dial = sqlite.Open(dc.Path)
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect (%s): %w", dc.Driver, err)
	}
	return db, nil
}

// ConnectAdmin opens a MySQL connection without selecting a database,
// used for CREATE/DROP DATABASE operations. Not meaningful for sqlite.
func ConnectAdmin(dc config.DatabaseConfig) (*gorm.DB, error) {
	admin := dc
	admin.Name = ""
	db, err := gorm.Open(mysql.Open(DSN(admin)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: admin connect to %s:%d: %w", dc.Host, dc.Port, err)
	}
	return db, nil
}

// DropDatabase drops the named database if it exists.
func DropDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: drop database %s: %w", name, err)
	}
	return nil
}

// CreateDatabase creates the named database if it doesn't already exist.
func CreateDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: create database %s: %w", name, err)
	}
	return nil
}
