package db

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/iedon/peerapi/config"
	"github.com/iedon/peerapi/logger"
)

// SettingNetASN is the settings key holding the network administrator's ASN
const SettingNetASN = "NET_ASN"

// Database wraps the relational store
type Database struct {
	gorm *gorm.DB
	log  *logger.Logger
}

// Open connects to the configured MySQL database
func Open(cfg *config.Database, log *logger.Logger) (*Database, error) {
	gdb, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	return &Database{gorm: gdb, log: log.Named("database")}, nil
}

// OpenWithDialector connects using an arbitrary GORM dialector. Tests use
// this with a temporary SQLite database.
func OpenWithDialector(dialector gorm.Dialector, log *logger.Logger) (*Database, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Database{gorm: gdb, log: log.Named("database")}, nil
}

// Migrate creates or updates the schema for the three tables the control
// plane owns
func (d *Database) Migrate() error {
	return d.gorm.AutoMigrate(&Router{}, &BgpSession{}, &Setting{})
}

// DB exposes the underlying GORM handle for read-only queries
func (d *Database) DB() *gorm.DB {
	return d.gorm
}

// Transaction runs fn inside a single store transaction. A non-nil error
// from fn rolls the transaction back.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.gorm.Transaction(fn)
}

// Close releases the underlying connection pool
func (d *Database) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AdminASN reads the designated network administrator's ASN from the
// settings table. It is re-read on every call because the value can change
// at runtime through the admin endpoint.
func (d *Database) AdminASN() (uint, error) {
	var setting Setting
	err := d.gorm.Where("`key` = ?", SettingNetASN).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s setting: %w", SettingNetASN, err)
	}

	asn, err := strconv.ParseUint(setting.Value, 10, 32)
	if err != nil {
		d.log.Error("Invalid %s setting value %q: %v", SettingNetASN, setting.Value, err)
		return 0, nil
	}
	return uint(asn), nil
}
