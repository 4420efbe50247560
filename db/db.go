package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nusenusewhen-bot/lights-mm/logger"
)

func NewDB(uri string, logDBQueries bool) (*gorm.DB, error) {
	// sqlite needs a few pragmas to behave under concurrent pollers
	if !strings.Contains(uri, "?") {
		uri = uri + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}

	gormConfig := &gorm.Config{
		TranslateError: true,
	}
	if logDBQueries {
		gormConfig.Logger = gormlogger.New(&gormLogWriter{}, gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      gormlogger.Info,
		})
	}

	gormDB, err := gorm.Open(sqlite.Open(uri), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	// a single writer connection avoids SQLITE_BUSY under WAL
	sqlDB.SetMaxOpenConns(1)

	return gormDB, nil
}

type gormLogWriter struct{}

func (w *gormLogWriter) Printf(format string, args ...interface{}) {
	logger.Logger.Debug().Msgf(format, args...)
}
