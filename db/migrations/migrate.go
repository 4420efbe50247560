package migrations

import (
	"gorm.io/gorm"

	"github.com/nusenusewhen-bot/lights-mm/db"
)

func Migrate(gormDB *gorm.DB) error {
	// AutoMigrate all core models
	return gormDB.AutoMigrate(
		&db.UserConfig{},
		&db.Ticket{},
		&db.Confirmation{},
	)
}
