package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/postmangpx/postmangpx/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_callers",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.CallerModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_callers_username ON callers (username)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.CallerModel{})
			},
		},
		{
			ID: "000002_create_credentials",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.CredentialModel{}); err != nil {
					return err
				}
				// The digest is the lookup key and must be globally unique.
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_credentials_key_digest ON credentials (key_digest)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.CredentialModel{})
			},
		},
		{
			ID: "000003_create_channels",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ChannelModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_channels_selection ON channels (caller_id, priority, created_at) WHERE is_active`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ChannelModel{})
			},
		},
		{
			ID: "000004_create_messages",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.MessageModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_messages_status_created ON messages (status, created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_messages_external_id ON messages (external_id) WHERE external_id IS NOT NULL`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.MessageModel{})
			},
		},
		{
			ID: "000005_create_delivery_attempts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeliveryAttemptModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_attempts_message_id ON delivery_attempts (message_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
			},
		},
	})

	return m.Migrate()
}
