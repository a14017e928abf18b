package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/olonts/salein-reminders/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_invoices",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.InvoiceModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_invoices_status_created ON invoices (status, created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.InvoiceModel{})
			},
		},
		{
			ID: "000002_create_reminders",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ReminderModel{}); err != nil {
					return err
				}
				indexes := []string{
					// Matches the due-reminder predicate: status, sendDate, retryCount.
					`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders (send_date, retry_count) WHERE status = 'pending'`,
					`CREATE INDEX IF NOT EXISTS idx_reminders_invoice_id ON reminders (invoice_id)`,
					`CREATE INDEX IF NOT EXISTS idx_reminders_status_created ON reminders (status, created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ReminderModel{})
			},
		},
		{
			ID: "000003_create_reminder_attempts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeliveryAttemptModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_attempts_reminder_id ON reminder_attempts (reminder_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
			},
		},
	})

	return m.Migrate()
}
