package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&FamilyGroup{},
		&Invite{},
		&EmergencyContact{},
		&Membership{},
	); err != nil {
		return err
	}

	// Case-insensitive uniqueness per contact list; makes the accept-time
	// mirror upsert idempotent on (owner, invitee email).
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_user_email_lower " +
			"ON emergency_contacts (user_id, (lower(email)))",
	).Error
}
