package repository

import (
	"fmt"

	"github.com/lshigami/quizhub/internal/model"
	"gorm.io/gorm"
)

// legacyUserEmailIndex is the unique index older schemas carried on
// users.email. Auth subjects are the identity, so two subjects may share an
// address.
const legacyUserEmailIndex = "idx_users_email"

// Migrate brings the schema up to date with the models.
func Migrate(db *gorm.DB) error {
	migrator := db.Migrator()
	if migrator.HasTable(&model.User{}) && migrator.HasIndex(&model.User{}, legacyUserEmailIndex) {
		if err := migrator.DropIndex(&model.User{}, legacyUserEmailIndex); err != nil {
			return fmt.Errorf("drop %s: %w", legacyUserEmailIndex, err)
		}
	}
	return db.AutoMigrate(
		&model.User{},
		&model.Question{},
		&model.QuizSession{},
		&model.Answer{},
		&model.Suggestion{},
	)
}
