package repository

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Seed creates the default privileges and roles and links them. Existing
// rows and role grants are left alone.
func Seed(db *gorm.DB, logg *logrus.Logger) error {
	privilegeRepo := NewPrivilegeRepo(db)
	roleRepo := NewRoleRepo(db)

	if err := privilegeRepo.SeedDefaults(); err != nil {
		return err
	}
	if err := roleRepo.SeedDefaults(); err != nil {
		return err
	}
	if err := roleRepo.AssignDefaultPrivileges(); err != nil {
		return err
	}
	logg.Info("Default roles and privileges seeded")
	return nil
}
