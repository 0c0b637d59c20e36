// Package authdb backs the admin surface's user accounts and audit log with
// GORM over sqlite, adapted from the teacher's pkg/db/mysql.go. Explicitly
// scoped to admin/audit concerns only — ephemeral routing and topology
// state never touches this database (spec.md §1's storage-durability
// non-goal stays honored for the core).
package authdb

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the sqlite file at path and migrates the admin schema.
func Open(path string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxOpenConns(1) // sqlite: one writer, matches single-admin-writer discipline

	if err := db.AutoMigrate(&AdminUser{}, &AuditEntry{}); err != nil {
		return nil, err
	}
	return db, nil
}

// AppendAudit records one admin action.
func AppendAudit(db *gorm.DB, actor, action, target string) error {
	return db.Create(&AuditEntry{
		Actor:     actor,
		Action:    action,
		Target:    target,
		Timestamp: time.Now(),
	}).Error
}

// ListAudit returns the most recent audit entries, newest first, bounded by limit.
func ListAudit(db *gorm.DB, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []AuditEntry
	err := db.Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}

// GetUserByUsername looks up an admin account by username.
func GetUserByUsername(db *gorm.DB, username string) (AdminUser, bool, error) {
	var u AdminUser
	err := db.Where("username = ?", username).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return AdminUser{}, false, nil
		}
		return AdminUser{}, false, err
	}
	return u, true, nil
}

// CreateUser inserts a new admin account.
func CreateUser(db *gorm.DB, username, passwordHash string, isAdmin bool) (AdminUser, error) {
	u := AdminUser{Username: username, PasswordHash: passwordHash, IsAdmin: isAdmin, CreatedAt: time.Now()}
	if err := db.Create(&u).Error; err != nil {
		return AdminUser{}, err
	}
	return u, nil
}

// HashPassword hashes a plaintext password for storage in AdminUser.PasswordHash.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether plain matches hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// EnsureBootstrapAdmin creates the named admin account with password if no
// user yet exists with that username. It is a no-op if the account is
// already present, so restarts never reset an operator-changed password.
func EnsureBootstrapAdmin(db *gorm.DB, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, ok, err := GetUserByUsername(db, username)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	_, err = CreateUser(db, username, hash, true)
	return err
}
