package authdb

import "time"

// AdminUser is an admin-surface account. Adapted from the teacher's
// pkg/model/user.go.
type AdminUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64" json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditEntry records one mutating admin action (peer add/remove), exposed
// read-only for operator introspection. Not part of spec.md's required
// route table; a supplemental feature grounded on the teacher's audit log.
type AuditEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Timestamp time.Time `json:"timestamp"`
}
