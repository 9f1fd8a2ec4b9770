// Package domain contains core types for the auth service.
package domain

import "time"

// User represents a system user account.
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(32)" json:"id"`
	Email        string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	DisplayName  string    `gorm:"column:display_name;not null" json:"displayName"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session represents a persisted login session. Only the token hash is stored.
type Session struct {
	ID         string     `gorm:"primaryKey;type:varchar(32)"`
	TokenHash  string     `gorm:"column:token_hash;not null;uniqueIndex"`
	UserID     string     `gorm:"column:user_id;not null;index"`
	UserAgent  string     `gorm:"column:user_agent;not null"`
	IPAddress  string     `gorm:"column:ip_address;not null"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null"`
	LastSeenAt *time.Time `gorm:"column:last_seen_at"`
	RevokedAt  *time.Time `gorm:"column:revoked_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
