package models

import "time"

// User represents an account able to log in and own todos.
// Rows are provisioned out-of-band by cmd/seed; the API never
// registers or mutates users.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null" validate:"required,email"`
	Username  string    `json:"username" gorm:"type:varchar(100);not null" validate:"required,min=1,max=100"`
	Password  string    `json:"-" gorm:"column:password_hash;type:varchar(255);not null"` // bcrypt hash, never serialized
	CreatedAt time.Time `json:"created_at"`
}
