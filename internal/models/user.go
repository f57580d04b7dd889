package models

import (
	"time"
)

/** --------------------ENTITIES-------------------- */
// User is a registered chat identity
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:100" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"` // bcrypt hash, salt included
	CreatedAt time.Time `json:"createdAt"`
}

/** -------------------- DTOs -------------------- */
// Request
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=1,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Response
type UserResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
}

type LoginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	Token    string `json:"token"`
}
