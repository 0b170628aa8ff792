package entities

import (
	"time"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
)

// DefaultAvatar is the avatar filename assigned to users who never uploaded one.
const DefaultAvatar = "default.jpg"

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:80" json:"username"`
	UserCode     string     `gorm:"uniqueIndex;size:20" json:"user_code"`
	Fullname     string     `gorm:"size:100" json:"fullname"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	Position     string     `gorm:"size:100" json:"position,omitempty"`
	PasswordHash string     `gorm:"size:128" json:"-"`
	Role         UserRole   `gorm:"size:20;default:'member'" json:"role"`
	Avatar       string     `gorm:"size:100;default:'default.jpg'" json:"avatar"`

	BorrowLogs []BorrowLog `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (User) TableName() string {
	return "users"
}
