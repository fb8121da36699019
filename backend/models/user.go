package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username     string `gorm:"unique;not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"default:user"` // user, admin
	Group        string
	University   string
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// All lists every entity the backend migrates, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Lesson{},
		&Test{},
		&TestQuestion{},
		&QuestionOption{},
		&TestAttempt{},
		&TestAnswer{},
	}
}
