package entity

import "time"

// User roles
const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
	RoleDriver   = "DRIVER"
)

// User is a system account. Customers, staff and drivers share the table,
// distinguished by role.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Email     string    `json:"email" gorm:"size:128;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	Password  string    `json:"-" gorm:"size:128;not null"`
	Role      string    `json:"role" gorm:"size:20;not null;default:EMPLOYEE"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// ValidRoles guards role values coming in from register/update requests.
var ValidRoles = map[string]bool{
	RoleAdmin:    true,
	RoleManager:  true,
	RoleEmployee: true,
	RoleDriver:   true,
}
