package models

import "time"

// Role limits what an account may do on the grow API.
type Role string

const (
	// RoleOperator may press buttons, change setpoints and fan curves and run irrigation.
	RoleOperator Role = "operator"
	// RoleViewer reads state, schedules and history only.
	RoleViewer Role = "viewer"
)

// CanControl reports whether the role may drive actuators or change state.
func (r Role) CanControl() bool { return r == RoleOperator }

// User is an account of the grow API. The first account is the operator,
// later sign-ups are viewers.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"-"`
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID int  `json:"user_id"`
	Role   Role `json:"role"`
}
