package connection

import "time"

const (
	RoleOwner  = "owner"
	RoleMember = "member"

	StatusActive = "active"
)

// Member is one user's membership in a connection (a travel group).
type Member struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

func (m Member) IsOwner() bool {
	return m.Role == RoleOwner
}
