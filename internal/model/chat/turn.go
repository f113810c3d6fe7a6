package chat

import "time"

// Role identifies who produced a turn. Persisted as text, constrained both at
// the store boundary and by a CHECK constraint on the column.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the three persisted kinds.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Turn is one immutable message record in a session's transcript. Rows are
// append-only: written once, never updated or deleted.
type Turn struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"sessionId"`
	Role      Role      `gorm:"size:16;not null;check:role IN ('system','user','assistant')" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
