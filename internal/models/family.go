package models

import "time"

// Family is the tenant boundary: members share its expenses and incomes.
type Family struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	InviteCode string    `json:"invite_code" db:"invite_code"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// FamilyMember represents the join table between families and users
type FamilyMember struct {
	ID       int64     `json:"id" db:"id"`
	FamilyID int64     `json:"family_id" db:"family_id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	Role     Role      `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// IsAdmin reports whether the membership grants admin rights.
func (m *FamilyMember) IsAdmin() bool {
	return m != nil && m.Role == RoleAdmin
}

// Member pairs a user with their role in one family.
type Member struct {
	User     *User     `json:"user"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// FamilySummary is a row of the admin family listing.
type FamilySummary struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	MembersCount int       `json:"members_count"`
}

// Invite codes are InviteCodeLength characters drawn from InviteCodeAlphabet.
const (
	InviteCodeLength   = 8
	InviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)
