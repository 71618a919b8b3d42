package domain

import (
	"strings"
	"time"
)

// MemberStatus is the lifecycle state of a member record in the external
// identity service.
type MemberStatus string

const (
	MemberStatusApproved MemberStatus = "approved"
	MemberStatusPending  MemberStatus = "pending"
	MemberStatusOffline  MemberStatus = "offline"
)

// MemberContact holds the member's name as recorded by the identity
// service.
type MemberContact struct {
	FirstName string
	LastName  string
}

// Member is an external identity record a Partner references via MemberID.
// It is read-mostly; this system never mutates members.
type Member struct {
	ID         string
	LoginEmail string
	Contact    MemberContact
	Status     MemberStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName derives a human-readable name: first + last name, else the
// login email, else the raw id.
func (m *Member) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(m.Contact.FirstName) + " " + strings.TrimSpace(m.Contact.LastName))
	if name != "" {
		return name
	}
	if m.LoginEmail != "" {
		return m.LoginEmail
	}
	return m.ID
}
