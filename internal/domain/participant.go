// Package domain contains the value types of the live-match room
// coordinator, just meta-data without logic.
package domain

import (
	"errors"
	"time"
)

const MaxDisplayNameLen = 64

var (
	ErrUserIDEmpty        = errors.New("user id empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrUnknownCategory    = errors.New("unknown participant category")
)

type UserID string

// Category is the coarse participant kind, used for spectator capacity
// and client-side grouping.
type Category string

const (
	CategoryParticipant Category = "PARTICIPANT"
	CategorySpectator   Category = "SPECTATOR"
	CategoryReferee     Category = "REFEREE"
	CategoryCoach       Category = "COACH"
	CategoryAdmin       Category = "ADMIN"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryParticipant, CategorySpectator, CategoryReferee, CategoryCoach, CategoryAdmin:
		return true
	}
	return false
}

// Participant is one connected identity inside one room. The transport
// handle is owned by the socket layer and is never interpreted here.
type Participant struct {
	UserID          UserID        `json:"userId"`
	TransportHandle string        `json:"transportHandle,omitempty"`
	UserRole        string        `json:"userRole"`
	DisplayName     string        `json:"displayName"`
	TeamID          string        `json:"teamId,omitempty"`
	JoinedAt        time.Time     `json:"joinedAt"`
	LastActivityAt  time.Time     `json:"lastActivityAt"`
	Permissions     PermissionSet `json:"permissions"`
	IsTyping        bool          `json:"isTyping"`
	IsOnline        bool          `json:"isOnline"`
	Category        Category      `json:"category"`
}

// NewParticipant avoids raw literals in adapters and keeps construction
// obvious.
func NewParticipant(userID UserID, displayName, userRole string, category Category) (Participant, error) {
	if userID == "" {
		return Participant{}, ErrUserIDEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return Participant{}, ErrDisplayNameTooLong
	}
	if !category.Valid() {
		return Participant{}, ErrUnknownCategory
	}
	return Participant{
		UserID:      userID,
		DisplayName: displayName,
		UserRole:    userRole,
		Category:    category,
		Permissions: NewPermissionSet(),
		IsOnline:    true,
	}, nil
}

func (p Participant) HasPermission(perm Permission) bool {
	return p.Permissions.Has(perm)
}

// Clone returns a detached copy safe to hand out of the room lock.
func (p Participant) Clone() Participant {
	out := p
	out.Permissions = p.Permissions.Clone()
	return out
}
