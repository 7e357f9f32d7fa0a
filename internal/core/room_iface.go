package core

import (
	"time"

	"github.com/clublive/clublive/internal/domain"
)

// RoomDTO is a read-only snapshot of a room for APIs. Participant
// entries are detached copies.
type RoomDTO struct {
	MatchID        domain.MatchID       `json:"matchId"`
	Name           domain.RoomName      `json:"roomName"`
	State          domain.RoomState     `json:"state"`
	IsActive       bool                 `json:"isActive"`
	Settings       domain.RoomSettings  `json:"settings"`
	Metadata       domain.RoomMetadata  `json:"metadata"`
	Participants   []domain.Participant `json:"participants"`
	CreatedAt      time.Time            `json:"createdAt"`
	LastActivityAt time.Time            `json:"lastActivityAt"`
}

// ParticipantPatch is a partial participant update. Nil fields are left
// untouched; Permissions replaces the whole set when present.
type ParticipantPatch struct {
	Category    *domain.Category    `json:"category,omitempty"`
	Permissions []domain.Permission `json:"permissions,omitempty"`
	DisplayName *string             `json:"displayName,omitempty"`
	TeamID      *string             `json:"teamId,omitempty"`
	IsTyping    *bool               `json:"isTyping,omitempty"`
	IsOnline    *bool               `json:"isOnline,omitempty"`
}

// SearchFilter narrows a participant search. Zero values mean no
// filtering on that axis.
type SearchFilter struct {
	Category domain.Category
	TeamID   string
}

// RoomService is the core-facing API of one live match room. All
// methods are safe for concurrent use; mutations on the same room are
// serialized, and reads return copies. It owns membership and room
// state but never touches transport resources.
type RoomService interface {
	MatchID() domain.MatchID
	Name() domain.RoomName
	State() domain.RoomState
	IsActive() bool
	LastActivity() time.Time
	Snapshot() RoomDTO

	// HasAdmin is the room-scoped authorization gate: true iff the user
	// is currently in the room and holds the ADMIN tag.
	HasAdmin(userID domain.UserID) bool

	Settings() domain.RoomSettings
	UpdateSettings(actor domain.UserID, patch domain.SettingsPatch) (domain.RoomSettings, error)
	UpdateMetadata(actor domain.UserID, md domain.RoomMetadata) error

	Join(p domain.Participant) error
	AddParticipant(actor domain.UserID, p domain.Participant) (domain.Participant, error)
	UpdateParticipant(actor, target domain.UserID, patch ParticipantPatch) (domain.Participant, error)
	Remove(userID domain.UserID) bool
	Find(userID domain.UserID) (domain.Participant, bool)
	Search(query string, filter SearchFilter) []domain.Participant

	Mute(actor, target domain.UserID) error
	Ban(actor, target domain.UserID) error
	Promote(actor, target domain.UserID) error
	Demote(actor, target domain.UserID) error
	Kick(actor, target domain.UserID) error

	Start(actor domain.UserID) error
	Pause(actor domain.UserID) error
	Resume(actor domain.UserID) error
	End(actor domain.UserID) error

	RecordMessage()
	RecordEvent()
	Analytics() domain.RoomAnalytics

	// PurgeEligible reports whether the room may be dropped by the
	// cleanup sweep: not active and idle longer than threshold.
	PurgeEligible(now time.Time, threshold time.Duration) bool

	// CloseIfPurgeable re-checks eligibility under the room's write
	// lock and, when still eligible, closes the room. After a close
	// every mutation fails with ErrRoomClosed, so a join racing the
	// sweep cannot land in an orphaned aggregate.
	CloseIfPurgeable(now time.Time, threshold time.Duration) bool
}
