package domain

import (
	"errors"
	"time"
)

type (
	MatchID  string
	RoomName string
)

// RoomNameFor derives the broadcast channel name for a match. Clients
// subscribe by room name, never by raw match id.
func RoomNameFor(id MatchID) RoomName {
	return RoomName("match-" + string(id))
}

// RoomState is the lifecycle state of a room. A room is live
// immediately upon creation, so there is no separate created state.
type RoomState string

const (
	StateActive RoomState = "active"
	StatePaused RoomState = "paused"
	StateEnded  RoomState = "ended"
)

var (
	ErrInvalidMaxSpectators = errors.New("max spectators must not be negative")
	ErrInvalidTimeout       = errors.New("inactivity timeout must not be negative")
)

// RoomSettings is per-room configuration, mutable only by a room admin.
type RoomSettings struct {
	AllowChat                bool `json:"allowChat"`
	AllowSpectators          bool `json:"allowSpectators"`
	MaxSpectators            uint `json:"maxSpectators"`
	RequireApproval          bool `json:"requireApproval"`
	AutoKickInactive         bool `json:"autoKickInactive"`
	InactivityTimeoutMinutes uint `json:"inactivityTimeoutMinutes"`
	EnableTypingIndicators   bool `json:"enableTypingIndicators"`
	EnableReadReceipts       bool `json:"enableReadReceipts"`
}

func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		AllowChat:                true,
		AllowSpectators:          true,
		MaxSpectators:            100,
		InactivityTimeoutMinutes: 30,
		EnableTypingIndicators:   true,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left
// untouched. Signed ints on the wire so out-of-range input is rejected
// instead of wrapping.
type SettingsPatch struct {
	AllowChat                *bool `json:"allowChat,omitempty"`
	AllowSpectators          *bool `json:"allowSpectators,omitempty"`
	MaxSpectators            *int  `json:"maxSpectators,omitempty"`
	RequireApproval          *bool `json:"requireApproval,omitempty"`
	AutoKickInactive         *bool `json:"autoKickInactive,omitempty"`
	InactivityTimeoutMinutes *int  `json:"inactivityTimeoutMinutes,omitempty"`
	EnableTypingIndicators   *bool `json:"enableTypingIndicators,omitempty"`
	EnableReadReceipts       *bool `json:"enableReadReceipts,omitempty"`
}

func (p SettingsPatch) Validate() error {
	if p.MaxSpectators != nil && *p.MaxSpectators < 0 {
		return ErrInvalidMaxSpectators
	}
	if p.InactivityTimeoutMinutes != nil && *p.InactivityTimeoutMinutes < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// Apply merges the patch into a copy of s. Validate must have been
// called first.
func (p SettingsPatch) Apply(s RoomSettings) RoomSettings {
	if p.AllowChat != nil {
		s.AllowChat = *p.AllowChat
	}
	if p.AllowSpectators != nil {
		s.AllowSpectators = *p.AllowSpectators
	}
	if p.MaxSpectators != nil {
		s.MaxSpectators = uint(*p.MaxSpectators)
	}
	if p.RequireApproval != nil {
		s.RequireApproval = *p.RequireApproval
	}
	if p.AutoKickInactive != nil {
		s.AutoKickInactive = *p.AutoKickInactive
	}
	if p.InactivityTimeoutMinutes != nil {
		s.InactivityTimeoutMinutes = uint(*p.InactivityTimeoutMinutes)
	}
	if p.EnableTypingIndicators != nil {
		s.EnableTypingIndicators = *p.EnableTypingIndicators
	}
	if p.EnableReadReceipts != nil {
		s.EnableReadReceipts = *p.EnableReadReceipts
	}
	return s
}

// RoomMetadata is descriptive context for clients. It never gates any
// behavior.
type RoomMetadata struct {
	Weather                 string `json:"weather,omitempty"`
	PitchCondition          string `json:"pitchCondition,omitempty"`
	ExpectedDurationMinutes uint   `json:"expectedDurationMinutes,omitempty"`
}

// RoomAnalytics is a point-in-time counter snapshot. Participant counts
// are recomputed from the participant set on read, never incremented
// independently, so they cannot drift.
type RoomAnalytics struct {
	TotalParticipants  int       `json:"totalParticipants"`
	ActiveParticipants int       `json:"activeParticipants"`
	MessagesSent       uint64    `json:"messagesSent"`
	EventsRecorded     uint64    `json:"eventsRecorded"`
	UptimeSeconds      int64     `json:"uptimeSeconds"`
	LastActivity       time.Time `json:"lastActivity"`
}
