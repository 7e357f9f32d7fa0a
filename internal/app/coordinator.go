package app

import (
	"errors"

	"github.com/clublive/clublive/internal/core"
	"github.com/clublive/clublive/internal/domain"
)

// Coordinator is the operation surface consumed by the HTTP and socket
// adapters. It resolves rooms through the registry and delegates to the
// room aggregate; it performs no network I/O itself. Broadcasting a
// change to connected clients is the caller's concern.
type Coordinator struct {
	Registry *Registry
}

func NewCoordinator(reg *Registry) *Coordinator {
	return &Coordinator{Registry: reg}
}

func (c *Coordinator) CreateOrGetRoom(matchID domain.MatchID, creator domain.UserID, opts *domain.SettingsPatch) (core.RoomDTO, error) {
	room, err := c.Registry.Create(matchID, creator, opts)
	if err != nil {
		return core.RoomDTO{}, err
	}
	return room.Snapshot(), nil
}

func (c *Coordinator) GetRoomInfo(matchID domain.MatchID) (core.RoomDTO, error) {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return core.RoomDTO{}, err
	}
	return room.Snapshot(), nil
}

func (c *Coordinator) UpdateRoomSettings(matchID domain.MatchID, actor domain.UserID, patch domain.SettingsPatch) (domain.RoomSettings, error) {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return domain.RoomSettings{}, err
	}
	return room.UpdateSettings(actor, patch)
}

func (c *Coordinator) UpdateRoomMetadata(matchID domain.MatchID, actor domain.UserID, md domain.RoomMetadata) error {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return err
	}
	return room.UpdateMetadata(actor, md)
}

func (c *Coordinator) DeleteRoom(matchID domain.MatchID, actor domain.UserID) error {
	return c.Registry.Delete(matchID, actor)
}

func (c *Coordinator) StartRoom(matchID domain.MatchID, actor domain.UserID) error {
	return c.lifecycle(matchID, actor, core.RoomService.Start)
}

func (c *Coordinator) PauseRoom(matchID domain.MatchID, actor domain.UserID) error {
	return c.lifecycle(matchID, actor, core.RoomService.Pause)
}

func (c *Coordinator) ResumeRoom(matchID domain.MatchID, actor domain.UserID) error {
	return c.lifecycle(matchID, actor, core.RoomService.Resume)
}

func (c *Coordinator) EndRoom(matchID domain.MatchID, actor domain.UserID) error {
	return c.lifecycle(matchID, actor, core.RoomService.End)
}

func (c *Coordinator) lifecycle(matchID domain.MatchID, actor domain.UserID, op func(core.RoomService, domain.UserID) error) error {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return err
	}
	return op(room, actor)
}

// JoinRoom is the self-service join path: the room is created on first
// join, and capacity gates apply before any mutation. A room closed by
// the cleanup sweep between resolve and join is re-resolved, so the
// join lands in a fresh room instead of a purged one.
func (c *Coordinator) JoinRoom(matchID domain.MatchID, p domain.Participant) (core.RoomDTO, error) {
	for {
		room := c.Registry.GetOrCreate(matchID)
		err := room.Join(p)
		if errors.Is(err, domain.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return core.RoomDTO{}, err
		}
		return room.Snapshot(), nil
	}
}

// LeaveRoom removes the caller from the room. Leaving an unknown room
// or a room one is not in is a no-op, not an error.
func (c *Coordinator) LeaveRoom(matchID domain.MatchID, userID domain.UserID) bool {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return false
	}
	return room.Remove(userID)
}

func (c *Coordinator) AddParticipant(matchID domain.MatchID, actor domain.UserID, p domain.Participant) (domain.Participant, error) {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return domain.Participant{}, err
	}
	return room.AddParticipant(actor, p)
}

func (c *Coordinator) UpdateParticipant(matchID domain.MatchID, actor, target domain.UserID, patch core.ParticipantPatch) (domain.Participant, error) {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return domain.Participant{}, err
	}
	return room.UpdateParticipant(actor, target, patch)
}

// RemoveParticipant is the admin-kick path; self-leave goes through
// LeaveRoom and needs no ADMIN.
func (c *Coordinator) RemoveParticipant(matchID domain.MatchID, actor, target domain.UserID) error {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return err
	}
	return room.Kick(actor, target)
}

func (c *Coordinator) FindParticipant(matchID domain.MatchID, userID domain.UserID) (domain.Participant, error) {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return domain.Participant{}, err
	}
	p, ok := room.Find(userID)
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (c *Coordinator) SearchParticipants(matchID domain.MatchID, query string, filter core.SearchFilter) ([]domain.Participant, error) {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return nil, err
	}
	return room.Search(query, filter), nil
}

func (c *Coordinator) MuteParticipant(matchID domain.MatchID, actor, target domain.UserID) error {
	return c.moderate(matchID, actor, target, core.RoomService.Mute)
}

func (c *Coordinator) BanParticipant(matchID domain.MatchID, actor, target domain.UserID) error {
	return c.moderate(matchID, actor, target, core.RoomService.Ban)
}

func (c *Coordinator) PromoteParticipant(matchID domain.MatchID, actor, target domain.UserID) error {
	return c.moderate(matchID, actor, target, core.RoomService.Promote)
}

func (c *Coordinator) DemoteParticipant(matchID domain.MatchID, actor, target domain.UserID) error {
	return c.moderate(matchID, actor, target, core.RoomService.Demote)
}

func (c *Coordinator) moderate(matchID domain.MatchID, actor, target domain.UserID, op func(core.RoomService, domain.UserID, domain.UserID) error) error {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return err
	}
	return op(room, actor, target)
}

// RecordMessage and RecordEvent are called by the chat and match-event
// pipelines after delivering through the broadcast layer.
func (c *Coordinator) RecordMessage(matchID domain.MatchID) error {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return err
	}
	room.RecordMessage()
	return nil
}

func (c *Coordinator) RecordEvent(matchID domain.MatchID) error {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return err
	}
	room.RecordEvent()
	return nil
}

func (c *Coordinator) GetAnalytics(matchID domain.MatchID) (domain.RoomAnalytics, error) {
	room, err := c.Registry.Get(matchID)
	if err != nil {
		return domain.RoomAnalytics{}, err
	}
	return room.Analytics(), nil
}

func (c *Coordinator) GetAllRooms() []RoomListing {
	return c.Registry.All()
}
