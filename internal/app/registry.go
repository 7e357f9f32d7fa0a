package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clublive/clublive/internal/core"
	"github.com/clublive/clublive/internal/domain"
)

// RoomListing is one row of the registry snapshot, for observability
// endpoints.
type RoomListing struct {
	MatchID          domain.MatchID   `json:"matchId"`
	Name             domain.RoomName  `json:"roomName"`
	State            domain.RoomState `json:"state"`
	ParticipantCount int              `json:"participantCount"`
	LastActivityAt   time.Time        `json:"lastActivityAt"`
}

// Registry owns the process-wide matchId -> room map. Its lock guards
// only the map structure; each room serializes its own mutations, and
// the two locks are never held together with room locks taken first.
//
// Rooms are never shared across instances and never persisted; a
// process restart drops them all by design.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.MatchID]core.RoomService

	defaults       domain.RoomSettings
	activityWindow time.Duration
	now            func() time.Time
}

func NewRegistry(defaults domain.RoomSettings, activityWindow time.Duration) *Registry {
	return &Registry{
		rooms:          make(map[domain.MatchID]core.RoomService),
		defaults:       defaults,
		activityWindow: activityWindow,
		now:            time.Now,
	}
}

// GetOrCreate returns the room for a match, creating it with default
// settings when absent. This is the join-path entry point: creation is
// idempotent, an existing room is never replaced.
func (r *Registry) GetOrCreate(matchID domain.MatchID) core.RoomService {
	r.mu.RLock()
	room, ok := r.rooms[matchID]
	r.mu.RUnlock()
	if ok {
		return room
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok = r.rooms[matchID]; ok {
		return room
	}
	room = core.NewRoomService(matchID, r.defaults, r.activityWindow, r.now)
	r.rooms[matchID] = room
	log.Info().Str("module", "app.registry").Str("match", string(matchID)).Msg("room created")
	return room
}

// Create is the explicit creation entry point. Like GetOrCreate it is
// idempotent: when the room already exists it is returned untouched and
// the options are ignored, so a duplicate create call can never discard
// live participants. When creating, the settings patch is merged over
// the defaults, and the creator joins as an admin.
func (r *Registry) Create(matchID domain.MatchID, creator domain.UserID, opts *domain.SettingsPatch) (core.RoomService, error) {
	if opts != nil {
		if err := opts.Validate(); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	if room, ok := r.rooms[matchID]; ok {
		r.mu.Unlock()
		return room, nil
	}
	settings := r.defaults
	if opts != nil {
		settings = opts.Apply(settings)
	}
	room := core.NewRoomService(matchID, settings, r.activityWindow, r.now)
	r.rooms[matchID] = room
	r.mu.Unlock()

	if creator != "" {
		p, err := domain.NewParticipant(creator, string(creator), "", domain.CategoryAdmin)
		if err != nil {
			return nil, err
		}
		if err := room.Join(p); err != nil {
			return nil, err
		}
	}
	log.Info().Str("module", "app.registry").Str("match", string(matchID)).Str("creator", string(creator)).Msg("room created")
	return room, nil
}

func (r *Registry) Get(matchID domain.MatchID) (core.RoomService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[matchID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// Delete removes a room from the registry. The actor must hold ADMIN in
// that room; there is no drain or grace period.
func (r *Registry) Delete(matchID domain.MatchID, actor domain.UserID) error {
	room, err := r.Get(matchID)
	if err != nil {
		return err
	}
	if !room.HasAdmin(actor) {
		return domain.ErrPermissionDenied
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// The map entry may have been purged and recreated since the admin
	// check; authority in the old room must not delete the new one.
	if r.rooms[matchID] != room {
		return domain.ErrRoomNotFound
	}
	delete(r.rooms, matchID)
	log.Info().Str("module", "app.registry").Str("match", string(matchID)).Str("actor", string(actor)).Msg("room deleted")
	return nil
}

// All returns a point-in-time listing of every room.
func (r *Registry) All() []RoomListing {
	r.mu.RLock()
	rooms := make([]core.RoomService, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	out := make([]RoomListing, 0, len(rooms))
	for _, room := range rooms {
		snap := room.Snapshot()
		out = append(out, RoomListing{
			MatchID:          snap.MatchID,
			Name:             snap.Name,
			State:            snap.State,
			ParticipantCount: len(snap.Participants),
			LastActivityAt:   snap.LastActivityAt,
		})
	}
	return out
}

// Sweep purges every room that is not active and has been idle longer
// than threshold. A failure on one room never aborts the rest of the
// sweep. Returns the number of rooms purged.
func (r *Registry) Sweep(threshold time.Duration) int {
	r.mu.RLock()
	candidates := make(map[domain.MatchID]core.RoomService, len(r.rooms))
	for id, room := range r.rooms {
		candidates[id] = room
	}
	r.mu.RUnlock()

	now := r.now()
	purged := 0
	for id, room := range candidates {
		if !r.sweepOne(id, room, now, threshold) {
			continue
		}
		purged++
	}
	return purged
}

func (r *Registry) sweepOne(id domain.MatchID, room core.RoomService, now time.Time, threshold time.Duration) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "app.registry").Str("match", string(id)).Interface("panic", rec).Msg("purge failed")
			ok = false
		}
	}()
	// Cheap pre-check without the registry lock.
	if !room.PurgeEligible(now, threshold) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[id] != room {
		return false
	}
	// Closing is atomic with the map removal: the room re-verifies
	// eligibility under its own lock and, once closed, rejects any
	// late mutation from a stale reference with ErrRoomClosed.
	if !room.CloseIfPurgeable(now, threshold) {
		return false
	}
	delete(r.rooms, id)
	log.Info().Str("module", "app.registry").Str("match", string(id)).Time("last_activity", room.LastActivity()).Msg("room purged")
	return true
}
