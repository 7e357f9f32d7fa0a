package core

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clublive/clublive/internal/domain"
)

// roomImpl is a threadsafe in-memory room aggregate. All mutations take
// the write lock, so operations on one room are linearized; promote and
// demote re-insert the participant under a single lock hold, so no
// reader ever observes the participant absent in between.
type roomImpl struct {
	matchID domain.MatchID
	name    domain.RoomName

	mu           sync.RWMutex
	participants map[domain.UserID]domain.Participant
	settings     domain.RoomSettings
	metadata     domain.RoomMetadata
	state        domain.RoomState
	closed       bool

	messagesSent   uint64
	eventsRecorded uint64

	createdAt      time.Time
	lastActivityAt time.Time

	activityWindow time.Duration
	now            func() time.Time
}

func NewRoomService(matchID domain.MatchID, settings domain.RoomSettings, activityWindow time.Duration, clock func() time.Time) RoomService {
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	return &roomImpl{
		matchID:        matchID,
		name:           domain.RoomNameFor(matchID),
		participants:   make(map[domain.UserID]domain.Participant),
		settings:       settings,
		state:          domain.StateActive,
		createdAt:      now,
		lastActivityAt: now,
		activityWindow: activityWindow,
		now:            clock,
	}
}

func (r *roomImpl) MatchID() domain.MatchID { return r.matchID }
func (r *roomImpl) Name() domain.RoomName   { return r.name }

func (r *roomImpl) State() domain.RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *roomImpl) IsActive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state == domain.StateActive
}

func (r *roomImpl) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivityAt
}

// touchLocked refreshes the room activity stamp. Monotonic: a stale
// clock reading never moves it backwards.
func (r *roomImpl) touchLocked() {
	if now := r.now(); now.After(r.lastActivityAt) {
		r.lastActivityAt = now
	}
}

func (r *roomImpl) hasAdminLocked(userID domain.UserID) bool {
	p, ok := r.participants[userID]
	return ok && p.HasPermission(domain.PermissionAdmin)
}

func (r *roomImpl) HasAdmin(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasAdminLocked(userID)
}

func (r *roomImpl) requireAdminLocked(actor domain.UserID) error {
	if !r.hasAdminLocked(actor) {
		log.Warn().Str("module", "core.room").Str("room", string(r.name)).Str("actor", string(actor)).Msg("admin permission denied")
		return domain.ErrPermissionDenied
	}
	return nil
}

// spectatorCountLocked counts current spectators, excluding one user id
// so a spectator re-joining does not count against themselves.
func (r *roomImpl) spectatorCountLocked(excluding domain.UserID) uint {
	var n uint
	for id, p := range r.participants {
		if id != excluding && p.Category == domain.CategorySpectator {
			n++
		}
	}
	return n
}

func (r *roomImpl) gateSpectatorLocked(userID domain.UserID) error {
	if !r.settings.AllowSpectators {
		return domain.ErrSpectatorsDisabled
	}
	if r.spectatorCountLocked(userID) >= r.settings.MaxSpectators {
		return domain.ErrSpectatorCapacity
	}
	return nil
}

// insertLocked adds or replaces a participant record. Joining under the
// ADMIN category grants the ADMIN tag, so the room creator can manage
// the room they opened.
func (r *roomImpl) insertLocked(p domain.Participant) {
	now := r.now()
	if p.Permissions == nil {
		p.Permissions = domain.NewPermissionSet()
	}
	if p.Category == domain.CategoryAdmin {
		p.Permissions.Grant(domain.PermissionAdmin)
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = now
	}
	p.LastActivityAt = now
	r.participants[p.UserID] = p
	r.touchLocked()
}

func (r *roomImpl) Join(p domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrRoomClosed
	}
	if p.Category == domain.CategorySpectator {
		if err := r.gateSpectatorLocked(p.UserID); err != nil {
			return err
		}
	}
	r.insertLocked(p)
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("user", string(p.UserID)).Str("category", string(p.Category)).Msg("participant joined")
	return nil
}

func (r *roomImpl) AddParticipant(actor domain.UserID, p domain.Participant) (domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.Participant{}, domain.ErrRoomClosed
	}
	if err := r.requireAdminLocked(actor); err != nil {
		return domain.Participant{}, err
	}
	if p.Category == domain.CategorySpectator {
		if err := r.gateSpectatorLocked(p.UserID); err != nil {
			return domain.Participant{}, err
		}
	}
	r.insertLocked(p)
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("user", string(p.UserID)).Str("actor", string(actor)).Msg("participant added")
	return r.participants[p.UserID].Clone(), nil
}

func (r *roomImpl) UpdateParticipant(actor, target domain.UserID, patch ParticipantPatch) (domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.Participant{}, domain.ErrRoomClosed
	}
	if err := r.requireAdminLocked(actor); err != nil {
		return domain.Participant{}, err
	}
	p, ok := r.participants[target]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if patch.Category != nil && *patch.Category != p.Category {
		if !patch.Category.Valid() {
			return domain.Participant{}, domain.ErrUnknownCategory
		}
		if *patch.Category == domain.CategorySpectator {
			if err := r.gateSpectatorLocked(target); err != nil {
				return domain.Participant{}, err
			}
		}
		p.Category = *patch.Category
	}
	if patch.Permissions != nil {
		p.Permissions = domain.NewPermissionSet(patch.Permissions...)
	}
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.TeamID != nil {
		p.TeamID = *patch.TeamID
	}
	if patch.IsTyping != nil {
		p.IsTyping = *patch.IsTyping
	}
	if patch.IsOnline != nil {
		p.IsOnline = *patch.IsOnline
	}
	p.LastActivityAt = r.now()
	r.participants[target] = p
	r.touchLocked()
	return p.Clone(), nil
}

func (r *roomImpl) Remove(userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if _, ok := r.participants[userID]; !ok {
		return false
	}
	delete(r.participants, userID)
	r.touchLocked()
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("user", string(userID)).Msg("participant removed")
	return true
}

func (r *roomImpl) Find(userID domain.UserID) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[userID]
	if !ok {
		return domain.Participant{}, false
	}
	return p.Clone(), true
}

func (r *roomImpl) Search(query string, filter SearchFilter) []domain.Participant {
	q := strings.ToLower(query)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Participant, 0)
	for id, p := range r.participants {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.TeamID != "" && p.TeamID != filter.TeamID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.DisplayName), q) &&
			!strings.Contains(strings.ToLower(string(id)), q) {
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}

func (r *roomImpl) Mute(actor, target domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrRoomClosed
	}
	if err := r.requireAdminLocked(actor); err != nil {
		return err
	}
	p, ok := r.participants[target]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.Permissions.Grant(domain.PermissionMuted)
	p.LastActivityAt = r.now()
	r.participants[target] = p
	r.touchLocked()
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("user", string(target)).Str("actor", string(actor)).Msg("participant muted")
	return nil
}

func (r *roomImpl) Ban(actor, target domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrRoomClosed
	}
	if err := r.requireAdminLocked(actor); err != nil {
		return err
	}
	p, ok := r.participants[target]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.Permissions.Grant(domain.PermissionBanned)
	delete(r.participants, target)
	r.touchLocked()
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("user", string(target)).Str("actor", string(actor)).Msg("participant banned")
	return nil
}

// recategorize re-inserts the target under a new category in one lock
// hold, preserving every other field.
func (r *roomImpl) recategorize(actor, target domain.UserID, to domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrRoomClosed
	}
	if err := r.requireAdminLocked(actor); err != nil {
		return err
	}
	p, ok := r.participants[target]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if to == domain.CategorySpectator && p.Category != domain.CategorySpectator {
		if err := r.gateSpectatorLocked(target); err != nil {
			return err
		}
	}
	delete(r.participants, target)
	p.Category = to
	p.LastActivityAt = r.now()
	r.participants[target] = p
	r.touchLocked()
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("user", string(target)).Str("category", string(to)).Msg("participant recategorized")
	return nil
}

func (r *roomImpl) Promote(actor, target domain.UserID) error {
	return r.recategorize(actor, target, domain.CategoryCoach)
}

func (r *roomImpl) Demote(actor, target domain.UserID) error {
	return r.recategorize(actor, target, domain.CategorySpectator)
}

func (r *roomImpl) Kick(actor, target domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrRoomClosed
	}
	if err := r.requireAdminLocked(actor); err != nil {
		return err
	}
	if _, ok := r.participants[target]; !ok {
		return domain.ErrParticipantNotFound
	}
	delete(r.participants, target)
	r.touchLocked()
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("user", string(target)).Str("actor", string(actor)).Msg("participant kicked")
	return nil
}

func (r *roomImpl) Settings() domain.RoomSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

func (r *roomImpl) UpdateSettings(actor domain.UserID, patch domain.SettingsPatch) (domain.RoomSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.RoomSettings{}, domain.ErrRoomClosed
	}
	if err := r.requireAdminLocked(actor); err != nil {
		return domain.RoomSettings{}, err
	}
	if err := patch.Validate(); err != nil {
		return domain.RoomSettings{}, err
	}
	next := patch.Apply(r.settings)
	// Tightening spectator rules below the current population would
	// break the capacity invariant, so the patch is rejected whole.
	if n := r.spectatorCountLocked(""); n > 0 {
		if !next.AllowSpectators {
			return domain.RoomSettings{}, domain.ErrSpectatorsDisabled
		}
		if n > next.MaxSpectators {
			return domain.RoomSettings{}, domain.ErrSpectatorCapacity
		}
	}
	r.settings = next
	r.touchLocked()
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("actor", string(actor)).Msg("settings updated")
	return next, nil
}

func (r *roomImpl) UpdateMetadata(actor domain.UserID, md domain.RoomMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrRoomClosed
	}
	if err := r.requireAdminLocked(actor); err != nil {
		return err
	}
	r.metadata = md
	r.touchLocked()
	return nil
}

func (r *roomImpl) transition(actor domain.UserID, to domain.RoomState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrRoomClosed
	}
	if err := r.requireAdminLocked(actor); err != nil {
		return err
	}
	if r.state == domain.StateEnded {
		return domain.ErrRoomEnded
	}
	r.state = to
	r.touchLocked()
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("actor", string(actor)).Str("state", string(to)).Msg("lifecycle transition")
	return nil
}

func (r *roomImpl) Start(actor domain.UserID) error  { return r.transition(actor, domain.StateActive) }
func (r *roomImpl) Pause(actor domain.UserID) error  { return r.transition(actor, domain.StatePaused) }
func (r *roomImpl) Resume(actor domain.UserID) error { return r.transition(actor, domain.StateActive) }
func (r *roomImpl) End(actor domain.UserID) error    { return r.transition(actor, domain.StateEnded) }

func (r *roomImpl) RecordMessage() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.messagesSent++
	r.touchLocked()
}

func (r *roomImpl) RecordEvent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.eventsRecorded++
	r.touchLocked()
}

// activeCountLocked counts participants active within the activity
// window ending at now.
func (r *roomImpl) activeCountLocked(now time.Time) int {
	n := 0
	for _, p := range r.participants {
		if now.Sub(p.LastActivityAt) <= r.activityWindow {
			n++
		}
	}
	return n
}

func (r *roomImpl) Analytics() domain.RoomAnalytics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	return domain.RoomAnalytics{
		TotalParticipants:  len(r.participants),
		ActiveParticipants: r.activeCountLocked(now),
		MessagesSent:       r.messagesSent,
		EventsRecorded:     r.eventsRecorded,
		UptimeSeconds:      int64(now.Sub(r.createdAt).Seconds()),
		LastActivity:       r.lastActivityAt,
	}
}

func (r *roomImpl) Snapshot() RoomDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	participants := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		participants = append(participants, p.Clone())
	}
	return RoomDTO{
		MatchID:        r.matchID,
		Name:           r.name,
		State:          r.state,
		IsActive:       r.state == domain.StateActive,
		Settings:       r.settings,
		Metadata:       r.metadata,
		Participants:   participants,
		CreatedAt:      r.createdAt,
		LastActivityAt: r.lastActivityAt,
	}
}

func (r *roomImpl) PurgeEligible(now time.Time, threshold time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.purgeEligibleLocked(now, threshold)
}

func (r *roomImpl) purgeEligibleLocked(now time.Time, threshold time.Duration) bool {
	if r.state == domain.StateActive {
		return false
	}
	return now.Sub(r.lastActivityAt) > threshold
}

func (r *roomImpl) CloseIfPurgeable(now time.Time, threshold time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return true
	}
	// Re-check under the write lock: a join or transition may have
	// slipped in since the sweep's eligibility pre-check.
	if !r.purgeEligibleLocked(now, threshold) {
		return false
	}
	r.closed = true
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Msg("room closed")
	return true
}
