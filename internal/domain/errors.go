package domain

import "errors"

// Error kinds surfaced by the room coordinator. The HTTP adapter maps
// them to status codes; the core never retries and never panics on
// them.
var (
	// Not-found kind.
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")

	// Permission kind. Never silently downgraded.
	ErrPermissionDenied = errors.New("admin permission required")

	// Capacity kind. The room is left unmodified.
	ErrSpectatorsDisabled = errors.New("spectators are not allowed in this room")
	ErrSpectatorCapacity  = errors.New("spectator capacity reached")

	// Lifecycle: no transition leaves the ended state.
	ErrRoomEnded = errors.New("room already ended")

	// ErrRoomClosed marks a room the cleanup sweep has purged. A caller
	// holding a stale reference must re-resolve through the registry;
	// mutating a closed room would be silently lost otherwise.
	ErrRoomClosed = errors.New("room closed")
)
