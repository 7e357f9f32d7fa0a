package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clublive/clublive/internal/app"
	"github.com/clublive/clublive/internal/core"
	"github.com/clublive/clublive/internal/domain"
)

type RoomHandlers struct {
	Coord   *app.Coordinator
	Gateway WSGateway
}

func matchID(c *gin.Context) domain.MatchID {
	return domain.MatchID(c.Param("matchId"))
}

// actor is the caller identity installed by the upstream auth layer.
func actor(c *gin.Context) domain.UserID {
	return domain.UserID(c.GetHeader("X-User-ID"))
}

func (h *RoomHandlers) notify(id domain.MatchID, event string, payload any) {
	if h.Gateway == nil {
		return
	}
	h.Gateway.BroadcastToRoom(string(domain.RoomNameFor(id)), event, payload)
}

type createRoomRequest struct {
	MatchID   string                `json:"matchId" binding:"required"`
	CreatorID string                `json:"creatorId"`
	Settings  *domain.SettingsPatch `json:"settings,omitempty"`
}

func (h *RoomHandlers) CreateOrGetRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid matchId"})
		return
	}
	room, err := h.Coord.CreateOrGetRoom(domain.MatchID(req.MatchID), domain.UserID(req.CreatorID), req.Settings)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *RoomHandlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Coord.GetAllRooms()})
}

func (h *RoomHandlers) GetRoomInfo(c *gin.Context) {
	room, err := h.Coord.GetRoomInfo(matchID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *RoomHandlers) DeleteRoom(c *gin.Context) {
	id := matchID(c)
	if err := h.Coord.DeleteRoom(id, actor(c)); err != nil {
		writeError(c, err)
		return
	}
	h.notify(id, "room_deleted", nil)
	c.Status(http.StatusNoContent)
}

func (h *RoomHandlers) UpdateSettings(c *gin.Context) {
	var patch domain.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings patch"})
		return
	}
	id := matchID(c)
	settings, err := h.Coord.UpdateRoomSettings(id, actor(c), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	h.notify(id, "settings_updated", settings)
	c.JSON(http.StatusOK, settings)
}

func (h *RoomHandlers) UpdateMetadata(c *gin.Context) {
	var md domain.RoomMetadata
	if err := c.ShouldBindJSON(&md); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metadata"})
		return
	}
	id := matchID(c)
	if err := h.Coord.UpdateRoomMetadata(id, actor(c), md); err != nil {
		writeError(c, err)
		return
	}
	h.notify(id, "metadata_updated", md)
	c.JSON(http.StatusOK, md)
}

func (h *RoomHandlers) lifecycle(event string, op func(domain.MatchID, domain.UserID) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := matchID(c)
		if err := op(id, actor(c)); err != nil {
			writeError(c, err)
			return
		}
		h.notify(id, event, nil)
		c.Status(http.StatusNoContent)
	}
}

type joinRequest struct {
	UserID      string          `json:"userId" binding:"required"`
	DisplayName string          `json:"displayName"`
	UserRole    string          `json:"userRole"`
	TeamID      string          `json:"teamId"`
	Category    domain.Category `json:"category"`
}

func (r joinRequest) participant() (domain.Participant, error) {
	category := r.Category
	if category == "" {
		category = domain.CategoryParticipant
	}
	name := r.DisplayName
	if name == "" {
		name = r.UserID
	}
	p, err := domain.NewParticipant(domain.UserID(r.UserID), name, r.UserRole, category)
	if err != nil {
		return domain.Participant{}, err
	}
	p.TeamID = r.TeamID
	p.TransportHandle = uuid.NewString()
	return p, nil
}

func (h *RoomHandlers) JoinRoom(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid userId"})
		return
	}
	p, err := req.participant()
	if err != nil {
		writeError(c, err)
		return
	}
	id := matchID(c)
	room, err := h.Coord.JoinRoom(id, p)
	if err != nil {
		writeError(c, err)
		return
	}
	h.notify(id, "participant_joined", p)
	c.JSON(http.StatusOK, room)
}

func (h *RoomHandlers) LeaveRoom(c *gin.Context) {
	id := matchID(c)
	user := actor(c)
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-User-ID header"})
		return
	}
	removed := h.Coord.LeaveRoom(id, user)
	if removed {
		h.notify(id, "participant_left", gin.H{"userId": user})
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

type addParticipantRequest struct {
	joinRequest
	Permissions []domain.Permission `json:"permissions"`
}

func (h *RoomHandlers) AddParticipant(c *gin.Context) {
	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid userId"})
		return
	}
	p, err := req.participant()
	if err != nil {
		writeError(c, err)
		return
	}
	p.Permissions = domain.NewPermissionSet(req.Permissions...)
	id := matchID(c)
	added, err := h.Coord.AddParticipant(id, actor(c), p)
	if err != nil {
		writeError(c, err)
		return
	}
	h.notify(id, "participant_added", added)
	c.JSON(http.StatusCreated, added)
}

func (h *RoomHandlers) FindParticipant(c *gin.Context) {
	p, err := h.Coord.FindParticipant(matchID(c), domain.UserID(c.Param("userId")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *RoomHandlers) UpdateParticipant(c *gin.Context) {
	var patch core.ParticipantPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant patch"})
		return
	}
	id := matchID(c)
	p, err := h.Coord.UpdateParticipant(id, actor(c), domain.UserID(c.Param("userId")), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	h.notify(id, "participant_updated", p)
	c.JSON(http.StatusOK, p)
}

func (h *RoomHandlers) RemoveParticipant(c *gin.Context) {
	id := matchID(c)
	target := domain.UserID(c.Param("userId"))
	if err := h.Coord.RemoveParticipant(id, actor(c), target); err != nil {
		writeError(c, err)
		return
	}
	h.notify(id, "participant_kicked", gin.H{"userId": target})
	c.Status(http.StatusNoContent)
}

func (h *RoomHandlers) SearchParticipants(c *gin.Context) {
	filter := core.SearchFilter{
		Category: domain.Category(c.Query("category")),
		TeamID:   c.Query("teamId"),
	}
	participants, err := h.Coord.SearchParticipants(matchID(c), c.Query("q"), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func (h *RoomHandlers) moderation(event string, op func(domain.MatchID, domain.UserID, domain.UserID) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := matchID(c)
		target := domain.UserID(c.Param("userId"))
		if err := op(id, actor(c), target); err != nil {
			writeError(c, err)
			return
		}
		h.notify(id, event, gin.H{"userId": target})
		c.Status(http.StatusNoContent)
	}
}

func (h *RoomHandlers) RecordMessage(c *gin.Context) {
	if err := h.Coord.RecordMessage(matchID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoomHandlers) RecordEvent(c *gin.Context) {
	if err := h.Coord.RecordEvent(matchID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AttachSocket hands the connection to the broadcast gateway. The room
// must exist; spectating a never-created room is a 404.
func (h *RoomHandlers) AttachSocket(ctx context.Context, c *gin.Context) {
	id := matchID(c)
	if _, err := h.Coord.GetRoomInfo(id); err != nil {
		writeError(c, err)
		return
	}
	h.Gateway.Serve(ctx, c, string(domain.RoomNameFor(id)))
}

func (h *RoomHandlers) GetAnalytics(c *gin.Context) {
	analytics, err := h.Coord.GetAnalytics(matchID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}
