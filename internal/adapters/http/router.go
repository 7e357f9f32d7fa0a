// Package http adapts the room coordinator to a REST surface. Handlers
// are thin: bind, delegate to the coordinator, map errors, notify the
// broadcast gateway. Authentication happens upstream; the caller's
// identity arrives in the X-User-ID header and room-scoped
// authorization is re-checked inside the core.
package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/clublive/clublive/internal/app"
	"github.com/clublive/clublive/internal/config"
)

// Broadcaster is the push-delivery capability used to notify connected
// clients after successful mutations. Fire-and-forget.
type Broadcaster interface {
	BroadcastToRoom(roomName, eventName string, payload any)
}

// WSGateway additionally accepts socket attachments.
type WSGateway interface {
	Broadcaster
	Serve(ctx context.Context, c *gin.Context, roomName string)
}

func SetupRouter(ctx context.Context, cfg *config.Config, coord *app.Coordinator, gateway WSGateway) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	h := &RoomHandlers{Coord: coord, Gateway: gateway}

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	rooms := api.Group("/rooms")
	rooms.POST("", h.CreateOrGetRoom)
	rooms.GET("", h.ListRooms)
	rooms.GET("/:matchId", h.GetRoomInfo)
	rooms.DELETE("/:matchId", h.DeleteRoom)
	rooms.PATCH("/:matchId/settings", h.UpdateSettings)
	rooms.PUT("/:matchId/metadata", h.UpdateMetadata)
	rooms.GET("/:matchId/analytics", h.GetAnalytics)

	rooms.POST("/:matchId/start", h.lifecycle("room_started", coord.StartRoom))
	rooms.POST("/:matchId/pause", h.lifecycle("room_paused", coord.PauseRoom))
	rooms.POST("/:matchId/resume", h.lifecycle("room_resumed", coord.ResumeRoom))
	rooms.POST("/:matchId/end", h.lifecycle("room_ended", coord.EndRoom))

	rooms.POST("/:matchId/join", h.JoinRoom)
	rooms.POST("/:matchId/leave", h.LeaveRoom)
	rooms.POST("/:matchId/messages", h.RecordMessage)
	rooms.POST("/:matchId/events", h.RecordEvent)

	rooms.GET("/:matchId/participants", h.SearchParticipants)
	rooms.POST("/:matchId/participants", h.AddParticipant)
	rooms.GET("/:matchId/participants/:userId", h.FindParticipant)
	rooms.PATCH("/:matchId/participants/:userId", h.UpdateParticipant)
	rooms.DELETE("/:matchId/participants/:userId", h.RemoveParticipant)

	rooms.POST("/:matchId/participants/:userId/mute", h.moderation("participant_muted", coord.MuteParticipant))
	rooms.POST("/:matchId/participants/:userId/ban", h.moderation("participant_banned", coord.BanParticipant))
	rooms.POST("/:matchId/participants/:userId/promote", h.moderation("participant_promoted", coord.PromoteParticipant))
	rooms.POST("/:matchId/participants/:userId/demote", h.moderation("participant_demoted", coord.DemoteParticipant))

	api.GET("/ws/rooms/:matchId", func(c *gin.Context) {
		h.AttachSocket(ctx, c)
	})

	return r
}
