package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clublive/clublive/internal/domain"
)

// statusFor maps core error kinds to HTTP status codes. The core never
// decides externally visible failure behavior itself.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrRoomClosed),
		errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSpectatorsDisabled),
		errors.Is(err, domain.ErrSpectatorCapacity),
		errors.Is(err, domain.ErrRoomEnded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidMaxSpectators),
		errors.Is(err, domain.ErrInvalidTimeout),
		errors.Is(err, domain.ErrUnknownCategory),
		errors.Is(err, domain.ErrUserIDEmpty),
		errors.Is(err, domain.ErrDisplayNameTooLong):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
