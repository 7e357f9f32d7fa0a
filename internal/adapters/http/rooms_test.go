package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clublive/clublive/internal/adapters/ws"
	"github.com/clublive/clublive/internal/app"
	"github.com/clublive/clublive/internal/config"
	"github.com/clublive/clublive/internal/domain"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Mode: "release"}
	registry := app.NewRegistry(domain.DefaultRoomSettings(), 5*time.Minute)
	coordinator := app.NewCoordinator(registry)
	return SetupRouter(context.Background(), cfg, coordinator, ws.NewHub(8))
}

func doJSON(t *testing.T, r *gin.Engine, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-User-ID", actor)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoomManagementScenario(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/rooms", "", `{"matchId":"m1","creatorId":"u1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/rooms/m1/participants", "u1",
		`{"userId":"u2","displayName":"Coach Kim","userRole":"coach","category":"COACH"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/rooms/m1/analytics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var analytics domain.RoomAnalytics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analytics))
	assert.Equal(t, 2, analytics.TotalParticipants)
}

func TestSpectatorJoinAppearsOnline(t *testing.T) {
	r := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/rooms", "", `{"matchId":"m1","creatorId":"u1"}`)

	w := doJSON(t, r, http.MethodPost, "/api/rooms/m1/join", "",
		`{"userId":"u3","category":"SPECTATOR"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/rooms/m1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info struct {
		Participants []domain.Participant `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	var found bool
	for _, p := range info.Participants {
		if p.UserID == "u3" {
			found = true
			assert.True(t, p.IsOnline)
			assert.Equal(t, domain.CategorySpectator, p.Category)
		}
	}
	assert.True(t, found, "u3 should be in the room")
}

func TestSettingsUpdateAuthorization(t *testing.T) {
	r := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/rooms", "", `{"matchId":"m1","creatorId":"u1"}`)
	doJSON(t, r, http.MethodPost, "/api/rooms/m1/join", "", `{"userId":"u2"}`)

	w := doJSON(t, r, http.MethodPatch, "/api/rooms/m1/settings", "u2", `{"allowChat":false}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/api/rooms/m1/settings", "", `{"allowChat":false}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/api/rooms/m1/settings", "u1", `{"allowChat":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	var settings domain.RoomSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.False(t, settings.AllowChat)
}

func TestJoinCapacityConflict(t *testing.T) {
	r := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/rooms", "",
		`{"matchId":"m1","creatorId":"u1","settings":{"maxSpectators":1}}`)

	w := doJSON(t, r, http.MethodPost, "/api/rooms/m1/join", "", `{"userId":"s1","category":"SPECTATOR"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/rooms/m1/join", "", `{"userId":"s2","category":"SPECTATOR"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnknownRoomIs404(t *testing.T) {
	r := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/api/rooms/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/rooms/ghost/analytics", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestModerationEndpoints(t *testing.T) {
	r := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/rooms", "", `{"matchId":"m1","creatorId":"u1"}`)
	doJSON(t, r, http.MethodPost, "/api/rooms/m1/join", "", `{"userId":"u2"}`)

	w := doJSON(t, r, http.MethodPost, "/api/rooms/m1/participants/u2/mute", "u1", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/rooms/m1/participants/u2", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var p domain.Participant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.True(t, p.Permissions.Has(domain.PermissionMuted))

	w = doJSON(t, r, http.MethodPost, "/api/rooms/m1/participants/u2/ban", "u1", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/rooms/m1/participants/u2", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetadataUpdate(t *testing.T) {
	r := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/rooms", "", `{"matchId":"m1","creatorId":"u1"}`)
	doJSON(t, r, http.MethodPost, "/api/rooms/m1/join", "", `{"userId":"u2"}`)

	body := `{"weather":"rain","pitchCondition":"muddy","expectedDurationMinutes":95}`

	w := doJSON(t, r, http.MethodPut, "/api/rooms/m1/metadata", "u2", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/rooms/m1/metadata", "u1", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/rooms/m1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info struct {
		Metadata domain.RoomMetadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "rain", info.Metadata.Weather)
	assert.Equal(t, uint(95), info.Metadata.ExpectedDurationMinutes)
}

func TestLeaveRoomIsSelfService(t *testing.T) {
	r := newTestServer(t)
	doJSON(t, r, http.MethodPost, "/api/rooms", "", `{"matchId":"m1","creatorId":"u1"}`)
	doJSON(t, r, http.MethodPost, "/api/rooms/m1/join", "", `{"userId":"u2"}`)

	w := doJSON(t, r, http.MethodPost, "/api/rooms/m1/leave", "u2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":true`)

	// Leaving again is a no-op, not an error.
	w = doJSON(t, r, http.MethodPost, "/api/rooms/m1/leave", "u2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":false`)
}
