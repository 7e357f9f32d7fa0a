package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clublive/clublive/internal/core"
	"github.com/clublive/clublive/internal/domain"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRegistry() (*Registry, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)}
	reg := NewRegistry(domain.DefaultRoomSettings(), 5*time.Minute)
	reg.now = clk.Now
	return reg, clk
}

func joinAs(t *testing.T, room core.RoomService, userID domain.UserID, category domain.Category) {
	t.Helper()
	p, err := domain.NewParticipant(userID, string(userID), "player", category)
	require.NoError(t, err)
	require.NoError(t, room.Join(p))
}

func TestGetOrCreateReturnsSameRoom(t *testing.T) {
	reg, _ := newTestRegistry()

	a := reg.GetOrCreate("m1")
	b := reg.GetOrCreate("m1")
	assert.Same(t, a, b)

	c := reg.GetOrCreate("m2")
	assert.NotSame(t, a, c)
}

func TestCreateIsIdempotent(t *testing.T) {
	reg, _ := newTestRegistry()

	room, err := reg.Create("m1", "u1", nil)
	require.NoError(t, err)
	joinAs(t, room, "u2", domain.CategoryParticipant)

	// A duplicate create must not replace the room or discard its
	// participants.
	again, err := reg.Create("m1", "someone-else", nil)
	require.NoError(t, err)
	assert.Same(t, room, again)
	assert.Equal(t, 2, again.Analytics().TotalParticipants)
	_, ok := again.Find("u2")
	assert.True(t, ok)
}

func TestCreateAppliesOptionsAndCreator(t *testing.T) {
	reg, _ := newTestRegistry()

	max := 7
	room, err := reg.Create("m1", "u1", &domain.SettingsPatch{MaxSpectators: &max})
	require.NoError(t, err)

	assert.Equal(t, uint(7), room.Settings().MaxSpectators)
	assert.True(t, room.HasAdmin("u1"), "creator joins as room admin")
}

func TestCreateRejectsInvalidOptions(t *testing.T) {
	reg, _ := newTestRegistry()

	neg := -3
	_, err := reg.Create("m1", "u1", &domain.SettingsPatch{MaxSpectators: &neg})
	assert.ErrorIs(t, err, domain.ErrInvalidMaxSpectators)

	_, err = reg.Get("m1")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound, "no room left behind")
}

func TestGetUnknownRoom(t *testing.T) {
	reg, _ := newTestRegistry()
	_, err := reg.Get("nope")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestDeleteRequiresRoomAdmin(t *testing.T) {
	reg, _ := newTestRegistry()
	room, err := reg.Create("m1", "u1", nil)
	require.NoError(t, err)
	joinAs(t, room, "u2", domain.CategoryParticipant)

	assert.ErrorIs(t, reg.Delete("m1", "u2"), domain.ErrPermissionDenied)
	assert.ErrorIs(t, reg.Delete("m1", "stranger"), domain.ErrPermissionDenied)

	require.NoError(t, reg.Delete("m1", "u1"))
	_, err = reg.Get("m1")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	assert.ErrorIs(t, reg.Delete("m1", "u1"), domain.ErrRoomNotFound)
}

func TestAllListsRooms(t *testing.T) {
	reg, _ := newTestRegistry()
	room, err := reg.Create("m1", "u1", nil)
	require.NoError(t, err)
	joinAs(t, room, "u2", domain.CategoryParticipant)
	reg.GetOrCreate("m2")

	listings := reg.All()
	require.Len(t, listings, 2)
	byMatch := make(map[domain.MatchID]RoomListing, len(listings))
	for _, l := range listings {
		byMatch[l.MatchID] = l
	}
	assert.Equal(t, 2, byMatch["m1"].ParticipantCount)
	assert.Equal(t, domain.RoomName("match-m1"), byMatch["m1"].Name)
	assert.Equal(t, 0, byMatch["m2"].ParticipantCount)
}

func TestSweepPurgesIdleInactiveRooms(t *testing.T) {
	reg, clk := newTestRegistry()
	threshold := 30 * time.Minute

	ended, err := reg.Create("ended", "u1", nil)
	require.NoError(t, err)
	require.NoError(t, ended.End("u1"))

	paused, err := reg.Create("paused", "u1", nil)
	require.NoError(t, err)
	require.NoError(t, paused.Pause("u1"))

	reg.GetOrCreate("active")

	clk.Advance(31 * time.Minute)
	purged := reg.Sweep(threshold)

	// Pause counts as a soft end for retention, so both non-active
	// rooms go; the active one stays regardless of idle age.
	assert.Equal(t, 2, purged)
	_, err = reg.Get("ended")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = reg.Get("paused")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = reg.Get("active")
	assert.NoError(t, err)
}

func TestSweepClosesRoomAgainstLateJoin(t *testing.T) {
	reg, clk := newTestRegistry()
	room, err := reg.Create("m1", "u1", nil)
	require.NoError(t, err)
	require.NoError(t, room.End("u1"))
	clk.Advance(31 * time.Minute)

	// Simulates a join racing the sweep: the joiner resolved the room
	// before the purge ran.
	held := reg.GetOrCreate("m1")
	require.Same(t, room, held)
	require.Equal(t, 1, reg.Sweep(30*time.Minute))

	p, err := domain.NewParticipant("u2", "u2", "player", domain.CategoryParticipant)
	require.NoError(t, err)
	assert.ErrorIs(t, held.Join(p), domain.ErrRoomClosed,
		"a purged room must reject late joins instead of swallowing them")

	// The coordinator path re-resolves and lands in a fresh room.
	coord := NewCoordinator(reg)
	dto, err := coord.JoinRoom("m1", p)
	require.NoError(t, err)
	assert.Len(t, dto.Participants, 1)

	fresh, err := reg.Get("m1")
	require.NoError(t, err)
	_, ok := fresh.Find("u2")
	assert.True(t, ok, "the join must survive in the replacement room")
}

func TestSweepSkipsRoomRevivedAfterPreCheck(t *testing.T) {
	reg, clk := newTestRegistry()
	room, err := reg.Create("m1", "u1", nil)
	require.NoError(t, err)
	require.NoError(t, room.Pause("u1"))
	clk.Advance(31 * time.Minute)
	require.True(t, room.PurgeEligible(clk.Now(), 30*time.Minute))

	// Activity between the eligibility pre-check and the close must
	// veto the purge: CloseIfPurgeable re-verifies under the room lock.
	require.NoError(t, room.Resume("u1"))
	assert.False(t, room.CloseIfPurgeable(clk.Now(), 30*time.Minute))
	assert.Equal(t, 0, reg.Sweep(30*time.Minute))
	_, err = reg.Get("m1")
	assert.NoError(t, err)
}

func TestDeleteStaleAdminCannotRemoveRecreatedRoom(t *testing.T) {
	reg, clk := newTestRegistry()
	room, err := reg.Create("m1", "u1", nil)
	require.NoError(t, err)
	require.NoError(t, room.End("u1"))
	clk.Advance(31 * time.Minute)
	require.Equal(t, 1, reg.Sweep(30*time.Minute))

	// Same matchId, new room, new admin.
	_, err = reg.Create("m1", "u2", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Delete("m1", "u1"), domain.ErrPermissionDenied,
		"authority in the purged room confers nothing in its successor")
	_, err = reg.Get("m1")
	assert.NoError(t, err)
}

func TestSweepKeepsRecentlyIdleRooms(t *testing.T) {
	reg, clk := newTestRegistry()

	room, err := reg.Create("m1", "u1", nil)
	require.NoError(t, err)
	require.NoError(t, room.End("u1"))

	clk.Advance(29 * time.Minute)
	assert.Equal(t, 0, reg.Sweep(30*time.Minute))
	_, err = reg.Get("m1")
	assert.NoError(t, err)
}
