package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clublive/clublive/internal/domain"
)

func TestSweeperRunPurgesAndStops(t *testing.T) {
	reg, clk := newTestRegistry()
	room, err := reg.Create("m1", "u1", nil)
	require.NoError(t, err)
	require.NoError(t, room.End("u1"))
	clk.Advance(31 * time.Minute)

	sweeper := NewSweeper(reg, 5*time.Millisecond, 30*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := reg.Get("m1")
		return err != nil
	}, time.Second, 5*time.Millisecond, "idle ended room should be purged by a tick")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}

func TestSweeperLeavesActiveRoomsAlone(t *testing.T) {
	reg, clk := newTestRegistry()
	reg.GetOrCreate("m1")
	clk.Advance(24 * time.Hour)

	sweeper := NewSweeper(reg, 5*time.Millisecond, 30*time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sweeper.Run(ctx)

	_, err := reg.Get("m1")
	assert.NoError(t, err)
	assert.NotEqual(t, domain.RoomState(""), reg.GetOrCreate("m1").State())
}
