package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/dkeye/huddle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func member(id string) domain.Member {
	return domain.Member{ID: domain.ConnectionID(id), Name: "user-" + id, JoinedAt: t0}
}

func TestRoomFirstJoinerIsHost(t *testing.T) {
	r := NewRoom("standup", t0)

	snap, first, ok := r.Add(member("c1"))
	require.True(t, ok)
	assert.True(t, first)
	assert.Equal(t, domain.ConnectionID("c1"), snap.Host)

	for i := 2; i <= 4; i++ {
		snap, first, ok = r.Add(member(fmt.Sprintf("c%d", i)))
		require.True(t, ok)
		assert.False(t, first)
	}
	require.Equal(t, 4, snap.Count())
	assert.Equal(t, domain.ConnectionID("c1"), snap.Host)
	for i, m := range snap.Members {
		assert.Equal(t, domain.ConnectionID(fmt.Sprintf("c%d", i+1)), m.ID)
		assert.Equal(t, i == 0, m.IsHost)
	}
}

func TestRoomReAddKeepsSequence(t *testing.T) {
	r := NewRoom("r", t0)
	r.Add(member("a"))
	r.Add(member("b"))

	again := member("a")
	again.Name = "renamed"
	snap, first, ok := r.Add(again)
	require.True(t, ok)
	assert.False(t, first)
	require.Equal(t, 2, snap.Count())
	assert.Equal(t, "renamed", snap.Members[0].Name)
	assert.Equal(t, uint64(1), snap.Members[0].Seq)
}

func TestRoomHostSuccessionIsEarliestRemaining(t *testing.T) {
	r := NewRoom("r", t0)
	for _, id := range []string{"a", "b", "c", "d"} {
		r.Add(member(id))
	}
	// b leaves first so c is not accidentally the second-oldest
	res, ok := r.Remove("b", t0, true)
	require.True(t, ok)
	assert.False(t, res.WasHost)
	assert.Nil(t, res.NewHost)

	res, ok = r.Remove("a", t0, true)
	require.True(t, ok)
	assert.True(t, res.WasHost)
	require.NotNil(t, res.NewHost)
	assert.Equal(t, domain.ConnectionID("c"), res.NewHost.ID)
	assert.True(t, res.NewHost.IsHost)
	assert.Equal(t, domain.ConnectionID("c"), res.Room.Host)
	assert.False(t, res.Deleted)
}

func TestRoomLastLeaveCloses(t *testing.T) {
	r := NewRoom("r", t0)
	r.Add(member("a"))

	res, ok := r.Remove("a", t0, true)
	require.True(t, ok)
	assert.True(t, res.Deleted)
	assert.True(t, r.Closed())

	_, _, ok = r.Add(member("b"))
	assert.False(t, ok, "closed room must refuse joins")
}

func TestRoomRemoveUnknown(t *testing.T) {
	r := NewRoom("r", t0)
	_, ok := r.Remove("ghost", t0, true)
	assert.False(t, ok)
}

func TestRoomCloseIfIdle(t *testing.T) {
	r := NewRoom("r", t0)
	assert.False(t, r.CloseIfIdle(t0.Add(time.Second), time.Minute))
	assert.True(t, r.CloseIfIdle(t0.Add(2*time.Minute), time.Minute))

	busy := NewRoom("busy", t0)
	busy.Add(member("a"))
	assert.False(t, busy.CloseIfIdle(t0.Add(time.Hour), time.Minute))

	kept := NewRoom("kept", t0)
	kept.Add(member("a"))
	_, _ = kept.Remove("a", t0.Add(time.Minute), false)
	assert.False(t, kept.Closed())
	assert.False(t, kept.CloseIfIdle(t0.Add(90*time.Second), time.Minute))
	assert.True(t, kept.CloseIfIdle(t0.Add(3*time.Minute), time.Minute))
}

func TestRoomRepairHost(t *testing.T) {
	r := NewRoom("r", t0)
	r.Add(member("a"))
	r.Add(member("b"))
	r.Add(member("c"))

	_, repaired := r.RepairHost()
	assert.False(t, repaired)

	r.mu.Lock()
	r.host = "gone"
	r.mu.Unlock()

	h, repaired := r.RepairHost()
	require.True(t, repaired)
	assert.Equal(t, domain.ConnectionID("a"), h.ID)
	assert.Equal(t, domain.ConnectionID("a"), r.Snapshot().Host)
}

func TestSnapshotHelpers(t *testing.T) {
	r := NewRoom("r", t0)
	r.Add(member("a"))
	snap, _, _ := r.Add(member("b"))

	others := snap.Others("a")
	require.Len(t, others, 1)
	assert.Equal(t, domain.ConnectionID("b"), others[0].ID)

	h, ok := snap.Member(snap.Host)
	require.True(t, ok)
	assert.Equal(t, "user-a", h.Name)

	_, ok = snap.Member("ghost")
	assert.False(t, ok)
}
