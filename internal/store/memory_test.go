package store

import (
	"sync"
	"testing"
	"time"

	"voxelhunt/internal/domain"
	"voxelhunt/internal/gameid"
	"voxelhunt/internal/match"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThenGet(t *testing.T) {
	s := NewMemoryStore(match.Options{}, 0)
	created := s.Create("g1", "0xaaa")

	got, err := s.Get("g1")
	require.NoError(t, err)
	assert.Same(t, created, got)
	assert.Equal(t, domain.PhaseBuilding, got.Phase())

	snap := got.Snapshot()
	assert.Zero(t, snap.Player1Blocks)
	assert.Zero(t, snap.Player2Blocks)
}

func TestLookupIsCaseAndSpaceInsensitive(t *testing.T) {
	s := NewMemoryStore(match.Options{}, 0)
	created := s.Create("  Swift-Dragon-07 ", "0xaaa")
	assert.Equal(t, "swift-dragon-07", created.ID)

	for _, variant := range []string{"swift-dragon-07", "SWIFT-DRAGON-07", "\tswift-Dragon-07\n"} {
		got, err := s.Get(variant)
		require.NoError(t, err, variant)
		assert.Same(t, created, got)
	}
}

func TestCreateGeneratesID(t *testing.T) {
	s := NewMemoryStore(match.Options{}, 0)
	created := s.Create("", "0xaaa")
	assert.True(t, gameid.IsGenerated(created.ID), created.ID)
}

func TestCreateOverwrites(t *testing.T) {
	s := NewMemoryStore(match.Options{}, 0)
	first := s.Create("g1", "0xaaa")
	second := s.Create("G1", "0xccc")

	got, err := s.Get("g1")
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.NotSame(t, first, got)
	assert.Equal(t, 1, s.Len())
}

func TestGetUnknown(t *testing.T) {
	s := NewMemoryStore(match.Options{}, 0)
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestReap(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	s := NewMemoryStore(match.Options{Now: clock}, time.Hour)
	s.Create("old", "0xaaa")

	mu.Lock()
	now = now.Add(50 * time.Minute)
	mu.Unlock()
	s.Create("fresh", "0xbbb")

	assert.Zero(t, s.Reap(now.Add(5*time.Minute)))
	assert.Equal(t, 1, s.Reap(now.Add(11*time.Minute)))

	_, err := s.Get("old")
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, err = s.Get("fresh")
	assert.NoError(t, err)
}

func TestReapDisabled(t *testing.T) {
	s := NewMemoryStore(match.Options{}, 0)
	s.Create("g1", "0xaaa")
	assert.Zero(t, s.Reap(time.Now().Add(24*365*time.Hour)))
	assert.Equal(t, 1, s.Len())
}
