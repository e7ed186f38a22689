package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviator-hackers/backend-avapk/internal/config"
)

func newTestDirectory(t *testing.T) (*RedisDirectory, *miniredis.Miniredis) {
	t.Helper()
	d, mr := newStoppedDirectory(t)
	require.NoError(t, d.Start(context.Background()))
	return d, mr
}

// newStoppedDirectory returns a directory whose worker has not started yet,
// so updates pile up until Start.
func newStoppedDirectory(t *testing.T) (*RedisDirectory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	d, err := NewRedisDirectory(config.RedisConfig{
		Address:           mr.Addr(),
		Prefix:            "test",
		AdvertiseAddress:  "10.0.0.7:3000",
		HeartbeatInterval: 10 * time.Millisecond,
		KeyTTL:            time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d, mr
}

func TestAnnounceAndLookup(t *testing.T) {
	d, mr := newTestDirectory(t)

	d.Announce("abc123", "Alice")
	require.Eventually(t, func() bool { return mr.Exists("test:session:abc123") }, time.Second, 5*time.Millisecond)

	entry, err := d.Lookup(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, Entry{Address: "10.0.0.7:3000", DisplayName: "Alice"}, entry)
	assert.Equal(t, time.Second, mr.TTL("test:session:abc123"))
}

func TestLookupMissing(t *testing.T) {
	d, _ := newTestDirectory(t)

	_, err := d.Lookup(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestWithdrawWaitsForLastConnection(t *testing.T) {
	d, mr := newTestDirectory(t)
	key := "test:session:shared"

	d.Announce("shared", "Alice")
	d.Announce("shared", "Alice again")
	d.Withdraw("shared")
	d.Announce("other", "Bob")
	require.Eventually(t, func() bool { return mr.Exists("test:session:other") }, time.Second, 5*time.Millisecond)
	assert.True(t, mr.Exists(key))

	d.Withdraw("shared")
	require.Eventually(t, func() bool { return !mr.Exists(key) }, time.Second, 5*time.Millisecond)

	// Withdrawing an unknown session is ignored.
	d.Withdraw("never-announced")
}

func TestBurstIsNotDropped(t *testing.T) {
	d, mr := newStoppedDirectory(t)

	const sessions = 2000
	for i := 0; i < sessions; i++ {
		d.Announce(fmt.Sprintf("s%d", i), "User")
	}
	require.NoError(t, d.Start(context.Background()))

	require.Eventually(t, func() bool { return len(mr.Keys()) == sessions }, 5*time.Second, 10*time.Millisecond)
	entry, err := d.Lookup(context.Background(), "s1999")
	require.NoError(t, err)
	assert.Equal(t, "User", entry.DisplayName)
}

func TestUpdatesCoalescePerSession(t *testing.T) {
	d, mr := newStoppedDirectory(t)

	// Joined and left before the worker ran: nothing is written.
	d.Announce("brief", "Bob")
	d.Withdraw("brief")

	// Rejoined under a new name: only the final state lands.
	d.Announce("abc123", "Alice")
	d.Withdraw("abc123")
	d.Announce("abc123", "Alice B")

	require.NoError(t, d.Start(context.Background()))
	require.Eventually(t, func() bool { return mr.Exists("test:session:abc123") }, time.Second, 5*time.Millisecond)

	entry, err := d.Lookup(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", entry.DisplayName)
	assert.False(t, mr.Exists("test:session:brief"))

	d.mu.Lock()
	_, tracked := d.sessions["brief"]
	d.mu.Unlock()
	assert.False(t, tracked)
}

func TestFailedWriteIsRetried(t *testing.T) {
	d, mr := newStoppedDirectory(t)
	ctx := context.Background()
	key := "test:session:abc123"

	mr.SetError("LOADING server is loading")
	d.Announce("abc123", "Alice")
	d.flush(ctx)
	assert.Contains(t, d.dirty, "abc123")

	mr.SetError("")
	d.flush(ctx)
	assert.True(t, mr.Exists(key))
	assert.Empty(t, d.dirty)

	mr.SetError("LOADING server is loading")
	d.Withdraw("abc123")
	d.flush(ctx)
	assert.Contains(t, d.dirty, "abc123")

	mr.SetError("")
	d.flush(ctx)
	assert.False(t, mr.Exists(key))
	assert.Empty(t, d.sessions)
}

func TestHeartbeatRefreshesTTL(t *testing.T) {
	d, mr := newTestDirectory(t)
	key := "test:session:abc123"

	d.Announce("abc123", "Alice")
	require.Eventually(t, func() bool { return mr.Exists(key) }, time.Second, 5*time.Millisecond)

	mr.FastForward(900 * time.Millisecond)
	require.Eventually(t, func() bool { return mr.TTL(key) == time.Second }, time.Second, 5*time.Millisecond)
}

func TestNewRedisDirectoryFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisDirectory(config.RedisConfig{Address: addr})
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	var d Directory = Nop{}
	d.Announce("a", "b")
	d.Withdraw("a")
	_, err := d.Lookup(context.Background(), "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, d.Start(context.Background()))
	assert.NoError(t, d.Close())
}
