package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLivenessEvictsSilentConnections(t *testing.T) {
	hub, _ := newTestHub(t)
	stale := hub.Register(nil)
	fresh := hub.Register(nil)

	monitor := NewLivenessMonitor(hub, 30*time.Second, 60*time.Second)

	// two probe windows later with no liveness signal from "stale"
	monitor.now = func() time.Time { return time.Now().Add(61 * time.Second) }
	fresh.touch(time.Now().Add(30 * time.Second))

	monitor.Tick()

	assert.NotContains(t, hub.Snapshot(), stale, "missed timeout window means eviction")
	assert.Contains(t, hub.Snapshot(), fresh)
}

func TestLivenessTouchKeepsConnectionAlive(t *testing.T) {
	hub, _ := newTestHub(t)
	client := hub.Register(nil)

	monitor := NewLivenessMonitor(hub, 30*time.Second, 60*time.Second)
	monitor.now = func() time.Time { return time.Now().Add(45 * time.Second) }

	monitor.Tick()
	assert.Contains(t, hub.Snapshot(), client, "inside the window the client is probed, not evicted")
}

func TestHeartbeatTouch(t *testing.T) {
	hub, _ := newTestHub(t)
	client := hub.Register(nil)

	before := client.LastSeen()
	time.Sleep(5 * time.Millisecond)
	hub.Touch(client)

	assert.True(t, client.LastSeen().After(before))
}
