package service

import (
	"time"

	"flashtrade/pkg/logger"
)

// LivenessMonitor periodically probes every connection and evicts the ones
// that stayed silent past the timeout window.
type LivenessMonitor struct {
	hub *Hub
	log *logger.Logger

	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	ticker *time.Ticker
	done   chan struct{}
}

func NewLivenessMonitor(hub *Hub, interval, timeout time.Duration) *LivenessMonitor {
	return &LivenessMonitor{
		hub:      hub,
		log:      logger.GetLogger(),
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start begins the probe loop
func (m *LivenessMonitor) Start() {
	m.ticker = time.NewTicker(m.interval)
	go m.loop()
	m.log.Infof("Liveness monitor started: probe=%s timeout=%s", m.interval, m.timeout)
}

// Stop stops the probe loop
func (m *LivenessMonitor) Stop() {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	close(m.done)
	m.log.Info("Liveness monitor stopped")
}

func (m *LivenessMonitor) loop() {
	for {
		select {
		case <-m.ticker.C:
			m.Tick()
		case <-m.done:
			return
		}
	}
}

// Tick evicts connections past the timeout window and pings the rest.
// A failed ping counts as a liveness failure.
func (m *LivenessMonitor) Tick() {
	now := m.now()
	deadline := now.Add(writeWait)

	for _, client := range m.hub.Snapshot() {
		if now.Sub(client.LastSeen()) > m.timeout {
			m.log.Infof("Evicting dead WS client: ID=%s UserID=%s", client.ID, client.UserID())
			m.hub.Remove(client)
			continue
		}
		if err := client.Ping(deadline); err != nil {
			m.log.Infof("Probe failed, evicting WS client: ID=%s", client.ID)
			m.hub.Remove(client)
		}
	}
}
