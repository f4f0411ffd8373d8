package service

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"flashtrade/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeed(prices *memPrices, hub Broadcaster, seed int64) *PriceFeed {
	return NewPriceFeed(prices, hub, time.Second, 0.5, rand.New(rand.NewSource(seed)))
}

func TestFeedSkipsTickWithoutSubscribers(t *testing.T) {
	prices := newMemPrices(map[string]float64{"BTCUSD": 65000})
	hub := newCaptureBroadcaster()
	hub.hasSubs = false

	feed := newTestFeed(prices, hub, 1)
	feed.Tick(context.Background())

	assert.Zero(t, prices.listCalls, "no subscriber means no read, write or publish")
	assert.Empty(t, hub.channelMessages(model.ChannelPrices))
	assert.Equal(t, 65000.0, prices.get("BTCUSD").Price)
}

func TestFeedPerturbsWithinBounds(t *testing.T) {
	start := map[string]float64{"BTCUSD": 65000, "ETHUSD": 3200, "EURUSD": 1.08}
	prices := newMemPrices(start)
	hub := newCaptureBroadcaster()

	feed := newTestFeed(prices, hub, 99)
	feed.Tick(context.Background())

	published := hub.channelMessages(model.ChannelPrices)
	require.Len(t, published, 1)
	batch := published[0].(*model.PriceUpdatesMessage)
	require.Len(t, batch.Data, len(start))

	for _, update := range batch.Data {
		old := start[update.Instrument]
		assert.InDelta(t, old, update.Price, old*0.005+0.001, "drift bounded at ±0.5%%")
		// price rounding can nudge the reported change a hair past the bound
		assert.LessOrEqual(t, math.Abs(update.PercentChange), 0.51)
		assert.Equal(t, update.Price, prices.get(update.Instrument).Price, "published price is the persisted price")
	}
}

func TestFeedIsolatesFailingInstrument(t *testing.T) {
	prices := newMemPrices(map[string]float64{"BTCUSD": 65000, "ETHUSD": 3200})
	prices.failSymbol = "BTCUSD"
	hub := newCaptureBroadcaster()

	feed := newTestFeed(prices, hub, 5)
	feed.Tick(context.Background())

	published := hub.channelMessages(model.ChannelPrices)
	require.Len(t, published, 1)
	batch := published[0].(*model.PriceUpdatesMessage)
	require.Len(t, batch.Data, 1, "the failing instrument is dropped, not the batch")
	assert.Equal(t, "ETHUSD", batch.Data[0].Instrument)
	assert.Equal(t, 65000.0, prices.get("BTCUSD").Price)
}

func TestFeedTicksAccumulate(t *testing.T) {
	prices := newMemPrices(map[string]float64{"BTCUSD": 65000})
	hub := newCaptureBroadcaster()

	feed := newTestFeed(prices, hub, 7)
	for i := 0; i < 50; i++ {
		feed.Tick(context.Background())
	}

	final := prices.get("BTCUSD").Price
	assert.NotEqual(t, 65000.0, final)
	// 50 ticks of at most ±0.5% stay well inside these rails
	assert.Greater(t, final, 65000.0*math.Pow(0.995, 50))
	assert.Less(t, final, 65000.0*math.Pow(1.005, 50))
}
