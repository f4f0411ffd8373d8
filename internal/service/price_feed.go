package service

import (
	"context"
	"math"
	"math/rand"
	"time"

	"flashtrade/internal/model"
	"flashtrade/pkg/logger"
)

// PriceFeed perturbs every tracked instrument's synthetic price on a fixed
// period and publishes the batch to the prices channel. Ticks with no
// subscriber skip the write and publish entirely.
type PriceFeed struct {
	prices PriceStore
	hub    Broadcaster
	log    *logger.Logger

	interval    time.Duration
	maxDriftPct float64
	rng         *rand.Rand
	now         func() time.Time

	ticker *time.Ticker
	done   chan struct{}
}

func NewPriceFeed(prices PriceStore, hub Broadcaster, interval time.Duration, maxDriftPct float64, rng *rand.Rand) *PriceFeed {
	return &PriceFeed{
		prices:      prices,
		hub:         hub,
		log:         logger.GetLogger(),
		interval:    interval,
		maxDriftPct: maxDriftPct,
		rng:         rng,
		now:         time.Now,
		done:        make(chan struct{}),
	}
}

// Start begins the feed loop
func (f *PriceFeed) Start() {
	f.ticker = time.NewTicker(f.interval)
	go f.loop()
	f.log.Infof("Price feed started: interval=%s drift=±%.2f%%", f.interval, f.maxDriftPct)
}

// Stop stops the feed loop
func (f *PriceFeed) Stop() {
	if f.ticker != nil {
		f.ticker.Stop()
	}
	close(f.done)
	f.log.Info("Price feed stopped")
}

func (f *PriceFeed) loop() {
	for {
		select {
		case <-f.ticker.C:
			f.Tick(context.Background())
		case <-f.done:
			return
		}
	}
}

// Tick runs one feed pass. A failing instrument is logged and skipped so
// the rest of the batch still moves.
func (f *PriceFeed) Tick(ctx context.Context) {
	if !f.hub.HasSubscribers(model.ChannelPrices) {
		return
	}

	prices, err := f.prices.List(ctx)
	if err != nil {
		f.log.Errorf("Price feed tick failed to list instruments: %v", err)
		return
	}

	updates := make([]model.PriceUpdate, 0, len(prices))
	for _, price := range prices {
		update, err := f.perturb(ctx, price)
		if err != nil {
			f.log.Errorf("Price feed failed for %s: %v", price.Symbol, err)
			continue
		}
		updates = append(updates, update)
	}

	if len(updates) == 0 {
		return
	}

	f.hub.Publish(model.ChannelPrices, &model.PriceUpdatesMessage{
		Type: model.ServerMsgPriceUpdates,
		Data: updates,
	}, "")
}

func (f *PriceFeed) perturb(ctx context.Context, price *model.InstrumentPrice) (model.PriceUpdate, error) {
	// uniform in [-maxDrift, +maxDrift] percent
	drift := (f.rng.Float64()*2 - 1) * f.maxDriftPct
	newPrice := roundPrice(price.Price * (1 + drift/100))

	pctChange := 0.0
	if price.Price > 0 {
		pctChange = (newPrice - price.Price) / price.Price * 100
	}

	price.Price = newPrice
	price.PercentChange = pctChange
	price.UpdatedAt = f.now()

	if err := f.prices.Set(ctx, price); err != nil {
		return model.PriceUpdate{}, err
	}

	return model.PriceUpdate{
		Instrument:    price.Symbol,
		Price:         newPrice,
		PercentChange: pctChange,
	}, nil
}

func roundPrice(val float64) float64 {
	return math.Round(val*100000) / 100000
}
