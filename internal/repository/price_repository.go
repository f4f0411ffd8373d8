package repository

import (
	"context"
	"time"

	"flashtrade/internal/model"
	"flashtrade/pkg/redis"
)

type PriceRepository struct {
	redis *redis.Client
}

func NewPriceRepository(redisClient *redis.Client) *PriceRepository {
	return &PriceRepository{
		redis: redisClient,
	}
}

// List returns the latest price for every tracked instrument
func (r *PriceRepository) List(ctx context.Context) ([]*model.InstrumentPrice, error) {
	symbols, err := r.redis.SMembers(ctx, redis.AllInstrumentsKey())
	if err != nil {
		return nil, err
	}

	prices := make([]*model.InstrumentPrice, 0, len(symbols))
	for _, symbol := range symbols {
		var price model.InstrumentPrice
		if err := r.redis.GetJSON(ctx, redis.InstrumentPriceKey(symbol), &price); err != nil {
			continue
		}
		prices = append(prices, &price)
	}
	return prices, nil
}

// Set persists an instrument's latest price
func (r *PriceRepository) Set(ctx context.Context, price *model.InstrumentPrice) error {
	price.UpdatedAt = time.Now()
	if err := r.redis.SetJSON(ctx, redis.InstrumentPriceKey(price.Symbol), price, 0); err != nil {
		return err
	}
	return r.redis.SAdd(ctx, redis.AllInstrumentsKey(), price.Symbol)
}

// Seed registers instruments with a starting price, keeping any price
// already stored from a previous run.
func (r *PriceRepository) Seed(ctx context.Context, symbols []string, startPrice float64) error {
	for _, symbol := range symbols {
		exists, err := r.redis.Exists(ctx, redis.InstrumentPriceKey(symbol))
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := r.Set(ctx, &model.InstrumentPrice{Symbol: symbol, Price: startPrice}); err != nil {
			return err
		}
	}
	return nil
}
