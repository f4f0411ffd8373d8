// Package repository provides data access for the application and interacts with Redis.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"flashtrade/internal/model"
	"flashtrade/pkg/redis"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type TradeRepository struct {
	redis *redis.Client
}

func NewTradeRepository(redisClient *redis.Client) *TradeRepository {
	return &TradeRepository{
		redis: redisClient,
	}
}

// Create stores a new flash trade and updates indexes. The CRUD layer has
// already deducted the stake when this is called.
func (r *TradeRepository) Create(ctx context.Context, trade *model.FlashTrade) error {
	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	if trade.Status == "" {
		trade.Status = model.TradeStatusActive
	}
	if trade.StartedAt.IsZero() {
		trade.StartedAt = time.Now()
	}

	trade.CreatedAt = time.Now()
	trade.UpdatedAt = trade.CreatedAt

	if err := r.redis.SetJSON(ctx, redis.TradeKey(trade.ID), trade, 0); err != nil {
		return err
	}

	if err := r.redis.ZAdd(ctx, redis.UserTradesKey(trade.UserID), redis.Z{
		Score:  float64(trade.CreatedAt.UnixMilli()),
		Member: trade.ID,
	}); err != nil {
		return err
	}

	return r.redis.SAdd(ctx, redis.TradesByStatusKey(trade.Status), trade.ID)
}

// GetByID retrieves a trade
func (r *TradeRepository) GetByID(ctx context.Context, tradeID string) (*model.FlashTrade, error) {
	var trade model.FlashTrade
	err := r.redis.GetJSON(ctx, redis.TradeKey(tradeID), &trade)
	if err != nil {
		if err == redis.Nil {
			return nil, model.ErrTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}

// GetActiveTrades retrieves all trades still awaiting settlement
func (r *TradeRepository) GetActiveTrades(ctx context.Context) ([]*model.FlashTrade, error) {
	ids, err := r.redis.SMembers(ctx, redis.TradesByStatusKey(model.TradeStatusActive))
	if err != nil {
		return nil, err
	}

	trades := make([]*model.FlashTrade, 0, len(ids))
	for _, id := range ids {
		trade, err := r.GetByID(ctx, id)
		if err != nil {
			// Index entry without a backing key; skip, the set is advisory
			continue
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

// SettleAtomic performs the single terminal transition of a trade. The trade
// status flip, the balance credit and the ledger append happen in one Redis
// transaction guarded by WATCH on the trade and balance keys, so a trade a
// concurrent tick already settled fails the CAS instead of paying out twice.
// payout must be 0 for a loss.
func (r *TradeRepository) SettleAtomic(ctx context.Context, tradeID, outcome string, exitPrice, payout float64) (*model.FlashTrade, *model.LedgerEntry, error) {
	tradeKey := redis.TradeKey(tradeID)

	var settled *model.FlashTrade
	var entry *model.LedgerEntry

	err := r.redis.Watch(ctx, func(tx *redislib.Tx) error {
		raw, err := tx.Get(ctx, tradeKey).Result()
		if err == redislib.Nil {
			return model.ErrTradeNotFound
		}
		if err != nil {
			return err
		}

		var trade model.FlashTrade
		if err := json.Unmarshal([]byte(raw), &trade); err != nil {
			return err
		}
		if trade.IsSettled() {
			return model.ErrTradeAlreadySettled
		}

		balanceKey := redis.UserBalanceKey(trade.UserID)
		if err := tx.Watch(ctx, balanceKey).Err(); err != nil {
			return err
		}

		now := time.Now()
		trade.Status = outcome
		trade.ExitPrice = &exitPrice
		trade.Payout = payout
		trade.SettledAt = &now
		trade.UpdatedAt = now

		data, err := json.Marshal(&trade)
		if err != nil {
			return err
		}

		var entryData []byte
		entry = nil
		if payout > 0 {
			balance, err := tx.Get(ctx, balanceKey).Float64()
			if err != nil && err != redislib.Nil {
				return err
			}
			e := model.LedgerEntry{
				ID:            uuid.New().String(),
				UserID:        trade.UserID,
				TradeID:       trade.ID,
				Amount:        payout,
				BalanceBefore: balance,
				BalanceAfter:  balance + payout,
				Reason:        model.LedgerReasonTradeWin,
				CreatedAt:     now,
			}
			entryData, err = json.Marshal(&e)
			if err != nil {
				return err
			}
			entry = &e
		}

		_, err = tx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			pipe.Set(ctx, tradeKey, data, 0)
			pipe.SRem(ctx, redis.TradesByStatusKey(model.TradeStatusActive), trade.ID)
			pipe.SAdd(ctx, redis.TradesByStatusKey(trade.Status), trade.ID)
			if entry != nil {
				pipe.IncrByFloat(ctx, redis.UserBalanceKey(trade.UserID), payout)
				pipe.LPush(ctx, redis.UserLedgerKey(trade.UserID), entryData)
			}
			return nil
		})
		if err != nil {
			return err
		}

		settled = &trade
		return nil
	}, tradeKey)

	if err != nil {
		return nil, nil, err
	}
	return settled, entry, nil
}

// ListByUser retrieves a user's trades, newest first
func (r *TradeRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.FlashTrade, int64, error) {
	userTradesKey := redis.UserTradesKey(userID)

	total, err := r.redis.ZCard(ctx, userTradesKey)
	if err != nil {
		return nil, 0, err
	}

	ids, err := r.redis.ZRevRange(ctx, userTradesKey, int64(offset), int64(offset+limit-1))
	if err != nil {
		return nil, 0, err
	}

	trades := make([]*model.FlashTrade, 0, len(ids))
	for _, id := range ids {
		trade, err := r.GetByID(ctx, id)
		if err == nil {
			trades = append(trades, trade)
		}
	}

	return trades, total, nil
}
