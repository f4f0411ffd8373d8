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

type UserRepository struct {
	redis *redis.Client
}

func NewUserRepository(redisClient *redis.Client) *UserRepository {
	return &UserRepository{
		redis: redisClient,
	}
}

// Create stores a user record. Registration itself lives in the CRUD layer;
// this exists for seeding and tests.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	return r.redis.SetJSON(ctx, redis.UserKey(user.ID), user, 0)
}

// GetByID retrieves a user
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	err := r.redis.GetJSON(ctx, redis.UserKey(userID), &user)
	if err != nil {
		if err == redis.Nil {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetBalance returns the user's current balance
func (r *UserRepository) GetBalance(ctx context.Context, userID string) (float64, error) {
	return r.redis.GetFloat(ctx, redis.UserBalanceKey(userID), 0)
}

// SetBalance overwrites the user's balance (seeding only)
func (r *UserRepository) SetBalance(ctx context.Context, userID string, balance float64) error {
	return r.redis.Set(ctx, redis.UserBalanceKey(userID), balance, 0)
}

// AdjustBalance applies a delta to the user's balance and appends the
// matching ledger entry in one transaction. Used by externally-originated
// events (deposit approvals etc.) fanned out through the broadcaster.
func (r *UserRepository) AdjustBalance(ctx context.Context, userID string, delta float64, reason string) (*model.LedgerEntry, error) {
	balanceKey := redis.UserBalanceKey(userID)

	var entry *model.LedgerEntry
	err := r.redis.Watch(ctx, func(tx *redislib.Tx) error {
		balance, err := tx.Get(ctx, balanceKey).Float64()
		if err != nil && err != redislib.Nil {
			return err
		}

		e := model.LedgerEntry{
			ID:            uuid.New().String(),
			UserID:        userID,
			Amount:        delta,
			BalanceBefore: balance,
			BalanceAfter:  balance + delta,
			Reason:        reason,
			CreatedAt:     time.Now(),
		}
		data, err := json.Marshal(&e)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			pipe.IncrByFloat(ctx, balanceKey, delta)
			pipe.LPush(ctx, redis.UserLedgerKey(userID), data)
			return nil
		})
		if err != nil {
			return err
		}

		entry = &e
		return nil
	}, balanceKey)

	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListLedger returns a user's most recent ledger entries, newest first
func (r *UserRepository) ListLedger(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	raw, err := r.redis.LRange(ctx, redis.UserLedgerKey(userID), 0, int64(limit-1))
	if err != nil {
		return nil, err
	}

	entries := make([]*model.LedgerEntry, 0, len(raw))
	for _, item := range raw {
		var e model.LedgerEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// GetOutcomePolicy returns the user's settlement policy; users with no
// stored policy get the platform default.
func (r *UserRepository) GetOutcomePolicy(ctx context.Context, userID string) (*model.OutcomePolicy, error) {
	var policy model.OutcomePolicy
	err := r.redis.GetJSON(ctx, redis.UserPolicyKey(userID), &policy)
	if err != nil {
		if err == redis.Nil {
			return &model.OutcomePolicy{UserID: userID, Override: model.OutcomeDefault}, nil
		}
		return nil, err
	}
	return &policy, nil
}

// SetOutcomePolicy stores a user's settlement policy (admin tooling)
func (r *UserRepository) SetOutcomePolicy(ctx context.Context, policy *model.OutcomePolicy) error {
	return r.redis.SetJSON(ctx, redis.UserPolicyKey(policy.UserID), policy, 0)
}

// GetPlatformWinRate returns the platform-wide default win rate in percent
func (r *UserRepository) GetPlatformWinRate(ctx context.Context, fallback float64) (float64, error) {
	return r.redis.GetFloat(ctx, redis.PlatformWinRateKey(), fallback)
}

// SeedPlatformWinRate stores the default win rate if none is set yet
func (r *UserRepository) SeedPlatformWinRate(ctx context.Context, rate float64) error {
	_, err := r.redis.SetNX(ctx, redis.PlatformWinRateKey(), rate, 0)
	return err
}
