package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"flashtrade/internal/model"
	"flashtrade/pkg/logger"
)

// SettlementScheduler scans open flash trades on a fixed period, resolves
// expired ones against the outcome policy and applies the result exactly
// once. A tick that fails on one trade still processes the rest; a failed
// persistence write leaves the trade active and retryable on the next tick.
type SettlementScheduler struct {
	trades TradeStore
	users  UserStore
	hub    Broadcaster
	log    *logger.Logger

	interval       time.Duration
	returnRatePct  float64
	defaultWinRate float64
	rng            *rand.Rand
	now            func() time.Time

	ticker *time.Ticker
	done   chan struct{}
}

func NewSettlementScheduler(trades TradeStore, users UserStore, hub Broadcaster, interval time.Duration, returnRatePct, defaultWinRate float64, rng *rand.Rand) *SettlementScheduler {
	return &SettlementScheduler{
		trades:         trades,
		users:          users,
		hub:            hub,
		log:            logger.GetLogger(),
		interval:       interval,
		returnRatePct:  returnRatePct,
		defaultWinRate: defaultWinRate,
		rng:            rng,
		now:            time.Now,
		done:           make(chan struct{}),
	}
}

// Start begins the settlement loop
func (s *SettlementScheduler) Start() {
	s.ticker = time.NewTicker(s.interval)
	go s.loop()
	s.log.Infof("Settlement scheduler started: interval=%s", s.interval)
}

// Stop stops the settlement loop. An in-flight pass runs to completion.
func (s *SettlementScheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)
	s.log.Info("Settlement scheduler stopped")
}

func (s *SettlementScheduler) loop() {
	for {
		select {
		case <-s.ticker.C:
			s.SettleExpired(context.Background())
		case <-s.done:
			return
		}
	}
}

// SettleExpired runs one settlement pass over all active trades
func (s *SettlementScheduler) SettleExpired(ctx context.Context) {
	trades, err := s.trades.GetActiveTrades(ctx)
	if err != nil {
		s.log.Errorf("Settlement tick failed to list active trades: %v", err)
		return
	}

	now := s.now()
	for _, trade := range trades {
		if !trade.IsExpired(now) {
			continue
		}
		if err := s.settleTrade(ctx, trade); err != nil {
			// leave the trade active; the next tick retries
			s.log.Errorf("Failed to settle trade %s: %v", trade.ID, err)
		}
	}
}

func (s *SettlementScheduler) settleTrade(ctx context.Context, trade *model.FlashTrade) error {
	won, err := s.resolveOutcome(ctx, trade.UserID)
	if err != nil {
		return err
	}

	outcome := model.TradeStatusLost
	payout := 0.0
	if won {
		outcome = model.TradeStatusWon
		payout = s.winPayout(trade)
	}
	exitPrice := s.exitPrice(trade, won)

	settled, entry, err := s.trades.SettleAtomic(ctx, trade.ID, outcome, exitPrice, payout)
	if err != nil {
		if errors.Is(err, model.ErrTradeAlreadySettled) {
			// another tick won the race; nothing was double-applied
			s.log.Debugf("Trade %s already settled, skipping", trade.ID)
			return nil
		}
		return err
	}

	s.log.Infof("Trade settled: ID=%s UserID=%s Outcome=%s Payout=%.2f Exit=%.5f",
		settled.ID, settled.UserID, outcome, payout, exitPrice)

	s.hub.PublishToUser(settled.UserID, model.ChannelTrades, &model.FlashTradeMessage{
		Type:   model.ServerMsgFlashTrade,
		Action: "result",
		Data: model.TradeResult{
			TradeID:   settled.ID,
			Result:    outcome,
			Payout:    payout,
			ExitPrice: exitPrice,
		},
	})

	if entry != nil {
		if snapshot, err := s.userSnapshot(ctx, settled.UserID, entry.BalanceAfter); err == nil {
			s.hub.PublishToUser(settled.UserID, model.ChannelBalance, snapshot)
		}
	}

	return nil
}

// resolveOutcome applies the user's outcome policy: forced overrides win
// trivially, otherwise a uniform draw against the personal or platform win
// rate decides.
func (s *SettlementScheduler) resolveOutcome(ctx context.Context, userID string) (bool, error) {
	policy, err := s.users.GetOutcomePolicy(ctx, userID)
	if err != nil {
		return false, err
	}

	switch policy.Override {
	case model.OutcomeForceWin:
		return true, nil
	case model.OutcomeForceLoss:
		return false, nil
	}

	rate := s.defaultWinRate
	if policy.WinRate != nil {
		rate = *policy.WinRate
	} else {
		platformRate, err := s.users.GetPlatformWinRate(ctx, s.defaultWinRate)
		if err == nil {
			rate = platformRate
		}
	}

	return s.rng.Float64() < rate/100, nil
}

// winPayout returns stake plus profit. Trades created without an explicit
// return rate use the configured platform rate.
func (s *SettlementScheduler) winPayout(trade *model.FlashTrade) float64 {
	if trade.ReturnRate > 0 {
		return trade.WinPayout()
	}
	t := *trade
	t.ReturnRate = s.returnRatePct
	return t.WinPayout()
}

// exitPrice synthesizes a closing reference value consistent with the
// direction and the outcome: an "up" win or a "down" loss closes above the
// entry, the opposite pairs close below it.
func (s *SettlementScheduler) exitPrice(trade *model.FlashTrade, won bool) float64 {
	movedUp := (trade.Direction == model.DirectionUp) == won
	// between 0.05% and 0.50% away from the entry
	delta := trade.EntryPrice * (0.0005 + s.rng.Float64()*0.0045)
	if movedUp {
		return roundPrice(trade.EntryPrice + delta)
	}
	exit := trade.EntryPrice - delta
	if exit < 0 {
		exit = 0
	}
	return roundPrice(exit)
}

func (s *SettlementScheduler) userSnapshot(ctx context.Context, userID string, balance float64) (*model.UserDataMessage, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.UserDataMessage{
		Type: model.ServerMsgUserData,
		Data: model.UserSnapshot{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
			Balance:  balance,
		},
	}, nil
}
