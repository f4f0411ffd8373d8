package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"flashtrade/internal/model"
	"flashtrade/pkg/jwt"

	"github.com/google/uuid"
)

// memStore is an in-memory TradeStore + UserStore with the same atomicity
// contract as the Redis repositories.
type memStore struct {
	mu              sync.Mutex
	trades          map[string]*model.FlashTrade
	users           map[string]*model.User
	balances        map[string]float64
	policies        map[string]*model.OutcomePolicy
	ledger          map[string][]*model.LedgerEntry
	platformWinRate float64

	failNextSettles int // injected persistence failures
}

func newMemStore() *memStore {
	return &memStore{
		trades:          make(map[string]*model.FlashTrade),
		users:           make(map[string]*model.User),
		balances:        make(map[string]float64),
		policies:        make(map[string]*model.OutcomePolicy),
		ledger:          make(map[string][]*model.LedgerEntry),
		platformWinRate: 30,
	}
}

func (s *memStore) addUser(id, role string, balance float64) {
	s.users[id] = &model.User{ID: id, Username: id, Role: role, Status: model.StatusActive}
	s.balances[id] = balance
}

func (s *memStore) addTrade(t *model.FlashTrade) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = model.TradeStatusActive
	}
	s.trades[t.ID] = t
}

func (s *memStore) GetActiveTrades(ctx context.Context) ([]*model.FlashTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []*model.FlashTrade
	for _, t := range s.trades {
		if t.Status == model.TradeStatusActive {
			copied := *t
			active = append(active, &copied)
		}
	}
	return active, nil
}

func (s *memStore) SettleAtomic(ctx context.Context, tradeID, outcome string, exitPrice, payout float64) (*model.FlashTrade, *model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return nil, nil, model.ErrTradeNotFound
	}
	if trade.IsSettled() {
		return nil, nil, model.ErrTradeAlreadySettled
	}
	if s.failNextSettles > 0 {
		s.failNextSettles--
		return nil, nil, errors.New("persistence unavailable")
	}

	now := time.Now()
	trade.Status = outcome
	trade.ExitPrice = &exitPrice
	trade.Payout = payout
	trade.SettledAt = &now

	var entry *model.LedgerEntry
	if payout > 0 {
		before := s.balances[trade.UserID]
		entry = &model.LedgerEntry{
			ID:            uuid.New().String(),
			UserID:        trade.UserID,
			TradeID:       trade.ID,
			Amount:        payout,
			BalanceBefore: before,
			BalanceAfter:  before + payout,
			Reason:        model.LedgerReasonTradeWin,
			CreatedAt:     now,
		}
		s.balances[trade.UserID] = before + payout
		s.ledger[trade.UserID] = append(s.ledger[trade.UserID], entry)
	}

	copied := *trade
	return &copied, entry, nil
}

func (s *memStore) GetByID(ctx context.Context, userID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

func (s *memStore) GetBalance(ctx context.Context, userID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

func (s *memStore) GetOutcomePolicy(ctx context.Context, userID string) (*model.OutcomePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if policy, ok := s.policies[userID]; ok {
		return policy, nil
	}
	return &model.OutcomePolicy{UserID: userID}, nil
}

func (s *memStore) GetPlatformWinRate(ctx context.Context, fallback float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.platformWinRate, nil
}

// memPrices is an in-memory PriceStore
type memPrices struct {
	mu         sync.Mutex
	prices     map[string]*model.InstrumentPrice
	listCalls  int
	failSymbol string
}

func newMemPrices(symbols map[string]float64) *memPrices {
	p := &memPrices{prices: make(map[string]*model.InstrumentPrice)}
	for symbol, price := range symbols {
		p.prices[symbol] = &model.InstrumentPrice{Symbol: symbol, Price: price}
	}
	return p
}

func (p *memPrices) List(ctx context.Context) ([]*model.InstrumentPrice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	out := make([]*model.InstrumentPrice, 0, len(p.prices))
	for _, price := range p.prices {
		copied := *price
		out = append(out, &copied)
	}
	return out, nil
}

func (p *memPrices) Set(ctx context.Context, price *model.InstrumentPrice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if price.Symbol == p.failSymbol {
		return errors.New("write failed")
	}
	copied := *price
	p.prices[price.Symbol] = &copied
	return nil
}

func (p *memPrices) get(symbol string) *model.InstrumentPrice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prices[symbol]
}

// captureBroadcaster records published messages instead of delivering them
type captureBroadcaster struct {
	mu      sync.Mutex
	hasSubs bool
	byUser  map[string][]capturedMessage
	byChan  map[model.Channel][]interface{}
	byRole  map[string][]interface{}
}

type capturedMessage struct {
	channel model.Channel
	payload interface{}
}

func newCaptureBroadcaster() *captureBroadcaster {
	return &captureBroadcaster{
		hasSubs: true,
		byUser:  make(map[string][]capturedMessage),
		byChan:  make(map[model.Channel][]interface{}),
		byRole:  make(map[string][]interface{}),
	}
}

func (b *captureBroadcaster) Publish(channel model.Channel, payload interface{}, excludeUserID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byChan[channel] = append(b.byChan[channel], payload)
}

func (b *captureBroadcaster) PublishToUser(userID string, channel model.Channel, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byUser[userID] = append(b.byUser[userID], capturedMessage{channel: channel, payload: payload})
}

func (b *captureBroadcaster) PublishToRole(role string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byRole[role] = append(b.byRole[role], payload)
}

func (b *captureBroadcaster) HasSubscribers(channel model.Channel) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasSubs
}

func (b *captureBroadcaster) userMessages(userID string) []capturedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byUser[userID]
}

func (b *captureBroadcaster) channelMessages(channel model.Channel) []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byChan[channel]
}

// staticVerifier maps fixed tokens to claims
type staticVerifier struct {
	tokens map[string]*jwt.Claims
}

func (v *staticVerifier) ValidateToken(token string) (*jwt.Claims, error) {
	claims, ok := v.tokens[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
