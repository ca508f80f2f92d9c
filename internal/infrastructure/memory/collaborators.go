package memory

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"auction-house/internal/domain"
)

// In-memory implementations of the external collaborator contracts. They back
// the engine's local custody mode and every engine test; production deploys
// swap in adapters to real registries and ledgers.

// AssetRegistry tracks ownership, approvals and custody of unique assets.
type AssetRegistry struct {
	mu        sync.RWMutex
	owners    map[string]string
	operators map[string]string          // asset -> single approved operator
	blanket   map[string]map[string]bool // owner -> operator -> approved
}

func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{
		owners:    make(map[string]string),
		operators: make(map[string]string),
		blanket:   make(map[string]map[string]bool),
	}
}

// Mint assigns a fresh asset to an owner. Test and local-mode setup only.
func (r *AssetRegistry) Mint(asset domain.AssetRef, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[asset.Key()] = owner
}

func (r *AssetRegistry) Approve(asset domain.AssetRef, operator string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operators[asset.Key()] = operator
}

func (r *AssetRegistry) SetApprovalForAll(owner, operator string, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blanket[owner] == nil {
		r.blanket[owner] = make(map[string]bool)
	}
	r.blanket[owner][operator] = approved
}

func (r *AssetRegistry) OwnerOf(ctx context.Context, asset domain.AssetRef) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.owners[asset.Key()]
	if !ok {
		return "", fmt.Errorf("asset %s does not exist", asset)
	}
	return owner, nil
}

func (r *AssetRegistry) ApprovedOperator(ctx context.Context, asset domain.AssetRef) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operators[asset.Key()], nil
}

func (r *AssetRegistry) IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.blanket[owner][operator], nil
}

func (r *AssetRegistry) Transfer(ctx context.Context, asset domain.AssetRef, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[asset.Key()]
	if !ok {
		return fmt.Errorf("asset %s does not exist", asset)
	}
	if owner != from {
		return fmt.Errorf("asset %s is held by %s, not %s", asset, owner, from)
	}

	r.owners[asset.Key()] = to
	// A transfer consumes the single-asset approval.
	delete(r.operators, asset.Key())
	return nil
}

// Ledger is a balance/allowance fungible ledger for one payment medium.
type Ledger struct {
	mu         sync.RWMutex
	balances   map[string]*big.Int
	allowances map[string]map[string]*big.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]map[string]*big.Int),
	}
}

// Mint credits an account out of thin air. Test and local-mode setup only.
func (l *Ledger) Mint(account string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = new(big.Int).Add(l.balance(account), amount)
}

func (l *Ledger) Approve(owner, spender string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[string]*big.Int)
	}
	l.allowances[owner][spender] = new(big.Int).Set(amount)
}

func (l *Ledger) balance(account string) *big.Int {
	if b, ok := l.balances[account]; ok {
		return b
	}
	return new(big.Int)
}

func (l *Ledger) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balance(account)), nil
}

func (l *Ledger) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if granted, ok := l.allowances[owner][spender]; ok {
		return new(big.Int).Set(granted), nil
	}
	return new(big.Int), nil
}

func (l *Ledger) Transfer(ctx context.Context, from, to string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	granted, ok := l.allowances[from][spender]
	if !ok || granted.Cmp(amount) < 0 {
		return fmt.Errorf("allowance of %s for %s is below %s", from, spender, amount)
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	granted.Sub(granted, amount)
	return nil
}

func (l *Ledger) move(from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid transfer amount")
	}
	balance := l.balance(from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("balance of %s is below %s", from, amount)
	}
	l.balances[from] = new(big.Int).Sub(balance, amount)
	l.balances[to] = new(big.Int).Add(l.balance(to), amount)
	return nil
}

// PriceSource reports a manually set fixed-point price (8 fractional digits).
type PriceSource struct {
	mu        sync.RWMutex
	price     *big.Int
	updatedAt time.Time
}

func NewPriceSource(price *big.Int) *PriceSource {
	return &PriceSource{price: price, updatedAt: time.Now()}
}

func (p *PriceSource) SetPrice(price *big.Int, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.price = price
	p.updatedAt = at
}

func (p *PriceSource) LatestPrice(ctx context.Context) (*big.Int, time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.price == nil {
		return new(big.Int), p.updatedAt, nil
	}
	return new(big.Int).Set(p.price), p.updatedAt, nil
}

// EventLog collects published events in order. Tests and local mode use it in
// place of the redis publisher.
type EventLog struct {
	mu     sync.Mutex
	events []*domain.Event
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Publish(ctx context.Context, event *domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *EventLog) Events() []*domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*domain.Event(nil), l.events...)
}

func (l *EventLog) Last() *domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return nil
	}
	return l.events[len(l.events)-1]
}
