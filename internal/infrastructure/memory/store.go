package memory

import (
	"context"
	"math/big"
	"sync"

	"auction-house/internal/domain"
)

// Store is the in-memory implementation of domain.Store. It backs tests and
// the server's local mode; the mysql package provides the durable one.
type Store struct {
	mu       sync.RWMutex
	nextID   uint64
	auctions map[uint64]*domain.Auction
	locks    map[string]uint64
	returns  map[string]*big.Int
	version  string
}

func NewStore() *Store {
	return &Store{
		auctions: make(map[uint64]*domain.Auction),
		locks:    make(map[string]uint64),
		returns:  make(map[string]*big.Int),
	}
}

func (s *Store) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	auction.ID = s.nextID
	s.auctions[auction.ID] = auction.Clone()
	return nil
}

func (s *Store) GetAuction(ctx context.Context, auctionID uint64) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return auction.Clone(), nil
}

func (s *Store) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auction.ID]; !ok {
		return domain.ErrAuctionNotFound
	}
	s.auctions[auction.ID] = auction.Clone()
	return nil
}

func (s *Store) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auctions := make([]*domain.Auction, 0, len(s.auctions))
	for id := uint64(1); id <= s.nextID; id++ {
		if auction, ok := s.auctions[id]; ok {
			auctions = append(auctions, auction.Clone())
		}
	}
	return auctions, nil
}

func (s *Store) GetLock(ctx context.Context, asset domain.AssetRef) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auctionID, ok := s.locks[asset.Key()]
	return auctionID, ok, nil
}

func (s *Store) PutLock(ctx context.Context, asset domain.AssetRef, auctionID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locks[asset.Key()] = auctionID
	return nil
}

func (s *Store) DeleteLock(ctx context.Context, asset domain.AssetRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, asset.Key())
	return nil
}

func (s *Store) PendingReturn(ctx context.Context, key domain.ReturnKey) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	amount, ok := s.returns[key.String()]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(amount), nil
}

func (s *Store) CreditPendingReturn(ctx context.Context, key domain.ReturnKey, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.returns[key.String()]
	if !ok {
		current = new(big.Int)
	}
	s.returns[key.String()] = new(big.Int).Add(current, amount)
	return nil
}

func (s *Store) SetPendingReturn(ctx context.Context, key domain.ReturnKey, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.returns[key.String()] = new(big.Int).Set(amount)
	return nil
}

func (s *Store) AuthorizedVersion(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

func (s *Store) SetAuthorizedVersion(ctx context.Context, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
	return nil
}
