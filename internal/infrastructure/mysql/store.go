package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"auction-house/internal/domain"
)

// Store is the durable MySQL implementation of domain.Store. Amounts are
// stored as DECIMAL(65,0) so 18-fractional-digit integers round-trip exactly.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS auctions (
            id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            seller VARCHAR(128) NOT NULL,
            asset_registry VARCHAR(128) NOT NULL,
            asset_item_id VARCHAR(128) NOT NULL,
            start_time DATETIME(6) NOT NULL,
            end_time DATETIME(6) NOT NULL,
            reserve_price DECIMAL(65,0) NOT NULL,
            medium VARCHAR(64) NOT NULL,
            highest_bidder VARCHAR(128) NOT NULL DEFAULT '',
            highest_bid DECIMAL(65,0) NOT NULL DEFAULT 0,
            status INT NOT NULL,
            created_at DATETIME(6) NOT NULL,
            updated_at DATETIME(6) NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS asset_locks (
            asset_key VARCHAR(260) PRIMARY KEY,
            auction_id BIGINT UNSIGNED NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS pending_returns (
            bidder VARCHAR(128) NOT NULL,
            auction_id BIGINT UNSIGNED NOT NULL,
            amount DECIMAL(65,0) NOT NULL,
            PRIMARY KEY (bidder, auction_id)
        )`,
		`CREATE TABLE IF NOT EXISTS engine_meta (
            meta_key VARCHAR(64) PRIMARY KEY,
            meta_value VARCHAR(255) NOT NULL
        )`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (seller, asset_registry, asset_item_id, start_time, end_time,
            reserve_price, medium, highest_bidder, highest_bid, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	result, err := s.db.ExecContext(ctx, query,
		auction.Seller, auction.Asset.Registry, auction.Asset.ItemID,
		auction.StartTime, auction.EndTime,
		auction.ReservePrice.String(), string(auction.Medium),
		auction.HighestBidder, amountOrZero(auction.HighestBid),
		int(auction.Status), auction.CreatedAt, auction.UpdatedAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	auction.ID = uint64(id)
	return nil
}

func (s *Store) GetAuction(ctx context.Context, auctionID uint64) (*domain.Auction, error) {
	query := `
        SELECT id, seller, asset_registry, asset_item_id, start_time, end_time,
            reserve_price, medium, highest_bidder, highest_bid, status, created_at, updated_at
        FROM auctions WHERE id = ?
    `
	auction, err := scanAuction(s.db.QueryRowContext(ctx, query, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAuctionNotFound
	}
	return auction, err
}

func (s *Store) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        UPDATE auctions
        SET highest_bidder = ?, highest_bid = ?, status = ?, end_time = ?, updated_at = ?
        WHERE id = ?
    `
	result, err := s.db.ExecContext(ctx, query,
		auction.HighestBidder, amountOrZero(auction.HighestBid),
		int(auction.Status), auction.EndTime, auction.UpdatedAt, auction.ID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		if _, getErr := s.GetAuction(ctx, auction.ID); getErr != nil {
			return getErr
		}
	}
	return nil
}

func (s *Store) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT id, seller, asset_registry, asset_item_id, start_time, end_time,
            reserve_price, medium, highest_bidder, highest_bid, status, created_at, updated_at
        FROM auctions ORDER BY id
    `
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	return auctions, rows.Err()
}

func (s *Store) GetLock(ctx context.Context, asset domain.AssetRef) (uint64, bool, error) {
	var auctionID uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT auction_id FROM asset_locks WHERE asset_key = ?`, asset.Key()).Scan(&auctionID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return auctionID, true, nil
}

func (s *Store) PutLock(ctx context.Context, asset domain.AssetRef, auctionID uint64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO asset_locks (asset_key, auction_id) VALUES (?, ?)
         ON DUPLICATE KEY UPDATE auction_id = VALUES(auction_id)`,
		asset.Key(), auctionID)
	return err
}

func (s *Store) DeleteLock(ctx context.Context, asset domain.AssetRef) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM asset_locks WHERE asset_key = ?`, asset.Key())
	return err
}

func (s *Store) PendingReturn(ctx context.Context, key domain.ReturnKey) (*big.Int, error) {
	var amount string
	err := s.db.QueryRowContext(ctx,
		`SELECT amount FROM pending_returns WHERE bidder = ? AND auction_id = ?`,
		key.Bidder, key.AuctionID).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(amount)
}

func (s *Store) CreditPendingReturn(ctx context.Context, key domain.ReturnKey, amount *big.Int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_returns (bidder, auction_id, amount) VALUES (?, ?, ?)
         ON DUPLICATE KEY UPDATE amount = amount + VALUES(amount)`,
		key.Bidder, key.AuctionID, amount.String())
	return err
}

func (s *Store) SetPendingReturn(ctx context.Context, key domain.ReturnKey, amount *big.Int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_returns (bidder, auction_id, amount) VALUES (?, ?, ?)
         ON DUPLICATE KEY UPDATE amount = VALUES(amount)`,
		key.Bidder, key.AuctionID, amount.String())
	return err
}

func (s *Store) AuthorizedVersion(ctx context.Context) (string, error) {
	var version string
	err := s.db.QueryRowContext(ctx,
		`SELECT meta_value FROM engine_meta WHERE meta_key = 'authorized_version'`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return version, err
}

func (s *Store) SetAuthorizedVersion(ctx context.Context, version string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO engine_meta (meta_key, meta_value) VALUES ('authorized_version', ?)
         ON DUPLICATE KEY UPDATE meta_value = VALUES(meta_value)`,
		version)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var (
		auction             domain.Auction
		reserve, highestBid string
		medium              string
		status              int
		startTime, endTime  time.Time
	)

	err := row.Scan(&auction.ID, &auction.Seller,
		&auction.Asset.Registry, &auction.Asset.ItemID,
		&startTime, &endTime, &reserve, &medium,
		&auction.HighestBidder, &highestBid, &status,
		&auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	auction.StartTime = startTime
	auction.EndTime = endTime
	auction.Medium = domain.Medium(medium)
	auction.Status = domain.AuctionStatus(status)
	if auction.ReservePrice, err = parseAmount(reserve); err != nil {
		return nil, err
	}
	if auction.HighestBid, err = parseAmount(highestBid); err != nil {
		return nil, err
	}
	return &auction, nil
}

func amountOrZero(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return amount, nil
}
