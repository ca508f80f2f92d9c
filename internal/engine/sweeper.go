package engine

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

// SettlementSweeper periodically settles auctions whose end time has passed:
// auctions with bids are ended (anyone may end an expired auction) and
// bid-less ones are cancelled as the administrator. The sweeper lives outside
// the engine core, which stays free of background work; leader election keeps
// a single instance sweeping.
type SettlementSweeper struct {
	cron       *cron.Cron
	engine     *Engine
	leader     domain.LeaderElection
	instanceID string
	operator   string
	log        logger.Logger
}

func NewSettlementSweeper(engine *Engine, leader domain.LeaderElection, instanceID, operator string, log logger.Logger) *SettlementSweeper {
	return &SettlementSweeper{
		cron:       cron.New(cron.WithSeconds()),
		engine:     engine,
		leader:     leader,
		instanceID: instanceID,
		operator:   operator,
		log:        log,
	}
}

func (s *SettlementSweeper) Start(ctx context.Context, interval string) error {
	s.log.Info("Starting settlement sweeper", "interval", interval)

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if s.leader != nil {
			isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
			if err != nil || !isLeader {
				return
			}
		}
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *SettlementSweeper) Stop() error {
	s.log.Info("Stopping settlement sweeper")
	s.cron.Stop()
	return nil
}

// Sweep runs a single settlement pass.
func (s *SettlementSweeper) Sweep(ctx context.Context) {
	active, err := s.engine.GetActiveAuctions(ctx)
	if err != nil {
		s.log.Error("Failed to list active auctions", "error", err)
		return
	}

	now := s.engine.clock()
	for _, auction := range active {
		if now.Before(auction.EndTime) {
			continue
		}

		if auction.HasBid() {
			if _, err := s.engine.EndAuction(ctx, s.operator, auction.ID); err != nil {
				s.log.Error("Failed to end expired auction", "auction_id", auction.ID, "error", err)
			}
			continue
		}
		if _, err := s.engine.CancelAuction(ctx, s.operator, auction.ID); err != nil {
			s.log.Error("Failed to cancel expired auction", "auction_id", auction.ID, "error", err)
		}
	}
}
