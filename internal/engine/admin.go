package engine

import (
	"context"
	"fmt"

	"auction-house/internal/domain"
)

// Administrative operations. All are restricted to the single administrator
// identity the engine was constructed with.

func (e *Engine) requireAdmin(caller string) error {
	if caller != e.admin {
		return domain.ErrNotAuthorized
	}
	return nil
}

// SetFeeRate updates the platform fee in basis points. Applies to auctions
// settled after the change, not retroactively.
func (e *Engine) SetFeeRate(ctx context.Context, caller string, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if bps > feeRateDenominator {
		return domain.ErrInvalidFeeRate
	}

	e.feeRateBps = bps
	e.log.Info("Fee rate updated", "fee_rate_bps", bps)
	e.emit(ctx, &domain.Event{
		Type:   domain.EventFeeRateUpdated,
		Actor:  caller,
		Amount: fmt.Sprintf("%d", bps),
	})
	return nil
}

func (e *Engine) FeeRate(ctx context.Context) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feeRateBps
}

func (e *Engine) SetFeeRecipient(ctx context.Context, caller, recipient string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if recipient == "" {
		return fmt.Errorf("fee recipient must not be empty")
	}

	e.feeRecipient = recipient
	e.log.Info("Fee recipient updated", "recipient", recipient)
	e.emit(ctx, &domain.Event{
		Type:  domain.EventFeeRecipientUpdated,
		Actor: caller,
	})
	return nil
}

// RegisterPriceSource wires an oracle feed for a medium, replacing any prior
// registration.
func (e *Engine) RegisterPriceSource(ctx context.Context, caller string, medium domain.Medium, source domain.PriceSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	e.oracle.Register(medium, source)
	e.log.Info("Price source registered", "medium", medium)
	e.emit(ctx, &domain.Event{
		Type:   domain.EventPriceFeedUpdated,
		Actor:  caller,
		Medium: medium,
	})
	return nil
}

// RegisterLedger wires the fungible ledger that settles a payment medium.
func (e *Engine) RegisterLedger(ctx context.Context, caller string, medium domain.Medium, ledger domain.FungibleLedger) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if ledger == nil {
		return fmt.Errorf("ledger must not be nil")
	}

	e.ledgers[medium] = ledger
	e.log.Info("Ledger registered", "medium", medium)
	return nil
}

// AuthorizeUpgrade records the logic version allowed to run against the
// current state. The state layer is separate from the logic layer, so a new
// binary checks this before serving.
func (e *Engine) AuthorizeUpgrade(ctx context.Context, caller, version string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if version == "" {
		return fmt.Errorf("version must not be empty")
	}

	if err := e.store.SetAuthorizedVersion(ctx, version); err != nil {
		return err
	}
	e.log.Info("Logic upgrade authorized", "version", version)
	e.emit(ctx, &domain.Event{
		Type:  domain.EventUpgradeAuthorized,
		Actor: caller,
	})
	return nil
}

func (e *Engine) AuthorizedVersion(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.AuthorizedVersion(ctx)
}
