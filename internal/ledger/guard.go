package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/contribscore/internal/domain"
	"github.com/contribscore/internal/store"
)

// Guard tracks which pull-request numbers have already been credited and
// gates every ledger mutation on that membership.
//
// Known limitation: check, credit and mark are three store round trips, not
// one conditional write. Two concurrent passes that both pass the membership
// check before either marks can double-credit. Accepted at single-process
// polling cadence; hardening would need a check-and-set primitive from the
// store.
type Guard struct {
	store  store.Store
	ledger *Ledger
	logger *slog.Logger
}

// NewGuard creates a guard over the same store as the ledger it protects.
func NewGuard(st store.Store, l *Ledger, logger *slog.Logger) *Guard {
	return &Guard{
		store:  st,
		ledger: l,
		logger: logger,
	}
}

// HasBeenProcessed reports whether the pull request was already credited.
func (g *Guard) HasBeenProcessed(ctx context.Context, prNumber int) (bool, error) {
	ok, err := g.store.IsMember(ctx, processedKey, strconv.Itoa(prNumber))
	if err != nil {
		return false, fmt.Errorf("checking processed set for #%d: %w", prNumber, domain.ErrStoreUnavailable)
	}
	return ok, nil
}

// MarkProcessed records the pull request as credited. Entries are never
// removed; there is no un-crediting path.
func (g *Guard) MarkProcessed(ctx context.Context, prNumber int) error {
	if err := g.store.AddToSet(ctx, processedKey, strconv.Itoa(prNumber)); err != nil {
		return fmt.Errorf("marking #%d processed: %w", prNumber, domain.ErrStoreUnavailable)
	}
	return nil
}

// CreditOnce applies the credit to the ledger unless the pull request was
// already processed. Returns whether a credit was applied.
//
// When the membership check itself fails the credit is skipped and the
// failure reported: with the guard's own state unknown, "no credit this
// cycle" is the safe degradation, never "credit without dedupe". The next
// pass retries.
func (g *Guard) CreditOnce(ctx context.Context, prNumber int, username string, points int64, action string) (bool, error) {
	processed, err := g.HasBeenProcessed(ctx, prNumber)
	if err != nil {
		return false, err
	}
	if processed {
		return false, nil
	}

	if err := g.ledger.AddPoints(ctx, username, points, action); err != nil {
		// Not marked processed, so the credit stays eligible for retry.
		return false, err
	}

	if err := g.MarkProcessed(ctx, prNumber); err != nil {
		// Credit applied but the mark failed; the next pass may re-credit.
		// Surface the error so the pass reports it instead of hiding it.
		g.logger.Error("credit applied but mark failed, re-credit possible",
			"pr", prNumber,
			"username", username,
			"error", err,
		)
		return true, err
	}
	return true, nil
}
