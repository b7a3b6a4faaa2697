package leveling

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
	"go.uber.org/zap"
)

// Ledger is the append-only XP history of every member. A member's total
// is always the sum of their deltas.
type Ledger struct {
	store  Store
	logger *zap.Logger
}

// NewLedger creates a ledger on store.
func NewLedger(store Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger.Named("ledger"),
	}
}

// TotalXp returns the sum of a member's deltas.
func (l *Ledger) TotalXp(ctx context.Context, member types.Member) (int64, error) {
	return l.store.TotalXp(ctx, member)
}

// EnsureMember seeds a member's ledger with a Created entry unless they
// already have one. Reports whether an entry was written.
func (l *Ledger) EnsureMember(ctx context.Context, member types.Member, now time.Time) (bool, error) {
	var created bool

	err := l.store.WithMember(ctx, member, func(ctx context.Context, tx MemberTx) error {
		var err error
		created, err = seed(ctx, tx, member, now)

		return err
	})
	if err != nil {
		return false, err
	}

	if created {
		l.logger.Debug("Seeded member ledger",
			zap.Uint64("guildID", member.GuildID),
			zap.Uint64("userID", member.UserID))
	}

	return created, nil
}

// Award grants amount XP to a member who has been seen before.
// Returns the totals before and after the award. An amount that would
// push the total past MaxInt64 is rejected with ErrInvalidAmount.
func (l *Ledger) Award(
	ctx context.Context, member types.Member, amount int64, actorID uint64, now time.Time,
) (before, after int64, err error) {
	if amount <= 0 {
		return 0, 0, fmt.Errorf("%w: must be greater than zero, got %d", types.ErrInvalidAmount, amount)
	}

	err = l.store.WithMember(ctx, member, func(ctx context.Context, tx MemberTx) error {
		before, err = tx.TotalXp(ctx)
		if err != nil {
			return err
		}

		if before > math.MaxInt64-amount {
			return fmt.Errorf("%w: %d would overflow total %d", types.ErrInvalidAmount, amount, before)
		}

		entry := &types.LedgerEntry{
			UserID:    member.UserID,
			GuildID:   member.GuildID,
			Delta:     amount,
			Kind:      enum.EntryKindAwarded,
			ActorID:   actorID,
			CreatedAt: now,
		}

		if err := appendEntry(ctx, tx, member, entry); err != nil {
			return err
		}

		after = before + amount

		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	l.logger.Info("Awarded XP",
		zap.Uint64("guildID", member.GuildID),
		zap.Uint64("userID", member.UserID),
		zap.Int64("amount", amount),
		zap.Int64("total", after),
		zap.Uint64("actorID", actorID))

	return before, after, nil
}

// Reclaim takes XP from a member, clamped to their current total so the
// total never goes negative. all takes everything. Returns the XP taken
// and the total after. The Reclaimed entry is written even when nothing
// is left to take.
func (l *Ledger) Reclaim(
	ctx context.Context, member types.Member, amount int64, all bool, actorID uint64, now time.Time,
) (taken, after int64, err error) {
	if !all && amount <= 0 {
		return 0, 0, fmt.Errorf("%w: must be greater than zero, got %d", types.ErrInvalidAmount, amount)
	}

	err = l.store.WithMember(ctx, member, func(ctx context.Context, tx MemberTx) error {
		seen, err := tx.Seen(ctx)
		if err != nil {
			return err
		}

		if !seen {
			return fmt.Errorf("%w (userID=%d, guildID=%d)", types.ErrMemberNotFound, member.UserID, member.GuildID)
		}

		total, err := tx.TotalXp(ctx)
		if err != nil {
			return err
		}

		taken = max(total, 0)
		if !all {
			taken = min(amount, taken)
		}

		entry := &types.LedgerEntry{
			UserID:    member.UserID,
			GuildID:   member.GuildID,
			Delta:     -taken,
			Kind:      enum.EntryKindReclaimed,
			ActorID:   actorID,
			CreatedAt: now,
		}

		if err := tx.Append(ctx, entry); err != nil {
			return err
		}

		after = total - taken

		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	l.logger.Info("Reclaimed XP",
		zap.Uint64("guildID", member.GuildID),
		zap.Uint64("userID", member.UserID),
		zap.Int64("taken", taken),
		zap.Bool("all", all),
		zap.Int64("total", after),
		zap.Uint64("actorID", actorID))

	return taken, after, nil
}

// History returns a member's most recent entries, newest first.
func (l *Ledger) History(ctx context.Context, member types.Member, limit int) ([]*types.LedgerEntry, error) {
	entries, err := l.store.Entries(ctx, types.LedgerFilter{
		GuildID: member.GuildID,
		UserID:  member.UserID,
		Newest:  true,
	}, limit)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w (userID=%d, guildID=%d)", types.ErrMemberNotFound, member.UserID, member.GuildID)
	}

	return entries, nil
}

// seed writes the Created entry of an unseen member.
func seed(ctx context.Context, tx MemberTx, member types.Member, now time.Time) (bool, error) {
	seen, err := tx.Seen(ctx)
	if err != nil || seen {
		return false, err
	}

	err = tx.Append(ctx, &types.LedgerEntry{
		UserID:    member.UserID,
		GuildID:   member.GuildID,
		Kind:      enum.EntryKindCreated,
		CreatedAt: now,
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

// appendEntry appends to the ledger of a member who has been seen before.
// Only a Created entry may start a history.
func appendEntry(ctx context.Context, tx MemberTx, member types.Member, entry *types.LedgerEntry) error {
	if entry.Kind != enum.EntryKindCreated {
		seen, err := tx.Seen(ctx)
		if err != nil {
			return err
		}

		if !seen {
			return fmt.Errorf("%w (userID=%d, guildID=%d)", types.ErrMemberNotFound, member.UserID, member.GuildID)
		}
	}

	return tx.Append(ctx, entry)
}
