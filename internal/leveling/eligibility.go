package leveling

import (
	"time"

	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
)

// Decision is the outcome of evaluating one activity event.
type Decision struct {
	Admitted  bool
	Reason    enum.RejectReason
	IgnoredBy *Ignorable         // Set when Reason is RejectReasonIgnored
	Entry     *types.LedgerEntry // Earned entry to append when admitted
}

// Evaluate decides whether an activity event may mint an Earned entry.
// The checks run in order: module switch, ignore flags, cooldown.
// ignoredBy is the first flagged target found for the event, if any, and
// lastEarned is the member's most recent Earned entry, if any.
func Evaluate(
	settings *types.GuildSetting, member types.Member, ignoredBy *Ignorable, lastEarned *types.LedgerEntry, now time.Time,
) Decision {
	if !settings.ModuleEnabled {
		return Decision{Reason: enum.RejectReasonModuleDisabled}
	}

	if ignoredBy != nil {
		return Decision{Reason: enum.RejectReasonIgnored, IgnoredBy: ignoredBy}
	}

	if lastEarned != nil && lastEarned.OnCooldownAt(now) {
		return Decision{Reason: enum.RejectReasonOnCooldown}
	}

	return Decision{
		Admitted: true,
		Reason:   enum.RejectReasonNone,
		Entry: &types.LedgerEntry{
			UserID:            member.UserID,
			GuildID:           member.GuildID,
			Delta:             settings.Amount,
			Kind:              enum.EntryKindEarned,
			CooldownExpiresAt: now.Add(settings.Cooldown),
			CreatedAt:         now,
		},
	}
}
