package leveling_test

import (
	"testing"
	"time"

	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
	"github.com/robalyx/levels/internal/leveling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	member := types.Member{UserID: 10, GuildID: 1}
	channel := &leveling.Ignorable{Kind: enum.IgnoreTargetChannel, ID: 99}

	enabled := &types.GuildSetting{GuildID: 1, Base: 10, Modifier: 50, Amount: 15, Cooldown: time.Minute, ModuleEnabled: true}
	disabled := &types.GuildSetting{GuildID: 1, Base: 10, Modifier: 50, Amount: 15, Cooldown: time.Minute}

	earnedAt := func(expires time.Time) *types.LedgerEntry {
		return &types.LedgerEntry{Kind: enum.EntryKindEarned, Delta: 15, CooldownExpiresAt: expires}
	}

	tests := []struct {
		name       string
		settings   *types.GuildSetting
		ignoredBy  *leveling.Ignorable
		lastEarned *types.LedgerEntry
		admitted   bool
		reason     enum.RejectReason
	}{
		{name: "first event", settings: enabled, admitted: true, reason: enum.RejectReasonNone},
		{name: "module disabled", settings: disabled, reason: enum.RejectReasonModuleDisabled},
		{name: "disabled wins over ignored", settings: disabled, ignoredBy: channel, reason: enum.RejectReasonModuleDisabled},
		{name: "ignored", settings: enabled, ignoredBy: channel, reason: enum.RejectReasonIgnored},
		{
			name: "ignored wins over cooldown", settings: enabled, ignoredBy: channel,
			lastEarned: earnedAt(now.Add(time.Minute)), reason: enum.RejectReasonIgnored,
		},
		{name: "on cooldown", settings: enabled, lastEarned: earnedAt(now.Add(time.Second)), reason: enum.RejectReasonOnCooldown},
		{name: "cooldown expires now", settings: enabled, lastEarned: earnedAt(now), admitted: true},
		{name: "cooldown expired", settings: enabled, lastEarned: earnedAt(now.Add(-time.Second)), admitted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			decision := leveling.Evaluate(tt.settings, member, tt.ignoredBy, tt.lastEarned, now)
			assert.Equal(t, tt.admitted, decision.Admitted)
			assert.Equal(t, tt.reason, decision.Reason)

			if !tt.admitted {
				assert.Nil(t, decision.Entry)
				return
			}

			require.NotNil(t, decision.Entry)
			assert.Equal(t, enum.EntryKindEarned, decision.Entry.Kind)
			assert.Equal(t, int64(15), decision.Entry.Delta)
			assert.Equal(t, member, decision.Entry.Member())
			assert.Equal(t, now.Add(time.Minute), decision.Entry.CooldownExpiresAt)
		})
	}
}

func TestEvaluateReportsIgnoredTarget(t *testing.T) {
	t.Parallel()

	settings := &types.GuildSetting{Base: 10, ModuleEnabled: true}
	role := &leveling.Ignorable{Kind: enum.IgnoreTargetRole, ID: 7}

	decision := leveling.Evaluate(settings, types.Member{UserID: 1, GuildID: 2}, role, nil, time.Now())
	assert.Equal(t, role, decision.IgnoredBy)
}
