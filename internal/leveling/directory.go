package leveling

import (
	"context"

	"github.com/robalyx/levels/internal/setup/config"
)

// StaticDirectory is a Directory over the channel and role lists of the
// leveling config. A guild without a list trusts every typed mention.
type StaticDirectory struct {
	guilds map[uint64]staticGuild
}

type staticGuild struct {
	channels map[uint64]struct{}
	roles    map[uint64]struct{}
}

// NewStaticDirectory indexes the configured guild lists. Lists for the same
// guild are merged.
func NewStaticDirectory(entries []config.GuildDirectory) *StaticDirectory {
	d := &StaticDirectory{guilds: make(map[uint64]staticGuild, len(entries))}

	for _, entry := range entries {
		guild, ok := d.guilds[entry.GuildID]
		if !ok {
			guild = staticGuild{
				channels: make(map[uint64]struct{}),
				roles:    make(map[uint64]struct{}),
			}
			d.guilds[entry.GuildID] = guild
		}

		for _, id := range entry.Channels {
			guild.channels[id] = struct{}{}
		}

		for _, id := range entry.Roles {
			guild.roles[id] = struct{}{}
		}
	}

	return d
}

// Guilds returns how many guilds have lists.
func (d *StaticDirectory) Guilds() int {
	return len(d.guilds)
}

// HasChannel implements Directory.
func (d *StaticDirectory) HasChannel(_ context.Context, guildID, channelID uint64) (bool, error) {
	guild, ok := d.guilds[guildID]
	if !ok {
		return true, nil
	}

	_, found := guild.channels[channelID]

	return found, nil
}

// HasRole implements Directory.
func (d *StaticDirectory) HasRole(_ context.Context, guildID, roleID uint64) (bool, error) {
	guild, ok := d.guilds[guildID]
	if !ok {
		return true, nil
	}

	_, found := guild.roles[roleID]

	return found, nil
}
