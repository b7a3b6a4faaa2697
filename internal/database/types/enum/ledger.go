package enum

// EntryKind represents the origin of an XP ledger entry.
//
//go:generate go tool enumer -type=EntryKind -trimprefix=EntryKind
type EntryKind int

const (
	// EntryKindCreated seeds a member's ledger with a zero delta when they are first seen.
	EntryKindCreated EntryKind = iota
	// EntryKindEarned is XP minted by an admitted activity event.
	EntryKindEarned
	// EntryKindAwarded is XP granted by an administrator.
	EntryKindAwarded
	// EntryKindReclaimed is XP taken away by an administrator.
	EntryKindReclaimed
)

// RejectReason explains why an activity event did not earn XP.
//
//go:generate go tool enumer -type=RejectReason -trimprefix=RejectReason
type RejectReason int

const (
	// RejectReasonNone means the event was admitted.
	RejectReasonNone RejectReason = iota
	// RejectReasonModuleDisabled means leveling is turned off for the guild.
	RejectReasonModuleDisabled
	// RejectReasonIgnored means the channel, member or one of the member's roles is ignored.
	RejectReasonIgnored
	// RejectReasonOnCooldown means the member earned XP too recently.
	RejectReasonOnCooldown
)
