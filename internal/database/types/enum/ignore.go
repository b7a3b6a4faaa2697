package enum

// IgnoreTarget identifies what kind of entity an ignore flag applies to.
//
//go:generate go tool enumer -type=IgnoreTarget -trimprefix=IgnoreTarget
type IgnoreTarget int

const (
	IgnoreTargetMember IgnoreTarget = iota
	IgnoreTargetChannel
	IgnoreTargetRole
)
