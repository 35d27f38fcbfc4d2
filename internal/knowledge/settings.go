package knowledge

// LocalOverride controls how a writer classifies a variable regardless
// of its name prefix.
type LocalOverride int

const (
	NoOverride LocalOverride = iota
	AlwaysLocal
	AlwaysGlobal
)

// ReferenceSettings governs read/reference-resolution operations.
type ReferenceSettings struct {
	// ExpandVariables, if true (the default), expands {EXPR} references
	// in a name before it is looked up.
	ExpandVariables bool
}

// DefaultReferenceSettings matches the spec's stated default
// (ExpandVariables: true).
func DefaultReferenceSettings() ReferenceSettings {
	return ReferenceSettings{ExpandVariables: true}
}

// UpdateSettings governs write operations.
type UpdateSettings struct {
	TreatAsLocalOverride LocalOverride
	TrackLocalChanges    bool
	// ClockIncrement is 0 to advance the context clock by one before
	// stamping the record with it, or n>0 to advance the context clock by
	// n before stamping.
	ClockIncrement uint64
	AlwaysDisseminate bool
	SignalChanges     bool
}

// DefaultUpdateSettings mirrors the spec's writer defaults: track local
// changes, always disseminate globally, signal on every change.
func DefaultUpdateSettings() UpdateSettings {
	return UpdateSettings{
		TrackLocalChanges: true,
		AlwaysDisseminate: true,
		SignalChanges:     true,
	}
}
