package pipeline

// Version is the monotonically increasing pipeline version (spec.md §3),
// kept as a distinct type rather than a bare int per the original crate's
// PipelineVersion — this makes "did the version actually advance" checks in
// tests read as a type-level invariant instead of arithmetic.
type Version uint64

// Next returns the successor version.
func (v Version) Next() Version { return v + 1 }
