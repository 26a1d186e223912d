package events

// IsUnknown reports whether e carries a type discriminator this build does
// not recognize. Per spec.md's forward-compat requirement, replay never
// rejects such events — they parse normally and carry their original
// payload; callers that need variant-specific handling should check this
// first and fall back to treating e as an opaque shell otherwise.
func IsUnknown(e Event) bool {
	return !IsKnownType(e.Type)
}
