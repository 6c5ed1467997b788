package domain

// State is the shared key-value bag mutated across the node visits of a run.
type State map[string]any

// Clone returns a top-level copy of the state. Nested values are shared, so
// holders of the original must replace them rather than modify them in place.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge applies delta by key-wise overwrite. Nested maps are replaced, not merged.
func (s State) Merge(delta map[string]any) {
	for k, v := range delta {
		s[k] = v
	}
}
