package domain

// Result is what a node handler returns.
//
// StateDelta is merged into the run state by key-wise overwrite. A non-empty
// Next overrides the graph's edge map for this step. A nil *Result carries no
// delta and no override.
type Result struct {
	StateDelta map[string]any `json:"state_delta,omitempty"`
	Next       string         `json:"next,omitempty"`
	Note       string         `json:"note,omitempty"`
}
