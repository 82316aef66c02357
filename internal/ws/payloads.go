package ws

import "voxelhunt/internal/match"

// Envelope is every frame the feed writes.
type Envelope struct {
	Type  string       `json:"type"`
	State *match.State `json:"state,omitempty"`
	Error string       `json:"error,omitempty"`
}
