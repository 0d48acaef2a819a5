package types

// Event is the broadcast form of a structured state change: a type tag plus a
// flat attribute map consumed by RPC subscribers and indexers.
type Event struct {
	Type       string
	Attributes map[string]string
}
