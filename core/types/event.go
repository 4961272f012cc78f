package types

// Event is a broadcastable state-change record handed to the host after a
// successful commit.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
