package domain

// OutputEvent is a serialized prediction destined for the event topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
