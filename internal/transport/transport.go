package transport

// Transport defines a generic interface for publishing session progress to
// experimenter-facing consumers. Implementations must be safe for use from
// the trial loop and must never block it.
type Transport interface {
	Send(data any) error
	Close() error
}
