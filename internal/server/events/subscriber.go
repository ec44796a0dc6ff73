package events

// Subscriber consumes events. Implementations adapt the event stream to a
// transport and must not block in Send.
type Subscriber interface {
	Send(Event) error
	Close() error
}
