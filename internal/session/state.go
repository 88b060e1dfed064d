package session

import "context"

// State is the connection lifecycle of the single outbound messaging
// session. It is written only by the Manager; everyone else reads.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingAuth
	StateLive
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingAuth:
		return "awaiting_auth"
	case StateLive:
		return "live"
	}
	return "unknown"
}

type EventKind int

const (
	// EventQR carries a pairing challenge that must be presented to the
	// operator for scanning.
	EventQR EventKind = iota
	// EventConnected signals the session reached the live state.
	EventConnected
	// EventDisconnected signals an unexpected close; the cause is transient
	// and the Manager may reconnect.
	EventDisconnected
	// EventLoggedOut signals a terminal close; reconnecting is pointless
	// until the operator re-pairs the device.
	EventLoggedOut
)

type Event struct {
	Kind  EventKind
	QR    string // pairing payload, EventQR only
	Cause error  // close cause, EventDisconnected only, may be nil
}

// Client is the opaque provider session the Manager drives. The production
// implementation is the whatsmeow adapter; tests substitute fakes.
type Client interface {
	Connect() error
	Disconnect()
	Logout(ctx context.Context) error
	IsRegistered(ctx context.Context, address string) (bool, error)
	SendText(ctx context.Context, address, text string) error
	Events() <-chan Event
}

// QRSink receives the raw pairing challenge for presentation. The Manager
// forwards the payload verbatim and never parses it.
type QRSink interface {
	PresentQR(code string)
}
