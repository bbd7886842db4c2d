// Package transport holds the two output paths of the bridge: a wireless
// peripheral exposing notify channels, and a serial text console.
package transport

import (
	"errors"
)

var (
	// ErrStackInit is returned when the wireless stack cannot start.
	ErrStackInit = errors.New("wireless stack init failed")
	// ErrPayloadTooLarge is returned by Notify for payloads over a
	// channel's maximum size.
	ErrPayloadTooLarge = errors.New("payload exceeds channel size")
)

// Recognition service identity.
const (
	ServiceUUID       = "42421100-5A22-46DD-90F7-7AF26F723159"
	ClassOnlyUUID     = "42421101-5A22-46DD-90F7-7AF26F723159"
	ClassFeaturesUUID = "42421102-5A22-46DD-90F7-7AF26F723159"

	ClassOnlyMaxSize     = 4
	ClassFeaturesMaxSize = 128
)

// Channel is a notify-capable endpoint a peer can subscribe to.
type Channel int

const (
	ChannelClass Channel = iota
	ChannelFeatures
)

// Channels lists every channel of the recognition service.
var Channels = [...]Channel{ChannelClass, ChannelFeatures}

func (c Channel) String() string {
	switch c {
	case ChannelClass:
		return "class"
	case ChannelFeatures:
		return "features"
	default:
		return "unknown"
	}
}

// UUID returns the characteristic UUID of the channel.
func (c Channel) UUID() string {
	if c == ChannelFeatures {
		return ClassFeaturesUUID
	}
	return ClassOnlyUUID
}

// MaxSize is the largest payload the channel accepts.
func (c Channel) MaxSize() int {
	if c == ChannelFeatures {
		return ClassFeaturesMaxSize
	}
	return ClassOnlyMaxSize
}

// FixedLength reports whether every notification has exactly MaxSize bytes.
func (c Channel) FixedLength() bool { return c == ChannelClass }

func channelByName(name string) (Channel, bool) {
	for _, c := range Channels {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

// Event is a link-level transition reported by the stack.
type Event int

const (
	EventConnected Event = iota
	EventDisconnected
)

func (e Event) String() string {
	if e == EventConnected {
		return "connected"
	}
	return "disconnected"
}

// EventHandler receives the peer address of a connect/disconnect event.
type EventHandler func(peer string)

// Peripheral is the wireless stack as the bridge sees it. Connection
// events are delivered from Poll, on the caller's goroutine, so handlers
// never run concurrently with the main loop.
type Peripheral interface {
	Begin() error
	SetLocalName(name string)
	SetEventHandler(ev Event, fn EventHandler)
	Advertise() error
	SetConnectable(connectable bool)
	// Poll delivers pending link events to the registered handlers.
	Poll()
	// Central returns the current peer, if any.
	Central() (peer string, connected bool)
	Subscribed(ch Channel) bool
	// Notify pushes payload to ch. Unsubscribed channels drop it silently.
	Notify(ch Channel, payload []byte) error
	Address() string
	Close() error
}

// NotifyStats counts notifications per channel. Dropped counts records
// for unsubscribed channels; Overflow counts records a backed-up
// transport refused.
type NotifyStats struct {
	Sent     [len(Channels)]uint64
	Dropped  [len(Channels)]uint64
	Errors   [len(Channels)]uint64
	Overflow [len(Channels)]uint64
}
