package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sensor-bridge/utils"
)

type linkEvent struct {
	kind    Event
	peer    string
	channel Channel
	cccd    *bool // set for subscription changes
}

// SimPeripheral is an in-memory wireless stack. Test code and the scripted
// central drive it through Connect/Subscribe/Disconnect; the bridge sees
// those changes on its next Poll.
type SimPeripheral struct {
	address   string
	failBegin bool

	mu      sync.Mutex
	pending []linkEvent
	sent    [len(Channels)][][]byte
	keep    bool

	// owned by the polling goroutine
	name        string
	began       bool
	advertising bool
	connectable bool
	peer        string
	connected   bool
	subscribed  [len(Channels)]bool
	handlers    [2]EventHandler

	stats NotifyStats
}

// NewSimPeripheral creates a simulated stack with a fixed address. With
// keepPayloads set, every delivered notification is retained for Sent.
func NewSimPeripheral(address string, keepPayloads bool) *SimPeripheral {
	return &SimPeripheral{address: address, keep: keepPayloads}
}

// FailBegin makes the next Begin fail with ErrStackInit.
func (p *SimPeripheral) FailBegin() { p.failBegin = true }

func (p *SimPeripheral) Begin() error {
	if p.failBegin {
		return fmt.Errorf("sim peripheral: %w", ErrStackInit)
	}
	p.began = true
	return nil
}

func (p *SimPeripheral) SetLocalName(name string) { p.name = name }

func (p *SimPeripheral) SetEventHandler(ev Event, fn EventHandler) { p.handlers[ev] = fn }

func (p *SimPeripheral) Advertise() error {
	if !p.began {
		return fmt.Errorf("sim peripheral: advertise before begin: %w", ErrStackInit)
	}
	p.advertising = true
	p.connectable = true
	return nil
}

func (p *SimPeripheral) SetConnectable(connectable bool) { p.connectable = connectable }

// Connectable reports whether a new central would be accepted.
func (p *SimPeripheral) Connectable() bool { return p.advertising && p.connectable }

// ─── peer side ──────────────────────────────────────────────────────────

// Connect queues a central connection.
func (p *SimPeripheral) Connect(peer string) { p.enqueue(linkEvent{kind: EventConnected, peer: peer}) }

// Disconnect queues loss of the current central.
func (p *SimPeripheral) Disconnect() { p.enqueue(linkEvent{kind: EventDisconnected}) }

// Subscribe queues a CCCD write enabling notifications on ch.
func (p *SimPeripheral) Subscribe(ch Channel) {
	on := true
	p.enqueue(linkEvent{channel: ch, cccd: &on})
}

// Unsubscribe queues a CCCD write disabling notifications on ch.
func (p *SimPeripheral) Unsubscribe(ch Channel) {
	off := false
	p.enqueue(linkEvent{channel: ch, cccd: &off})
}

func (p *SimPeripheral) enqueue(ev linkEvent) {
	p.mu.Lock()
	p.pending = append(p.pending, ev)
	p.mu.Unlock()
}

// Sent returns copies of the payloads delivered on ch.
func (p *SimPeripheral) Sent(ch Channel) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.sent[ch]))
	copy(out, p.sent[ch])
	return out
}

// ─── bridge side ────────────────────────────────────────────────────────

func (p *SimPeripheral) Poll() {
	p.mu.Lock()
	events := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, ev := range events {
		p.apply(ev)
	}
}

func (p *SimPeripheral) apply(ev linkEvent) {
	if ev.cccd != nil {
		if p.connected {
			p.subscribed[ev.channel] = *ev.cccd
		}
		return
	}
	switch ev.kind {
	case EventConnected:
		if p.connected || !p.Connectable() {
			utils.L().Debug("sim peripheral: refused central %s (connected=%v connectable=%v)",
				ev.peer, p.connected, p.Connectable())
			return
		}
		p.peer, p.connected = ev.peer, true
		p.connectable = false
		if h := p.handlers[EventConnected]; h != nil {
			h(ev.peer)
		}
	case EventDisconnected:
		if !p.connected {
			return
		}
		peer := p.peer
		p.peer, p.connected = "", false
		p.subscribed = [len(Channels)]bool{}
		if h := p.handlers[EventDisconnected]; h != nil {
			h(peer)
		}
	}
}

func (p *SimPeripheral) Central() (string, bool) { return p.peer, p.connected }

func (p *SimPeripheral) Subscribed(ch Channel) bool { return p.connected && p.subscribed[ch] }

func (p *SimPeripheral) Notify(ch Channel, payload []byte) error {
	if len(payload) > ch.MaxSize() {
		atomic.AddUint64(&p.stats.Errors[ch], 1)
		return fmt.Errorf("sim peripheral: %s: %d bytes: %w", ch, len(payload), ErrPayloadTooLarge)
	}
	if !p.Subscribed(ch) {
		atomic.AddUint64(&p.stats.Dropped[ch], 1)
		return nil
	}
	atomic.AddUint64(&p.stats.Sent[ch], 1)
	if p.keep {
		cp := append([]byte(nil), payload...)
		p.mu.Lock()
		p.sent[ch] = append(p.sent[ch], cp)
		p.mu.Unlock()
	}
	return nil
}

func (p *SimPeripheral) Address() string { return p.address }

// Stats returns per-channel notification counters.
func (p *SimPeripheral) Stats() NotifyStats {
	var s NotifyStats
	for _, c := range Channels {
		s.Sent[c] = atomic.LoadUint64(&p.stats.Sent[c])
		s.Dropped[c] = atomic.LoadUint64(&p.stats.Dropped[c])
		s.Errors[c] = atomic.LoadUint64(&p.stats.Errors[c])
	}
	return s
}

func (p *SimPeripheral) Close() error { return nil }

// ─── scripted central ───────────────────────────────────────────────────

// CentralScript describes a simulated observer that repeatedly connects,
// subscribes, stays for a while, and leaves.
type CentralScript struct {
	Peer      string
	Idle      time.Duration // time spent disconnected
	Connected time.Duration // time spent connected
	Channels  []Channel
}

// RunScriptedCentral drives p according to script until ctx ends.
func RunScriptedCentral(ctx context.Context, p *SimPeripheral, script CentralScript) {
	if script.Idle <= 0 {
		script.Idle = 7 * time.Second
	}
	if script.Connected <= 0 {
		script.Connected = 20 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(script.Idle):
		}
		p.Connect(script.Peer)
		for _, ch := range script.Channels {
			p.Subscribe(ch)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(script.Connected):
		}
		p.Disconnect()
	}
}
