package transport

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"sensor-bridge/utils"
)

// ErrNotifyBacklog is returned by Notify when the publish queue is full.
var ErrNotifyBacklog = errors.New("notify backlog full")

// MQTTPeripheralConfig locates the broker and topic tree. Notifications
// go through a queue of QueueSize records; a publish that cannot reach the
// socket within WriteTimeout is abandoned.
type MQTTPeripheralConfig struct {
	Broker       string // host:port
	TopicPrefix  string
	ClientID     string
	QoS          byte
	QueueSize    int
	WriteTimeout time.Duration
}

type outbound struct {
	ch      Channel
	payload []byte
}

// MQTTPeripheral exposes the recognition service through an MQTT broker,
// for gateways that relay BLE-style notifications. Topic tree under the
// prefix:
//
//	central        <- "connect:<addr>" | "disconnect"
//	cccd/<channel> <- "1" | "0"
//	notify/<ch>    -> binary records
//	adv            -> retained advertisement
//
// Broker callbacks arrive on paho goroutines and are queued; link state
// only changes inside Poll. Notifications leave through a bounded outbox.
type MQTTPeripheral struct {
	cfg     MQTTPeripheralConfig
	client  mqtt.Client
	address string
	events  chan linkEvent

	name        string
	advertising bool
	connectable bool
	peer        string
	connected   bool
	subscribed  [len(Channels)]bool
	handlers    [2]EventHandler

	notifyTopics [len(Channels)]string
	outbox       chan outbound
	done         chan struct{}
	wg           sync.WaitGroup

	stats      NotifyStats
	lostEvents uint64
}

// NewMQTTPeripheral prepares a peripheral. Begin connects to the broker.
func NewMQTTPeripheral(cfg MQTTPeripheralConfig) *MQTTPeripheral {
	id := uuid.New()
	if cfg.ClientID == "" {
		cfg.ClientID = "sensor-bridge-" + id.String()[:8]
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "sensor-bridge"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 20 * time.Millisecond
	}
	// random static address: top two bits set
	addr := fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", id[0]|0xC0, id[1], id[2], id[3], id[4], id[5])
	p := &MQTTPeripheral{
		cfg:     cfg,
		address: addr,
		events:  make(chan linkEvent, 32),
		outbox:  make(chan outbound, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	for _, c := range Channels {
		p.notifyTopics[c] = p.topic("notify", c.String())
	}
	return p
}

func (p *MQTTPeripheral) topic(parts ...string) string {
	return p.cfg.TopicPrefix + "/" + strings.Join(parts, "/")
}

func (p *MQTTPeripheral) Begin() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", p.cfg.Broker))
	opts.SetClientID(p.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetWriteTimeout(p.cfg.WriteTimeout)

	opts.OnConnect = func(c mqtt.Client) {
		c.Subscribe(p.topic("central"), 1, p.onCentral)
		c.Subscribe(p.topic("cccd", "+"), 1, p.onCCCD)
		utils.L().Debug("mqtt peripheral: broker connected (%s)", p.cfg.Broker)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		// without the broker there is no path to the peer
		p.queue(linkEvent{kind: EventDisconnected})
		utils.L().Warn("mqtt peripheral: broker connection lost: %v", err)
	}

	p.client = mqtt.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt peripheral %s: %w: connect timeout", p.cfg.Broker, ErrStackInit)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt peripheral %s: %w: %v", p.cfg.Broker, ErrStackInit, err)
	}
	p.wg.Add(1)
	go p.publish()
	return nil
}

// publish drains the outbox on its own goroutine so a stalled broker only
// ever backs up the queue.
func (p *MQTTPeripheral) publish() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case m := <-p.outbox:
			token := p.client.Publish(p.notifyTopics[m.ch], p.cfg.QoS, false, m.payload)
			if !token.WaitTimeout(p.cfg.WriteTimeout) || token.Error() != nil {
				atomic.AddUint64(&p.stats.Errors[m.ch], 1)
				continue
			}
			atomic.AddUint64(&p.stats.Sent[m.ch], 1)
		}
	}
}

func (p *MQTTPeripheral) onCentral(_ mqtt.Client, msg mqtt.Message) {
	body := strings.TrimSpace(string(msg.Payload()))
	switch {
	case strings.HasPrefix(body, "connect:"):
		p.queue(linkEvent{kind: EventConnected, peer: strings.TrimPrefix(body, "connect:")})
	case body == "disconnect":
		p.queue(linkEvent{kind: EventDisconnected})
	default:
		utils.L().Debug("mqtt peripheral: ignoring central message %q", body)
	}
}

func (p *MQTTPeripheral) onCCCD(_ mqtt.Client, msg mqtt.Message) {
	name := msg.Topic()[strings.LastIndex(msg.Topic(), "/")+1:]
	ch, ok := channelByName(name)
	if !ok {
		return
	}
	on := strings.TrimSpace(string(msg.Payload())) == "1"
	p.queue(linkEvent{channel: ch, cccd: &on})
}

func (p *MQTTPeripheral) queue(ev linkEvent) {
	select {
	case p.events <- ev:
	default:
		atomic.AddUint64(&p.lostEvents, 1)
	}
}

func (p *MQTTPeripheral) SetLocalName(name string) { p.name = name }

func (p *MQTTPeripheral) SetEventHandler(ev Event, fn EventHandler) { p.handlers[ev] = fn }

// Advertise publishes a retained advertisement describing the service.
func (p *MQTTPeripheral) Advertise() error {
	adv := fmt.Sprintf("name=%s;addr=%s;service=%s;class=%s;features=%s",
		p.name, p.address, ServiceUUID, ClassOnlyUUID, ClassFeaturesUUID)
	token := p.client.Publish(p.topic("adv"), 1, true, adv)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("mqtt peripheral: advertise timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt peripheral: advertise: %w", err)
	}
	p.advertising, p.connectable = true, true
	return nil
}

func (p *MQTTPeripheral) SetConnectable(connectable bool) { p.connectable = connectable }

func (p *MQTTPeripheral) Poll() {
	for {
		select {
		case ev := <-p.events:
			p.apply(ev)
		default:
			return
		}
	}
}

func (p *MQTTPeripheral) apply(ev linkEvent) {
	if ev.cccd != nil {
		if p.connected {
			p.subscribed[ev.channel] = *ev.cccd
		}
		return
	}
	switch ev.kind {
	case EventConnected:
		if p.connected || !p.advertising || !p.connectable {
			return
		}
		p.peer, p.connected, p.connectable = ev.peer, true, false
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

func (p *MQTTPeripheral) Central() (string, bool) { return p.peer, p.connected }

func (p *MQTTPeripheral) Subscribed(ch Channel) bool { return p.connected && p.subscribed[ch] }

// Notify queues payload for the publisher goroutine and returns at once.
// The payload is copied because the caller reuses its buffer on the next
// cycle. A full queue drops the record with ErrNotifyBacklog.
func (p *MQTTPeripheral) Notify(ch Channel, payload []byte) error {
	if len(payload) > ch.MaxSize() {
		atomic.AddUint64(&p.stats.Errors[ch], 1)
		return fmt.Errorf("mqtt peripheral: %s: %d bytes: %w", ch, len(payload), ErrPayloadTooLarge)
	}
	if !p.Subscribed(ch) {
		atomic.AddUint64(&p.stats.Dropped[ch], 1)
		return nil
	}
	if !p.client.IsConnectionOpen() {
		atomic.AddUint64(&p.stats.Errors[ch], 1)
		return fmt.Errorf("mqtt peripheral: broker not connected")
	}
	select {
	case p.outbox <- outbound{ch: ch, payload: append([]byte(nil), payload...)}:
		return nil
	default:
		atomic.AddUint64(&p.stats.Overflow[ch], 1)
		return fmt.Errorf("mqtt peripheral: %s: %w", ch, ErrNotifyBacklog)
	}
}

func (p *MQTTPeripheral) Address() string { return p.address }

// Stats returns per-channel notification counters.
func (p *MQTTPeripheral) Stats() NotifyStats {
	var s NotifyStats
	for _, c := range Channels {
		s.Sent[c] = atomic.LoadUint64(&p.stats.Sent[c])
		s.Dropped[c] = atomic.LoadUint64(&p.stats.Dropped[c])
		s.Errors[c] = atomic.LoadUint64(&p.stats.Errors[c])
		s.Overflow[c] = atomic.LoadUint64(&p.stats.Overflow[c])
	}
	return s
}

func (p *MQTTPeripheral) Close() error {
	select {
	case <-p.done:
		return nil
	default:
		close(p.done)
	}
	p.wg.Wait()
	if p.client != nil && p.client.IsConnected() {
		p.client.Publish(p.topic("adv"), 1, true, "")
		p.client.Disconnect(250)
	}
	return nil
}
