package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/ice-tower/internal/logic"
)

// DefaultTimeout bounds the initial connect and each publish.
const DefaultTimeout = 5 * time.Second

var errPublishTimeout = errors.New("mqtt: publish timed out")

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Topics     Topics
	OutboxSize int           // 0 = DefaultOutboxSize
	Timeout    time.Duration // 0 = DefaultTimeout
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are held in an outbox and replayed on connect.
//
// Ordering: while the outbox is non-empty or a replay is running, new
// messages join the back of the outbox instead of being sent directly, so a
// tick never overtakes older queued events.
//
// A publish that times out is queued again even though paho may still
// deliver it, so the broker can see it twice after a reconnect. Every
// payload carries its own timestamp, which lets consumers drop duplicates.
type RealPublisher struct {
	client  paho.Client
	topics  Topics
	timeout time.Duration

	mu        sync.Mutex
	outbox    *outbox
	replaying bool
	connected bool // at least one connection has been established
}

// NewRealPublisher starts connecting to the broker. A broker that is not
// reachable yet is not an error: the client keeps retrying in the
// background and publishes are queued meanwhile.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.Broker == "" {
		return nil, fmt.Errorf("mqtt: broker is required")
	}

	p := newPublisher(o)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetWill(p.topics.System, string(will), 1, true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("mqtt: connection lost")
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if token.WaitTimeout(p.timeout) && token.Error() != nil {
		return nil, fmt.Errorf("connect to broker: %w", token.Error())
	}
	if !p.client.IsConnectionOpen() {
		log.Warn().Str("broker", o.Broker).Msg("mqtt: broker not reachable yet, queueing messages")
	}
	return p, nil
}

// newPublisher builds a RealPublisher without a client.
func newPublisher(o Options) *RealPublisher {
	if o.Topics == (Topics{}) {
		o.Topics = TopicsFor(DefaultBaseTopic)
	}
	size := o.OutboxSize
	if size == 0 {
		size = DefaultOutboxSize
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RealPublisher{
		topics:  o.Topics,
		timeout: timeout,
		outbox:  newOutbox(size),
	}
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	log.Info().Int("queued", p.Queued()).Bool("reconnect", reconnect).Msg("mqtt: connected")

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		p.queue(message{topic: p.topics.System, payload: payload, qos: 1, retained: true})
	}

	p.replay(func(m message) error {
		return p.wait(c.Publish(m.topic, m.qos, m.retained, m.payload))
	})
}

// replay drains the outbox through publish, oldest first, including
// messages queued while it runs. On the first failure the unsent messages
// go back to the front of the outbox for the next connect.
func (p *RealPublisher) replay(publish func(message) error) {
	p.mu.Lock()
	if p.replaying {
		p.mu.Unlock()
		return
	}
	p.replaying = true
	for {
		batch := p.outbox.flush()
		if len(batch) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for i, m := range batch {
			if err := publish(m); err != nil {
				log.Warn().Err(err).Str("topic", m.topic).Int("unsent", len(batch)-i).Msg("mqtt: replay failed")
				p.mu.Lock()
				p.outbox.requeue(batch[i:])
				p.replaying = false
				p.mu.Unlock()
				return
			}
		}
		p.mu.Lock()
	}
}

// Publish sends an actuator event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	if err := p.send(message{topic: p.topics.Events, payload: payload}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	m := message{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained}
	if err := p.send(m); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (p *RealPublisher) send(m message) error {
	p.mu.Lock()
	if p.replaying || p.outbox.len() > 0 || !p.client.IsConnectionOpen() {
		p.outbox.add(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.wait(p.client.Publish(m.topic, m.qos, m.retained, m.payload)); err != nil {
		p.queue(m)
		return err
	}
	return nil
}

func (p *RealPublisher) wait(token paho.Token) error {
	if !token.WaitTimeout(p.timeout) {
		return errPublishTimeout
	}
	return token.Error()
}

func (p *RealPublisher) queue(m message) {
	p.mu.Lock()
	p.outbox.add(m)
	p.mu.Unlock()
}

// Queued returns the number of messages waiting for a connection.
func (p *RealPublisher) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.len()
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
