package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/knock-sensor/internal/logic"
)

// backlogSize bounds how many messages are kept while the broker is unreachable.
const backlogSize = 256

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client

	mu            sync.Mutex
	backlog       *backlog
	connectedOnce bool
	// replaying holds publishes in the backlog from connection loss until
	// onConnect has replayed it, so queued messages keep their order.
	replaying bool
}

// NewRealPublisher creates a publisher for the given broker.
// If the broker does not answer within the connect timeout the publisher is
// still returned: paho keeps retrying and messages are queued meanwhile.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{backlog: newBacklog(backlogSize), replaying: true}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, queueing until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays the backlog and, after a reconnect, announces it.
// Runs on a paho goroutine so it must not wait on tokens.
// paho reports the connection open before this runs; until the backlog is
// empty, enqueue keeps queueing so nothing overtakes older messages.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connectedOnce
	p.connectedOnce = true
	p.mu.Unlock()

	for {
		p.mu.Lock()
		queued := p.backlog.drain()
		if len(queued) == 0 {
			if reconnect {
				p.announceReconnect(c)
			}
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for _, m := range queued {
			c.Publish(m.topic, m.qos, m.retained, m.payload)
		}
	}
}

// announceReconnect publishes RECONNECTED behind the replayed backlog.
// Called with mu held.
func (p *RealPublisher) announceReconnect(c paho.Client) {
	log.Printf("mqtt: reconnected")
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	if err == nil {
		c.Publish(TopicSystem, 1, false, payload)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	log.Printf("mqtt: connection lost: %v", err)
	p.mu.Lock()
	p.replaying = true
	p.mu.Unlock()
}

// enqueue publishes msg, or queues it when disconnected.
// Returns a nil token when the message was queued.
func (p *RealPublisher) enqueue(msg outbound) paho.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.replaying || !p.client.IsConnectionOpen() {
		p.backlog.push(msg)
		return nil
	}
	return p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
}

// Publish sends a touch or pattern event without waiting for the broker.
// Delivery failures are logged asynchronously.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1 for patterns (the whole point of a session), QoS 0 for edges.
	var qos byte
	if event.Type == logic.EventPattern {
		qos = 1
	}

	token := p.enqueue(outbound{topic: Topic, payload: payload, qos: qos})
	if token == nil {
		return nil
	}
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: publish %s timeout", event.Type)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish %s: %v", event.Type, err)
		}
	}()
	return nil
}

// PublishSystem sends a system lifecycle event and waits for it to be sent.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) - lifecycle events should not be lost
	token := p.enqueue(outbound{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	if token == nil {
		return nil
	}
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}

	return nil
}

// IsConnected reports whether the broker connection is open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Queued returns the number of messages waiting for a connection.
func (p *RealPublisher) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backlog.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
