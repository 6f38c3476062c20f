package mqtt

import "log"

// outbound is a serialized MQTT message held for replay after reconnection.
type outbound struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a fixed-capacity FIFO of messages queued while disconnected.
// When full, the oldest message is overwritten.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type backlog struct {
	msgs    []outbound
	next    int // next write position
	size    int
	dropped int // messages overwritten since last drain
}

func newBacklog(capacity int) *backlog {
	return &backlog{msgs: make([]outbound, capacity)}
}

// push queues msg and reports whether an older message was dropped to make room.
func (b *backlog) push(msg outbound) bool {
	full := b.size == len(b.msgs)
	if full {
		if b.dropped == 0 {
			log.Printf("mqtt: backlog full (%d messages), dropping oldest", len(b.msgs))
		}
		b.dropped++
	} else {
		b.size++
	}
	b.msgs[b.next] = msg
	b.next = (b.next + 1) % len(b.msgs)
	return full
}

// drain returns queued messages oldest first and empties the backlog.
func (b *backlog) drain() []outbound {
	if b.size == 0 {
		return nil
	}

	out := make([]outbound, 0, b.size)
	first := (b.next - b.size + len(b.msgs)) % len(b.msgs)
	for i := 0; i < b.size; i++ {
		out = append(out, b.msgs[(first+i)%len(b.msgs)])
	}

	if b.dropped > 0 {
		log.Printf("mqtt: replaying %d messages, %d dropped while disconnected", b.size, b.dropped)
	}
	b.size = 0
	b.next = 0
	b.dropped = 0
	return out
}

func (b *backlog) len() int {
	return b.size
}
