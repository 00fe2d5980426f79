package mqtt

import "github.com/rs/zerolog/log"

// DefaultOutboxSize bounds the number of messages held while disconnected.
const DefaultOutboxSize = 100

// message is a serialized MQTT message waiting for a connection.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a bounded FIFO; once full, the oldest message is dropped.
// Not safe for concurrent use; callers hold RealPublisher.mu.
type outbox struct {
	msgs    []message
	limit   int
	dropped int // messages dropped since the last flush
}

func newOutbox(limit int) *outbox {
	if limit < 1 {
		limit = 1
	}
	return &outbox{limit: limit}
}

func (o *outbox) add(m message) {
	if len(o.msgs) == o.limit {
		if o.dropped == 0 {
			log.Warn().Int("limit", o.limit).Msg("mqtt: outbox full, dropping oldest")
		}
		o.dropped++
		copy(o.msgs, o.msgs[1:])
		o.msgs = o.msgs[:len(o.msgs)-1]
	}
	o.msgs = append(o.msgs, m)
}

// flush returns the queued messages oldest first and empties the outbox.
func (o *outbox) flush() []message {
	if len(o.msgs) == 0 {
		return nil
	}
	out := o.msgs
	o.msgs = nil
	if o.dropped > 0 {
		log.Warn().Int("dropped", o.dropped).Msg("mqtt: messages lost while disconnected")
		o.dropped = 0
	}
	return out
}

// requeue puts ms back at the front, ahead of anything added since they
// were flushed. The oldest messages are dropped if that exceeds the limit.
func (o *outbox) requeue(ms []message) {
	all := append(append([]message(nil), ms...), o.msgs...)
	if over := len(all) - o.limit; over > 0 {
		o.dropped += over
		all = all[over:]
	}
	o.msgs = all
}

func (o *outbox) len() int {
	return len(o.msgs)
}
