package websocket

import (
	"log/slog"
	"time"
)

// Filter decides whether a member identity receives a broadcast.
type Filter func(identity string) bool

// ExcludeIdentity filters out every connection of identity.
func ExcludeIdentity(identity string) Filter {
	return func(member string) bool { return member != identity }
}

// Broadcaster fans events out to channel members. Membership is snapshotted
// under the registry lock and sends happen after it is released, so a send
// may reach a member that just left; that send fails or is dropped
// harmlessly. A failing member never stops delivery to the rest and is never
// removed here: its own session tears it down.
type Broadcaster struct {
	registry *Registry
	metrics  *ConnectionMetrics
	logger   *slog.Logger
}

func NewBroadcaster(registry *Registry, metrics *ConnectionMetrics, logger *slog.Logger) *Broadcaster {
	if metrics == nil {
		metrics = NewConnectionMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{registry: registry, metrics: metrics, logger: logger}
}

// Broadcast sends ev to every member of channel accepted by filter (nil
// accepts all) and returns the number of successful sends.
func (b *Broadcaster) Broadcast(channel string, ev Event, filter Filter) int {
	return b.deliver(channel, ev, b.registry.MembersOf(channel), filter)
}

// BroadcastPresence sends the channel's member identity list to every member.
// The list and the recipients come from the same snapshot.
func (b *Broadcaster) BroadcastPresence(channel string) int {
	members := b.registry.MembersOf(channel)
	users := make([]string, len(members))
	for i, m := range members {
		users[i] = m.Identity
	}
	return b.deliver(channel, NewPresenceEvent(users), members, nil)
}

func (b *Broadcaster) deliver(channel string, ev Event, members []Member, filter Filter) int {
	if len(members) == 0 {
		return 0
	}

	payload, err := EncodeEvent(ev)
	if err != nil {
		b.logger.Error("Failed to encode broadcast", "channel", channel, "type", ev.EventType(), "error", err)
		return 0
	}

	start := time.Now()
	sent, failed := 0, 0
	for _, m := range members {
		if filter != nil && !filter(m.Identity) {
			continue
		}
		if err := m.Conn.Send(payload); err != nil {
			failed++
			b.logger.Debug("Dropped broadcast to member", "connID", m.Conn.ID(), "user", m.Identity, "channel", channel, "error", err)
			continue
		}
		sent++
	}

	b.metrics.RecordBroadcast(sent, failed, time.Since(start))
	b.logger.Debug("Broadcast delivered", "channel", channel, "type", ev.EventType(), "sent", sent, "failed", failed)
	return sent
}
