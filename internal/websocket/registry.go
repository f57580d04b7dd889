package websocket

import (
	"sort"
	"sync"
)

// Conn is the registry's handle on a live connection. Send must not block
// for long: the broadcaster calls it for every member of a channel.
type Conn interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

// Member is one entry of a channel snapshot.
type Member struct {
	Conn     Conn
	Identity string
}

type registration struct {
	conn     Conn
	identity string
	channel  string
	seq      uint64
}

// Registry is the authoritative map of live connections to identity and
// channel, and of channel to members. Every mutation and every snapshot is
// taken under one mutex, so a connection is in exactly one channel's member
// set at any observable instant.
type Registry struct {
	mu       sync.Mutex
	conns    map[string]*registration
	channels map[string]map[string]*registration
	seq      uint64
}

func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[string]*registration),
		channels: make(map[string]map[string]*registration),
	}
}

// Register adds conn to channel under identity.
func (r *Registry) Register(conn Conn, identity, channel string) error {
	if identity == "" {
		return ErrMissingIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID()]; ok {
		return ErrAlreadyRegistered
	}
	r.seq++
	reg := &registration{conn: conn, identity: identity, channel: channel, seq: r.seq}
	r.conns[conn.ID()] = reg
	r.join(reg)
	return nil
}

// Deregister removes conn and reports the channel it occupied. Removing an
// unknown connection is a no-op.
func (r *Registry) Deregister(conn Conn) (identity, channel string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[conn.ID()]
	if !ok {
		return "", "", false
	}
	delete(r.conns, conn.ID())
	r.leave(reg)
	return reg.identity, reg.channel, true
}

// ChangeChannel moves conn to newChannel in one step and returns the channel it left.
func (r *Registry) ChangeChannel(conn Conn, newChannel string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[conn.ID()]
	if !ok {
		return "", ErrNotRegistered
	}
	old := reg.channel
	if old == newChannel {
		return old, nil
	}
	r.leave(reg)
	r.seq++
	reg.channel = newChannel
	reg.seq = r.seq
	r.join(reg)
	return old, nil
}

// MembersOf returns a snapshot of channel's members in join order. Unknown
// channels yield an empty slice.
func (r *Registry) MembersOf(channel string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(channel)
}

// ChannelOf reports the channel conn currently occupies.
func (r *Registry) ChannelOf(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[conn.ID()]
	if !ok {
		return "", false
	}
	return reg.channel, true
}

// IdentityOnline reports whether any live connection carries identity.
func (r *Registry) IdentityOnline(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.conns {
		if reg.identity == identity {
			return true
		}
	}
	return false
}

// Identities returns the distinct identities with a live connection, sorted.
func (r *Registry) Identities() []string {
	r.mu.Lock()
	seen := make(map[string]struct{}, len(r.conns))
	for _, reg := range r.conns {
		seen[reg.identity] = struct{}{}
	}
	r.mu.Unlock()

	out := make([]string, 0, len(seen))
	for identity := range seen {
		out = append(out, identity)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Registry) join(reg *registration) {
	members, ok := r.channels[reg.channel]
	if !ok {
		members = make(map[string]*registration)
		r.channels[reg.channel] = members
	}
	members[reg.conn.ID()] = reg
}

// leave drops reg from its channel; empty member sets are pruned since a
// channel with no members is indistinguishable from one never joined.
func (r *Registry) leave(reg *registration) {
	members := r.channels[reg.channel]
	delete(members, reg.conn.ID())
	if len(members) == 0 {
		delete(r.channels, reg.channel)
	}
}

func (r *Registry) snapshot(channel string) []Member {
	members := r.channels[channel]
	regs := make([]*registration, 0, len(members))
	for _, reg := range members {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].seq < regs[j].seq })

	out := make([]Member, len(regs))
	for i, reg := range regs {
		out[i] = Member{Conn: reg.conn, Identity: reg.identity}
	}
	return out
}
