// Package memory implements the persistence contracts in process memory. It
// backs RELAY_STORE=memory and the tests of the packages above it.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/repositories"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	messages []*models.Message
	channels map[string]struct{}
	nextUser uint
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*models.User),
		channels: make(map[string]struct{}),
		now:      time.Now,
	}
}

var (
	_ repositories.UserStore      = (*Store)(nil)
	_ repositories.MessageStore   = (*Store)(nil)
	_ repositories.ChannelCatalog = (*Store)(nil)
)

func (s *Store) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return repositories.ErrAlreadyExists
	}
	s.nextUser++
	user.ID = s.nextUser
	user.CreatedAt = s.now()

	stored := *user
	s.users[user.Username] = &stored
	return nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	found := *user
	return &found, nil
}

func (s *Store) Save(_ context.Context, username, channel, text string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &models.Message{
		ID:        uint(len(s.messages) + 1),
		Username:  username,
		Channel:   channel,
		Text:      text,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)

	saved := *msg
	return &saved, nil
}

func (s *Store) Delete(_ context.Context, id uint, requester string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 || int(id) > len(s.messages) {
		return nil, repositories.ErrNotFound
	}
	msg := s.messages[id-1]
	if msg.Deleted {
		return nil, repositories.ErrNotFound
	}
	if msg.Username != requester {
		return nil, repositories.ErrForbidden
	}
	msg.Deleted = true

	deleted := *msg
	return &deleted, nil
}

func (s *Store) ListRecent(_ context.Context, channel string, limit int) ([]*models.Message, error) {
	limit = repositories.ClampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Message
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		msg := s.messages[i]
		if msg.Channel != channel || msg.Deleted {
			continue
		}
		cp := *msg
		out = append(out, &cp)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Ensure(_ context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			s.channels[name] = struct{}{}
		}
	}
	return nil
}
