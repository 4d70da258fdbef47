package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"primeNotify/internal/modules/notifications/application/port"
	"primeNotify/internal/modules/notifications/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	created  []*domain.Notification
	statuses map[string]domain.Status

	createErr   error
	markReadFn  func(id, recipient string) (*domain.Notification, error)
	deleteErr   error
	deleteAllFn func(recipient string) (int64, error)
	listFn      func(recipient string) ([]domain.Notification, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{statuses: make(map[string]domain.Status)}
}

func (s *fakeStore) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	copied := *n
	copied.ID = primitive.NewObjectID()
	s.mu.Lock()
	s.created = append(s.created, &copied)
	s.mu.Unlock()
	return &copied, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.created {
		if n.ID.Hex() == id {
			return n, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) ListByRecipient(_ context.Context, recipient string) ([]domain.Notification, error) {
	if s.listFn != nil {
		return s.listFn(recipient)
	}
	return nil, nil
}

func (s *fakeStore) MarkRead(_ context.Context, id, recipient string) (*domain.Notification, error) {
	if s.markReadFn != nil {
		return s.markReadFn(id, recipient)
	}
	return &domain.Notification{Read: true, Recipient: recipient}, nil
}

func (s *fakeStore) Delete(_ context.Context, id, recipient string) error {
	return s.deleteErr
}

func (s *fakeStore) DeleteAllForRecipient(_ context.Context, recipient string) (int64, error) {
	if s.deleteAllFn != nil {
		return s.deleteAllFn(recipient)
	}
	return 0, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	s.mu.Lock()
	s.statuses[id] = status
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) statusOf(id string) domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id]
}

type fakeUsers struct {
	users   map[string]*domain.User
	findErr error
}

func (u *fakeUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u.findErr != nil {
		return nil, u.findErr
	}
	if user, ok := u.users[id]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
}

type publishedMessage struct {
	exchange   string
	routingKey string
	message    any
}

type fakeEvents struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (e *fakeEvents) Publish(_ context.Context, exchange, routingKey string, message any) error {
	if e.err != nil {
		return e.err
	}
	e.mu.Lock()
	e.published = append(e.published, publishedMessage{exchange: exchange, routingKey: routingKey, message: message})
	e.mu.Unlock()
	return nil
}

func (e *fakeEvents) all() []publishedMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]publishedMessage{}, e.published...)
}

type fakeGateway struct {
	mu      sync.Mutex
	sent    [][]port.PushMessage
	sendErr error
	validFn func(token string) bool
}

func (g *fakeGateway) IsPushToken(token string) bool {
	if g.validFn != nil {
		return g.validFn(token)
	}
	return token != ""
}

func (g *fakeGateway) Send(_ context.Context, messages []port.PushMessage) error {
	if g.sendErr != nil {
		return g.sendErr
	}
	g.mu.Lock()
	g.sent = append(g.sent, messages)
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}
