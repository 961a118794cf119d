// Package relyingparty authenticates the registered clients allowed to call
// the broker.
package relyingparty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/sentinel"
)

// Client is a registered relying party. SecretHash is a bcrypt hash.
type Client struct {
	ID         string
	SecretHash []byte
}

// ParseClient reads an "id:bcrypt-hash" pair as found in configuration.
func ParseClient(pair string) (Client, error) {
	id, hash, ok := strings.Cut(strings.TrimSpace(pair), ":")
	if !ok || id == "" || hash == "" {
		return Client{}, dErrors.New(dErrors.CodeConfiguration, "client entry must be id:bcrypt-hash")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return Client{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "client "+id+" has an invalid secret hash")
	}
	return Client{ID: id, SecretHash: []byte(hash)}, nil
}

// HashSecret returns the bcrypt hash to register a client with.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash client secret: %w", err)
	}
	return string(hash), nil
}

// InMemoryStore holds registered clients.
type InMemoryStore struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewInMemoryStore(clients ...Client) *InMemoryStore {
	s := &InMemoryStore{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		s.clients[c.ID] = c
	}
	return s
}

func (s *InMemoryStore) Save(_ context.Context, c Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return Client{}, fmt.Errorf("client %s: %w", id, sentinel.ErrNotFound)
	}
	return c, nil
}

// Store looks up registered clients.
type Store interface {
	FindByID(ctx context.Context, id string) (Client, error)
}

// Service verifies client credentials.
type Service struct {
	store  Store
	logger *slog.Logger
	// unknown clients are checked against decoy so every attempt runs bcrypt once
	decoy []byte
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.decoy, _ = bcrypt.GenerateFromPassword([]byte("decoy"), bcrypt.MinCost)
	return s
}

// Authenticate returns the client when secret matches its registered hash.
// Unknown clients and wrong secrets both fail with CodeUnauthorized.
func (s *Service) Authenticate(ctx context.Context, clientID, secret string) (Client, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid client credentials")
	if clientID == "" || secret == "" {
		return Client{}, invalid
	}
	client, err := s.store.FindByID(ctx, clientID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return Client{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
		}
		_ = bcrypt.CompareHashAndPassword(s.decoy, []byte(secret))
		s.logger.InfoContext(ctx, "unknown client", "client_id", clientID)
		return Client{}, invalid
	}
	if err := bcrypt.CompareHashAndPassword(client.SecretHash, []byte(secret)); err != nil {
		s.logger.InfoContext(ctx, "client secret mismatch", "client_id", clientID)
		return Client{}, invalid
	}
	return client, nil
}
