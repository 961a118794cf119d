package remote

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

const registrationTimeout = 5 * time.Second

// ErrKeyNotFound is returned when no key in the set matches the token's kid.
var ErrKeyNotFound = fmt.Errorf("signing key not found")

// JWKSKeySource fetches and caches home provider signing keys. Each JWKS URI
// is registered with the cache on first use and refreshed in the background.
type JWKSKeySource struct {
	cache *jwk.Cache

	mu         sync.Mutex
	registered map[string]bool
}

// NewJWKSKeySource creates the key cache. The cache stops when ctx is done.
func NewJWKSKeySource(ctx context.Context, httpClient *http.Client) (*JWKSKeySource, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	httprcClient := httprc.NewClient(httprc.WithHTTPClient(httpClient))
	cache, err := jwk.NewCache(ctx, httprcClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
	}
	return &JWKSKeySource{cache: cache, registered: make(map[string]bool)}, nil
}

func (s *JWKSKeySource) ensureRegistered(ctx context.Context, providerID, jwksURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered[jwksURI] {
		return nil
	}
	regCtx, cancel := context.WithTimeout(ctx, registrationTimeout)
	defer cancel()
	if err := s.cache.Register(regCtx, jwksURI); err != nil {
		return classifyTransport(providerID, "failed to register JWKS", err)
	}
	s.registered[jwksURI] = true
	return nil
}

// Key returns the raw public key for kid. An unknown kid triggers one refresh
// so rotated keys are picked up without waiting for the cache interval.
func (s *JWKSKeySource) Key(ctx context.Context, providerID, jwksURI, kid string) (any, error) {
	if err := s.ensureRegistered(ctx, providerID, jwksURI); err != nil {
		return nil, err
	}
	keySet, err := s.cache.Lookup(ctx, jwksURI)
	if err != nil {
		return nil, classifyTransport(providerID, "failed to lookup JWKS", err)
	}
	key, found := keySet.LookupKeyID(kid)
	if !found {
		keySet, err = s.cache.Refresh(ctx, jwksURI)
		if err != nil {
			return nil, classifyTransport(providerID, "failed to refresh JWKS", err)
		}
		key, found = keySet.LookupKeyID(kid)
		if !found {
			return nil, fmt.Errorf("key ID %s: %w", kid, ErrKeyNotFound)
		}
	}

	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		return nil, NewError(CategoryBadData, providerID, "failed to export raw key", err)
	}
	return rawKey, nil
}
