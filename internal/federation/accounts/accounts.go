// Package accounts materializes local identities for federated subjects.
package accounts

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "trustbridge/pkg/domain-errors"
)

// Account is the local identity bound to a subject at a home provider.
type Account struct {
	ID             string
	HomeProviderID string
	Subject        string
	CreatedAt      time.Time
	LastSeenAt     time.Time
}

// InMemoryResolver finds or creates accounts keyed by (home provider, subject).
type InMemoryResolver struct {
	mu       sync.Mutex
	accounts map[string]*Account
	clock    func() time.Time
}

func NewInMemoryResolver(clock func() time.Time) *InMemoryResolver {
	if clock == nil {
		clock = time.Now
	}
	return &InMemoryResolver{accounts: make(map[string]*Account), clock: clock}
}

func key(homeProviderID, subject string) string {
	return homeProviderID + "\x00" + subject
}

// Resolve returns the account for subject, creating it on first sight.
func (r *InMemoryResolver) Resolve(_ context.Context, homeProviderID, subject string) (Account, error) {
	if strings.TrimSpace(homeProviderID) == "" || strings.TrimSpace(subject) == "" {
		return Account{}, dErrors.New(dErrors.CodeValidation, "home provider and subject are required")
	}
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(homeProviderID, subject)
	if acct, ok := r.accounts[k]; ok {
		acct.LastSeenAt = now
		return *acct, nil
	}
	acct := &Account{
		ID:             uuid.NewString(),
		HomeProviderID: homeProviderID,
		Subject:        subject,
		CreatedAt:      now,
		LastSeenAt:     now,
	}
	r.accounts[k] = acct
	return *acct, nil
}
