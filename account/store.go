package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tim-projects/otpkit/otp"
)

// Store persists accounts and owns the authoritative HOTP counters.
type Store interface {
	// Add assigns an identifier and timestamps, persists the account
	// and returns the stored record.
	Add(ctx context.Context, a Account) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	// AdvanceCounter moves an HOTP counter from `from` to its successor.
	// It fails with ErrStaleCounter when the stored counter is not `from`.
	AdvanceCounter(ctx context.Context, id string, from uint64) (Account, error)
}

// MemoryStore is a Store held in process memory.
// It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		now:      time.Now,
	}
}

func (s *MemoryStore) Add(ctx context.Context, a Account) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	if err := a.Validate(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var now time.Time = s.now().UTC()

	a.ID = uuid.NewString()
	a.CreatedAt = now
	a.UpdatedAt = now

	s.accounts[a.ID] = a

	return a, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return a, nil
}

// List returns the accounts ordered by creation time.
func (s *MemoryStore) List(ctx context.Context) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var accounts []Account = make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}

	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})

	return accounts, nil
}

func (s *MemoryStore) AdvanceCounter(ctx context.Context, id string, from uint64) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if a.Type != otp.TypeHOTP {
		return Account{}, fmt.Errorf("%w: %s is not HOTP", otp.ErrUnsupportedType, id)
	}

	if a.Counter != from {
		return Account{}, fmt.Errorf("%w: have %d, want %d", ErrStaleCounter, a.Counter, from)
	}

	next, err := otp.NextCounter(from)
	if err != nil {
		return Account{}, err
	}

	a.Counter = next
	a.UpdatedAt = s.now().UTC()
	s.accounts[id] = a

	return a, nil
}
