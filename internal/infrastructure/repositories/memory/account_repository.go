package memory

import (
	"context"
	"sync"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
)

type MemoryAccountRepository struct {
	accounts map[domain.Email]*domain.Account
	mu       sync.RWMutex
}

func NewMemoryAccountRepository() ports.AccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[domain.Email]*domain.Account),
	}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.Email]; exists {
		return domain.ErrEmailTaken
	}
	clone := *account
	r.accounts[account.Email] = &clone
	return nil
}

func (r *MemoryAccountRepository) GetByEmail(ctx context.Context, email domain.Email) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[email]
	if !exists {
		return nil, domain.ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}
