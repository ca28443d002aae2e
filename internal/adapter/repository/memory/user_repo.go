package memory

import (
	"context"
	"errors"
	"sync"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository maps user ids to e-mail addresses for owner notifications.
type UserRepository struct {
	mu     sync.RWMutex
	emails map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{emails: make(map[string]string)}
}

func (r *UserRepository) Put(userID, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails[userID] = email
}

func (r *UserRepository) GetEmailByID(ctx context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email, ok := r.emails[userID]
	if !ok {
		return "", ErrUserNotFound
	}
	return email, nil
}
