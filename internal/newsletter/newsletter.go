// Package newsletter manages newsletter subscriptions.
package newsletter

import (
	"context"
	"net/mail"
	"strings"
	"sync"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidEmail is returned when an address cannot be parsed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrAlreadySubscribed is returned when the address is already on the list.
	ErrAlreadySubscribed = errors.New("email already subscribed")
)

// Repository stores subscriber addresses. Addresses are normalized before
// they reach the repository.
type Repository interface {
	// Add inserts one address, returning ErrAlreadySubscribed on duplicates.
	Add(ctx context.Context, email string) error
	// AddBatch inserts addresses, skipping ones already present, and reports
	// how many were inserted.
	AddBatch(ctx context.Context, emails []string) (int64, error)
}

// Normalize trims and lowercases an address and checks that it is a bare
// RFC 5322 address without a display name.
func Normalize(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	if at := strings.LastIndexByte(email, '@'); !strings.Contains(email[at+1:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Service handles sign-ups from the storefront footer.
type Service struct {
	repo Repository
}

// NewService creates a Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Subscribe adds email to the newsletter and returns the stored form.
func (s *Service) Subscribe(ctx context.Context, email string) (string, error) {
	normalized, err := Normalize(email)
	if err != nil {
		return "", err
	}
	if err := s.repo.Add(ctx, normalized); err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			return "", ErrAlreadySubscribed
		}
		return "", errors.Wrap(err, "add subscriber")
	}
	return normalized, nil
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps subscribers in process memory.
type MemoryRepository struct {
	mu     sync.Mutex
	emails map[string]struct{}
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{emails: make(map[string]struct{})}
}

func (m *MemoryRepository) Add(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emails[email]; ok {
		return ErrAlreadySubscribed
	}
	m.emails[email] = struct{}{}
	return nil
}

func (m *MemoryRepository) AddBatch(_ context.Context, emails []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, e := range emails {
		if _, ok := m.emails[e]; ok {
			continue
		}
		m.emails[e] = struct{}{}
		n++
	}
	return n, nil
}

// Len returns the number of subscribers.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.emails)
}
