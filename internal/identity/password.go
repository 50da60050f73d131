package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"novoape/internal/core"
	"novoape/internal/docstore"
	"novoape/internal/log"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// AccountsCollection holds one document per registered email.
const AccountsCollection = "accounts"

// Provider is the identity boundary. Callers only ever see the resulting
// user triple or an *Error.
type Provider interface {
	SignUp(ctx context.Context, name, email, password string) (core.User, error)
	SignIn(ctx context.Context, email, password string) (core.User, error)
}

type account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PasswordProvider keeps bcrypt-hashed accounts in a document store under
// accounts/{email}.
type PasswordProvider struct {
	store  docstore.Store
	cost   int
	logger *log.Logger

	// serializes sign-ups so an email is registered once per process
	mu sync.Mutex
}

func NewPasswordProvider(store docstore.Store, logger *log.Logger) *PasswordProvider {
	if logger == nil {
		logger = log.Default(log.ComponentIdentity)
	}
	return &PasswordProvider{
		store:  store,
		cost:   bcrypt.DefaultCost,
		logger: logger.WithComponent(log.ComponentIdentity),
	}
}

// WithCost sets the bcrypt cost; tests use bcrypt.MinCost.
func (p *PasswordProvider) WithCost(cost int) *PasswordProvider {
	p.cost = cost
	return p
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || strings.Contains(email, "/") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func accountPath(email string) (docstore.Path, error) {
	return docstore.Join(AccountsCollection, email)
}

func (p *PasswordProvider) SignUp(ctx context.Context, name, email, password string) (core.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(email) == "" || password == "" {
		return core.User{}, ErrMissingFields
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return core.User{}, err
	}
	if len(password) < MinPasswordLength {
		return core.User{}, ErrWeakPassword
	}
	path, err := accountPath(email)
	if err != nil {
		return core.User{}, ErrInvalidEmail
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.store.Get(ctx, path); err == nil {
		return core.User{}, ErrEmailInUse
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return core.User{}, fmt.Errorf("look up account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	acc := account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	body, err := json.Marshal(acc)
	if err != nil {
		return core.User{}, fmt.Errorf("encode account: %w", err)
	}
	if err := p.store.Set(ctx, path, body); err != nil {
		return core.User{}, fmt.Errorf("failed to create account: %w", err)
	}

	p.logger.InfoContext(ctx, "Account created", log.FieldUserID, acc.ID)
	return acc.user(), nil
}

func (p *PasswordProvider) SignIn(ctx context.Context, email, password string) (core.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return core.User{}, ErrMissingFields
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return core.User{}, err
	}
	path, err := accountPath(email)
	if err != nil {
		return core.User{}, ErrInvalidEmail
	}
	body, err := p.store.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("look up account: %w", err)
	}
	var acc account
	if err := json.Unmarshal(body, &acc); err != nil {
		return core.User{}, fmt.Errorf("decode account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return core.User{}, ErrWrongPassword
	}
	return acc.user(), nil
}

func (a account) user() core.User {
	return core.User{ID: a.ID, Name: a.Name, Email: a.Email}
}
