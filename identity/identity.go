// Package identity is a local account provider standing in for the
// hosted identity service the app originally authenticated against. It
// owns registration, sign-in and the session object that callers pass to
// chat and storage code instead of reading ambient global state.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cryptext/models"
	"cryptext/storage"
)

var (
	// ErrInvalidCredentials indicates an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("identity: email already registered")
)

// Session identifies an authenticated user for the duration of a sign-in.
type Session struct {
	UserID      string
	Email       string
	DisplayName string
}

// Manager registers and authenticates users against the store.
type Manager struct {
	store *storage.Store
}

// NewManager creates a Manager backed by the given store.
func NewManager(store *storage.Store) *Manager {
	return &Manager{store: store}
}

// Register creates a new account and returns its session.
func (m *Manager) Register(email, password, displayName string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("identity: email is required")
	}
	if password == "" {
		return nil, errors.New("identity: password is required")
	}

	if _, err := m.store.GetUserByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check existing account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if displayName == "" {
		displayName = email
		if at := strings.IndexByte(email, '@'); at > 0 {
			displayName = email[:at]
		}
	}

	user := models.UserProfile{
		UserID:       uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := m.store.SaveUser(user); err != nil {
		return nil, fmt.Errorf("persist account: %w", err)
	}

	return sessionFor(user), nil
}

// SignIn authenticates an email/password pair.
func (m *Manager) SignIn(email, password string) (*Session, error) {
	email = normalizeEmail(email)

	user, err := m.store.GetUserByEmail(email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return sessionFor(user), nil
}

// SignOut ends the session and wipes local chat data. Accounts survive:
// the same credentials sign in again, to an empty conversation list.
func (m *Manager) SignOut(session *Session) error {
	if session != nil {
		*session = Session{}
	}
	if err := m.store.ClearChatData(); err != nil {
		return fmt.Errorf("clear chat data: %w", err)
	}
	return nil
}

func sessionFor(user models.UserProfile) *Session {
	return &Session{
		UserID:      user.UserID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
