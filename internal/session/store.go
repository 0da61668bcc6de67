package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrStorageUnavailable is returned by Save when there is nowhere to persist a session.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Store persists at most one session record.
type Store interface {
	// Get returns the current record, or nil when there is none. Records that fail to
	// decode are deleted and reported as nil without an error.
	Get(ctx context.Context) (Session, error)
	// Save replaces any existing record.
	Save(ctx context.Context, s Session) error
	// Clear deletes the record and the auxiliary user id. It is idempotent.
	Clear(ctx context.Context) error
}

// Policy selects how strict an authorization check is.
type Policy int

const (
	// RequireLogin only needs a record with its login flag set.
	RequireLogin Policy = iota
	// RequireAdmin additionally needs the ADMIN role.
	RequireAdmin
)

func (p Policy) String() string {
	if p == RequireAdmin {
		return "admin"
	}
	return "login"
}

// Authorized reports whether s satisfies the policy.
func Authorized(s Session, policy Policy) bool {
	if s == nil || !s.LoggedIn() {
		return false
	}
	if policy == RequireAdmin {
		return IsAdmin(s)
	}
	return true
}

// IsAdmin reports whether the session carries the ADMIN role.
func IsAdmin(s Session) bool {
	return s != nil && strings.EqualFold(s.Principal().Role, RoleAdmin)
}

// IsAuthorized loads the record from the store and checks it against the policy.
// Storage errors count as not authorized.
func IsAuthorized(ctx context.Context, store Store, policy Policy) bool {
	s, err := store.Get(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to read session")
		return false
	}
	return Authorized(s, policy)
}

// auxUserID is the raw id stored next to the record; only delegated logins have one.
func auxUserID(s Session) string {
	if s.Kind() != KindOAuth {
		return ""
	}
	return s.Principal().ID
}

// decodeOrClear decodes a stored payload and deletes it when it is malformed.
func decodeOrClear(ctx context.Context, data []byte, clear func() error) (Session, error) {
	s, err := Unmarshal(data)
	if err == nil {
		return s, nil
	}

	log.Ctx(ctx).Debug().Err(err).Msg("discarding unreadable session")
	recordCleared(ctx, "malformed")
	if cerr := clear(); cerr != nil {
		return nil, cerr
	}
	return nil, nil
}

// Unavailable is the store used when there is no storage context at all. It always
// reads as logged out.
type Unavailable struct{}

func (Unavailable) Get(context.Context) (Session, error) { return nil, nil }

func (Unavailable) Save(context.Context, Session) error { return ErrStorageUnavailable }

func (Unavailable) Clear(context.Context) error { return nil }

// MemoryStore keeps the serialized record in memory, for tests and single process use.
type MemoryStore struct {
	mu     sync.Mutex
	data   []byte
	userID string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, nil
	}
	return decodeOrClear(ctx, m.data, func() error {
		m.data = nil
		m.userID = ""
		return nil
	})
}

func (m *MemoryStore) Save(ctx context.Context, s Session) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.userID = auxUserID(s)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.userID = ""
	return nil
}

// PutRaw stores an arbitrary payload, bypassing serialization.
func (m *MemoryStore) PutRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

// Raw returns the stored payload, nil when empty.
func (m *MemoryStore) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// UserID returns the auxiliary raw user id.
func (m *MemoryStore) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}
