// stores.go
//
// Shared mock implementations of the auth and chat consumer interfaces.
// Imported by test files across packages to avoid duplicate mock definitions.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/contently-ai/contently/internal/idp"
	"github.com/contently-ai/contently/internal/store"
	"github.com/gofrs/uuid/v5"
)

// MockStore implements auth.Store and chat.Store for tests.
//
// Always stateful...Users, Conversations, Messages, Settings are maps, like a
// real store. Not-found lookups return pgx.ErrNoRows, matching the contract
// handlers rely on. Use *Err fields to inject errors for specific operations.
type MockStore struct {
	// Error injection...zero value means no error
	CreateUserErr         error
	GetUserByEmailErr     error
	GetUserByIDErr        error
	GetUserBySubjectErr   error
	LinkIDPSubjectErr     error
	CreateConversationErr error
	GetConversationErr    error
	ListConversationsErr  error
	UpdateConversationErr error
	DeleteConversationErr error
	AppendMessageErr      error
	ListMessagesErr       error
	SettingsErr           error
	HealthErr             error

	Users         map[uuid.UUID]*store.User
	Conversations map[uuid.UUID]*store.Conversation
	Messages      map[uuid.UUID][]store.Message // keyed by conversation ID
	Settings      map[uuid.UUID]*store.UserSettings

	mu sync.Mutex
}

// NewMockStore returns a MockStore seeded with the given users.
func NewMockStore(users ...*store.User) *MockStore {
	ms := &MockStore{
		Users:         make(map[uuid.UUID]*store.User),
		Conversations: make(map[uuid.UUID]*store.Conversation),
		Messages:      make(map[uuid.UUID][]store.Message),
		Settings:      make(map[uuid.UUID]*store.UserSettings),
	}
	for _, u := range users {
		ms.Users[u.ID] = u
	}
	return ms
}

func (m *MockStore) CheckHealth(_ context.Context) error { return m.HealthErr }

// --- users ---

func (m *MockStore) CreateUserWithPassword(_ context.Context, id uuid.UUID, email, passwordHash string) error {
	if m.CreateUserErr != nil {
		return m.CreateUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[id] = &store.User{ID: id, Email: email, PasswordHash: &passwordHash, CreatedAt: time.Now()}
	return nil
}

func (m *MockStore) CreateUserFromIDP(_ context.Context, id uuid.UUID, email, subject string, fullName, avatarURL *string) error {
	if m.CreateUserErr != nil {
		return m.CreateUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[id] = &store.User{ID: id, Email: email, IDPSubject: &subject, FullName: fullName, AvatarURL: avatarURL, CreatedAt: time.Now()}
	return nil
}

func (m *MockStore) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	if m.GetUserByEmailErr != nil {
		return nil, m.GetUserByEmailErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *MockStore) GetUserByID(_ context.Context, id uuid.UUID) (*store.User, error) {
	if m.GetUserByIDErr != nil {
		return nil, m.GetUserByIDErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *MockStore) GetUserByIDPSubject(_ context.Context, subject string) (*store.User, error) {
	if m.GetUserBySubjectErr != nil {
		return nil, m.GetUserBySubjectErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.IDPSubject != nil && *u.IDPSubject == subject {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *MockStore) LinkIDPSubject(_ context.Context, userID uuid.UUID, subject string) error {
	if m.LinkIDPSubjectErr != nil {
		return m.LinkIDPSubjectErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.IDPSubject = &subject
	return nil
}

// --- conversations ---

func (m *MockStore) CreateConversation(_ context.Context, id uuid.UUID, userID uuid.UUID, title, platform, model string) (*store.Conversation, error) {
	if m.CreateConversationErr != nil {
		return nil, m.CreateConversationErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	c := &store.Conversation{ID: id, UserID: userID, Title: title, TargetPlatform: platform, Model: model, CreatedAt: now, UpdatedAt: now}
	m.Conversations[id] = c
	return c, nil
}

func (m *MockStore) GetConversation(_ context.Context, id uuid.UUID, userID uuid.UUID) (*store.Conversation, error) {
	if m.GetConversationErr != nil {
		return nil, m.GetConversationErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Conversations[id]
	if !ok || c.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (m *MockStore) ListConversations(_ context.Context, userID uuid.UUID) ([]store.Conversation, error) {
	if m.ListConversationsErr != nil {
		return nil, m.ListConversationsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Conversation{}
	for _, c := range m.Conversations {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MockStore) UpdateConversation(_ context.Context, id uuid.UUID, userID uuid.UUID, upd store.ConversationUpdate) (*store.Conversation, error) {
	if m.UpdateConversationErr != nil {
		return nil, m.UpdateConversationErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Conversations[id]
	if !ok || c.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.TargetPlatform != nil {
		c.TargetPlatform = *upd.TargetPlatform
	}
	if upd.Model != nil {
		c.Model = *upd.Model
	}
	c.UpdatedAt = time.Now()
	return c, nil
}

func (m *MockStore) TouchConversation(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.Conversations[id]; ok {
		c.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MockStore) DeleteConversation(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	if m.DeleteConversationErr != nil {
		return m.DeleteConversationErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Conversations[id]
	if !ok || c.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.Conversations, id)
	delete(m.Messages, id) // cascade
	return nil
}

// --- messages ---

func (m *MockStore) AppendMessage(_ context.Context, id uuid.UUID, conversationID uuid.UUID, role, content string, thinking *string, metadata map[string]any) (*store.Message, error) {
	if m.AppendMessageErr != nil {
		return nil, m.AppendMessageErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := store.Message{ID: id, ConversationID: conversationID, Role: role, Content: content, Thinking: thinking, Metadata: metadata, CreatedAt: time.Now()}
	m.Messages[conversationID] = append(m.Messages[conversationID], msg)
	return &msg, nil
}

func (m *MockStore) ListMessages(_ context.Context, conversationID uuid.UUID) ([]store.Message, error) {
	if m.ListMessagesErr != nil {
		return nil, m.ListMessagesErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Message{}, m.Messages[conversationID]...), nil
}

// --- settings ---

func (m *MockStore) GetOrCreateSettings(_ context.Context, userID uuid.UUID) (*store.UserSettings, error) {
	if m.SettingsErr != nil {
		return nil, m.SettingsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Settings[userID]; ok {
		return s, nil
	}
	s := &store.UserSettings{UserID: userID, DefaultModel: "llama-3.1-8b-instant", DefaultPlatform: "general", Theme: "light"}
	m.Settings[userID] = s
	return s, nil
}

func (m *MockStore) UpdateSettings(_ context.Context, userID uuid.UUID, upd store.SettingsUpdate) (*store.UserSettings, error) {
	if m.SettingsErr != nil {
		return nil, m.SettingsErr
	}
	s, _ := m.GetOrCreateSettings(context.Background(), userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if upd.DefaultModel != nil {
		s.DefaultModel = *upd.DefaultModel
	}
	if upd.DefaultPlatform != nil {
		s.DefaultPlatform = *upd.DefaultPlatform
	}
	if upd.Theme != nil {
		s.Theme = *upd.Theme
	}
	s.UpdatedAt = time.Now()
	return s, nil
}

// MockDenylist implements auth.TokenDenylist for tests.
// Stateful; use *Err fields to inject failures.
type MockDenylist struct {
	RevokeErr error
	CheckErr  error
	HealthErr error

	Revoked map[string]bool

	mu sync.Mutex
}

// NewMockDenylist returns an empty MockDenylist ready for use.
func NewMockDenylist() *MockDenylist {
	return &MockDenylist{Revoked: make(map[string]bool)}
}

func (m *MockDenylist) RevokeRefreshToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.RevokeErr != nil {
		return m.RevokeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Revoked == nil {
		m.Revoked = make(map[string]bool)
	}
	m.Revoked[jti] = true
	return nil
}

func (m *MockDenylist) IsRefreshTokenRevoked(_ context.Context, jti string) (bool, error) {
	if m.CheckErr != nil {
		return false, m.CheckErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Revoked[jti], nil
}

func (m *MockDenylist) CheckHealth(_ context.Context) error { return m.HealthErr }

// MockRateLimiter implements auth.RateLimiter for tests.
// AllowErr is returned from every Allow call; nil means always allowed.
type MockRateLimiter struct {
	AllowErr error
	Calls    int

	mu sync.Mutex
}

func (m *MockRateLimiter) Allow(_ context.Context, key string, policy store.RateLimit) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	return m.AllowErr
}

// MockVerifier implements idp.Verifier for tests.
// Tokens maps raw bearer strings to the claims they verify as; anything else errors.
type MockVerifier struct {
	Tokens map[string]*idp.Claims
}

func (m *MockVerifier) Verify(_ context.Context, rawToken string) (*idp.Claims, error) {
	if c, ok := m.Tokens[rawToken]; ok {
		return c, nil
	}
	return nil, errors.New("token not recognized")
}
