package chat

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("chat session not found")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Intent  string    `json:"intent,omitempty"`
	At      time.Time `json:"at"`
}

// Session is the conversation state of one user. It is owned by the caller and is not safe
// for concurrent use; SessionStore serializes access for servers.
type Session struct {
	ID       string    `json:"id"`
	Disease  string    `json:"disease"`
	Country  string    `json:"country"`
	Messages []Message `json:"messages"`
	Updated  time.Time `json:"updated"`

	// MaxHistory bounds the number of kept messages, 0 keeps all
	MaxHistory int `json:"-"`
}

func NewSession(disease, country string) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Disease: disease,
		Country: country,
		Updated: time.Now(),
	}
}

// Select changes the disease and country the session asks about. History is kept.
func (s *Session) Select(disease, country string) {
	s.Disease = disease
	s.Country = country
}

// Append records a message dropping the oldest ones beyond MaxHistory
func (s *Session) Append(m Message) {
	s.Messages = append(s.Messages, m)
	if s.MaxHistory > 0 && len(s.Messages) > s.MaxHistory {
		s.Messages = slices.Clone(s.Messages[len(s.Messages)-s.MaxHistory:])
	}
	s.Updated = m.At
}

func (s *Session) Clone() *Session {
	c := *s
	c.Messages = slices.Clone(s.Messages)
	return &c
}

// SessionStore keeps sessions in memory and expires those idle for longer than ttl
type SessionStore struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	ttl        time.Duration
	maxHistory int
	now        func() time.Time
}

func NewSessionStore(ttl time.Duration, maxHistory int) *SessionStore {
	return &SessionStore{
		sessions:   make(map[string]*Session),
		ttl:        ttl,
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// Create starts a new session for the selection
func (st *SessionStore) Create(disease, country string) *Session {
	s := NewSession(disease, country)
	s.MaxHistory = st.maxHistory

	st.mu.Lock()
	defer st.mu.Unlock()
	s.Updated = st.now()
	st.sessions[s.ID] = s
	return s.Clone()
}

// Get returns a copy of the session
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, err := st.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// Update runs fn on the stored session while holding the store lock and returns a copy of the
// result
func (st *SessionStore) Update(id string, fn func(*Session) error) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, err := st.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.Updated = st.now()
	return s.Clone(), nil
}

func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes expired sessions and returns how many were removed
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	var n int
	for id, s := range st.sessions {
		if st.expired(s) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

func (st *SessionStore) lookup(id string) (*Session, error) {
	s, exists := st.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	if st.expired(s) {
		delete(st.sessions, id)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (st *SessionStore) expired(s *Session) bool {
	return st.ttl > 0 && st.now().Sub(s.Updated) > st.ttl
}
